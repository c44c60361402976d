package cluster

import (
	"errors"

	"github.com/proofscan/proof-manager/internal/errdef"
)

// The domain error kinds of the version manager. Each kind also unwraps to
// the generic errdef kind the HTTP error handler translates, so callers can
// match on either level.

func NewInvalidZkvmVersion(format string, a ...any) error {
	return invalidZkvmVersion{errdef.NewBadRequest(format, a...)}
}

type invalidZkvmVersion struct{ error }

func (e invalidZkvmVersion) Unwrap() error { return e.error }

func IsInvalidZkvmVersion(err error) bool {
	var e invalidZkvmVersion
	return errors.As(err, &e)
}

func NewInvalidConfiguration(format string, a ...any) error {
	return invalidConfiguration{errdef.NewBadRequest(format, a...)}
}

type invalidConfiguration struct{ error }

func (e invalidConfiguration) Unwrap() error { return e.error }

func IsInvalidConfiguration(err error) bool {
	var e invalidConfiguration
	return errors.As(err, &e)
}

func NewActiveClusterConflict(format string, a ...any) error {
	return activeClusterConflict{errdef.NewConflict(format, a...)}
}

type activeClusterConflict struct{ error }

func (e activeClusterConflict) Unwrap() error { return e.error }

func IsActiveClusterConflict(err error) bool {
	var e activeClusterConflict
	return errors.As(err, &e)
}

func NewUnsupportedGpuReconfiguration(format string, a ...any) error {
	return unsupportedGpuReconfiguration{errdef.NewBadRequest(format, a...)}
}

type unsupportedGpuReconfiguration struct{ error }

func (e unsupportedGpuReconfiguration) Unwrap() error { return e.error }

func IsUnsupportedGpuReconfiguration(err error) bool {
	var e unsupportedGpuReconfiguration
	return errors.As(err, &e)
}

func NewConcurrentModification(format string, a ...any) error {
	return concurrentModification{errdef.NewConflict(format, a...)}
}

type concurrentModification struct{ error }

func (e concurrentModification) Unwrap() error { return e.error }

func IsConcurrentModification(err error) bool {
	var e concurrentModification
	return errors.As(err, &e)
}
