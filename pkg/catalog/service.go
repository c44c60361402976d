// Package catalog exposes the read-only reference catalogs: zkVM versions,
// cloud instance SKUs and prover types. The versioning core validates against
// these and never mutates them.
package catalog

import (
	"context"

	"github.com/proofscan/proof-manager/pkg/model"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(repository catalogRepository) *service {
	return &service{repository}
}

type catalogRepository interface {
	findZkvmVersion(ctx context.Context, id uint) (*model.ZkvmVersion, error)
	findAllZkvms(ctx context.Context) ([]model.Zkvm, error)
	findCloudInstancesByName(ctx context.Context, names []string) ([]model.CloudInstance, error)
	findAllCloudInstances(ctx context.Context) ([]model.CloudInstance, error)
	findProverType(ctx context.Context, id uint) (*model.ProverType, error)
	saveZkvm(ctx context.Context, zkvm *model.Zkvm) error
	saveZkvmVersion(ctx context.Context, version *model.ZkvmVersion) error
	saveCloudInstance(ctx context.Context, instance *model.CloudInstance) error
	saveProverType(ctx context.Context, proverType *model.ProverType) error
}

type service struct {
	repository catalogRepository
}

func (s *service) FindZkvmVersion(ctx context.Context, id uint) (*model.ZkvmVersion, error) {
	return s.repository.findZkvmVersion(ctx, id)
}

func (s *service) FindAllZkvms(ctx context.Context) ([]model.Zkvm, error) {
	return s.repository.findAllZkvms(ctx)
}

func (s *service) FindCloudInstancesByName(ctx context.Context, names []string) ([]model.CloudInstance, error) {
	return s.repository.findCloudInstancesByName(ctx, names)
}

func (s *service) FindAllCloudInstances(ctx context.Context) ([]model.CloudInstance, error) {
	return s.repository.findAllCloudInstances(ctx)
}

func (s *service) FindProverType(ctx context.Context, id uint) (*model.ProverType, error) {
	return s.repository.findProverType(ctx, id)
}
