package handler

import (
	"context"
	"errors"

	"github.com/proofscan/proof-manager/pkg/model"
)

func GetUserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := model.GetUserFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found on context")
	}
	return user, nil
}
