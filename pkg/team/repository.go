package team

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/model"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewRepository(db *gorm.DB) *repository {
	return &repository{db}
}

type repository struct {
	db *gorm.DB
}

func (r repository) create(ctx context.Context, team *model.Team) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	err := r.db.WithContext(ctx).Create(&team).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errdef.NewDuplicated("team %q already exists", team.Name)
	}

	return err
}

func (r repository) save(ctx context.Context, team *model.Team) error {
	ctx = context.WithoutCancel(ctx)
	return r.db.WithContext(ctx).Save(&team).Error
}

func (r repository) find(ctx context.Context, id uint) (*model.Team, error) {
	var team *model.Team
	err := r.db.
		WithContext(ctx).
		First(&team, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("team %d doesn't exist", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find team: %v", err)
	}

	return team, nil
}

func (r repository) findAll(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.
		WithContext(ctx).
		Order("name").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find all teams: %v", err)
	}

	return teams, nil
}

func (r repository) findByApiKeyHash(ctx context.Context, hash string) (*model.Team, error) {
	var key *model.ApiKey
	err := r.db.
		WithContext(ctx).
		Joins("Team").
		Where("api_keys.key_hash = ? AND api_keys.active = true", hash).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("no team matches the API key")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find team by API key: %v", err)
	}

	return key.Team, nil
}

func (r repository) createApiKey(ctx context.Context, key *model.ApiKey) error {
	ctx = context.WithoutCancel(ctx)
	return r.db.WithContext(ctx).Create(&key).Error
}
