package catalog

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

func (r repository) findZkvmVersion(ctx context.Context, id uint) (*model.ZkvmVersion, error) {
	var version *model.ZkvmVersion
	err := r.db.
		WithContext(ctx).
		Joins("Zkvm").
		First(&version, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("zkVM version %d doesn't exist", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find zkVM version: %v", err)
	}

	return version, nil
}

func (r repository) findAllZkvms(ctx context.Context) ([]model.Zkvm, error) {
	var zkvms []model.Zkvm
	err := r.db.
		WithContext(ctx).
		Preload("Versions").
		Order("name").
		Find(&zkvms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find zkVMs: %v", err)
	}

	return zkvms, nil
}

func (r repository) findCloudInstancesByName(ctx context.Context, names []string) ([]model.CloudInstance, error) {
	var instances []model.CloudInstance
	err := r.db.
		WithContext(ctx).
		Where("instance_name IN ?", names).
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find cloud instances: %v", err)
	}

	return instances, nil
}

func (r repository) findAllCloudInstances(ctx context.Context) ([]model.CloudInstance, error) {
	var instances []model.CloudInstance
	err := r.db.
		WithContext(ctx).
		Order("provider, instance_name").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find cloud instances: %v", err)
	}

	return instances, nil
}

func (r repository) findProverType(ctx context.Context, id uint) (*model.ProverType, error) {
	var proverType *model.ProverType
	err := r.db.
		WithContext(ctx).
		First(&proverType, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("prover type %d doesn't exist", id)
	}

	return proverType, err
}

func (r repository) saveZkvm(ctx context.Context, zkvm *model.Zkvm) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where(model.Zkvm{Name: zkvm.Name}).
		Assign(model.Zkvm{Isa: zkvm.Isa}).
		FirstOrCreate(&zkvm).Error
}

func (r repository) saveZkvmVersion(ctx context.Context, version *model.ZkvmVersion) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where(model.ZkvmVersion{ZkvmID: version.ZkvmID, Version: version.Version}).
		FirstOrCreate(&version).Error
}

func (r repository) saveCloudInstance(ctx context.Context, instance *model.CloudInstance) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where(model.CloudInstance{InstanceName: instance.InstanceName}).
		Assign(*instance).
		FirstOrCreate(&instance).Error
}

func (r repository) saveProverType(ctx context.Context, proverType *model.ProverType) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where(model.ProverType{Name: proverType.Name}).
		Assign(*proverType).
		FirstOrCreate(&proverType).Error
}
