package proof

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

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

// upsertBlock creates or refreshes the block row a proof is reported against.
// Multiple teams prove the same blocks so conflicts are the common case.
func (r repository) upsertBlock(ctx context.Context, block *model.Block) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	err := r.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "number"}},
			UpdateAll: true,
		}).
		Create(block).Error
	if err != nil {
		return fmt.Errorf("failed to upsert block %d: %v", block.Number, err)
	}

	return nil
}

func (r repository) findByBlockAndCluster(ctx context.Context, blockNumber uint64, clusterID uint) (*model.Proof, error) {
	var proof *model.Proof
	err := r.db.
		WithContext(ctx).
		Where("block_number = ? AND cluster_id = ?", blockNumber, clusterID).
		First(&proof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("no proof of block %d by cluster %d", blockNumber, clusterID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find proof: %v", err)
	}

	return proof, nil
}

func (r repository) create(ctx context.Context, proof *model.Proof) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	err := r.db.WithContext(ctx).Create(proof).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errdef.NewDuplicated("cluster %d already submitted a proof of block %d", proof.ClusterID, proof.BlockNumber)
	}

	return err
}

func (r repository) save(ctx context.Context, proof *model.Proof) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	return r.db.WithContext(ctx).Save(proof).Error
}

func (r repository) findAllByCluster(ctx context.Context, clusterID uint) ([]model.Proof, error) {
	var proofs []model.Proof
	err := r.db.
		WithContext(ctx).
		Preload("Block").
		Where("cluster_id = ?", clusterID).
		Order("block_number desc").
		Find(&proofs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find proofs of cluster %d: %v", clusterID, err)
	}

	return proofs, nil
}

func (r repository) findRecent(ctx context.Context, limit int) ([]model.Proof, error) {
	var proofs []model.Proof
	err := r.db.
		WithContext(ctx).
		Preload("Block").
		Preload("Cluster").
		Order("id desc").
		Limit(limit).
		Find(&proofs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent proofs: %v", err)
	}

	return proofs, nil
}

// findVersionWithPricing loads a cluster version with the cloud instances of
// its machines, so a proof's cost can be derived from the catalog prices.
func (r repository) findVersionWithPricing(ctx context.Context, versionID uint) (*model.ClusterVersion, error) {
	var version *model.ClusterVersion
	err := r.db.
		WithContext(ctx).
		Preload("Machines.CloudInstance").
		First(&version, versionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("cluster version %d doesn't exist", versionID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find cluster version %d: %v", versionID, err)
	}

	return version, nil
}
