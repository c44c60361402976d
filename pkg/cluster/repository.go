package cluster

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

func (r repository) find(ctx context.Context, id uint) (*model.Cluster, error) {
	var cluster *model.Cluster
	err := r.db.
		WithContext(ctx).
		Preload("ProverType").
		First(&cluster, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("cluster %d doesn't exist", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find cluster: %v", err)
	}

	return cluster, nil
}

// findByTeamAndIndex resolves the public API addressing scheme: the 1-based
// ordinal of the cluster in creation order within the team.
func (r repository) findByTeamAndIndex(ctx context.Context, teamID uint, index uint) (*model.Cluster, error) {
	if index < 1 {
		return nil, errdef.NewNotFound("cluster %d doesn't exist", index)
	}

	var cluster *model.Cluster
	err := r.db.
		WithContext(ctx).
		Preload("ProverType").
		Where("team_id = ?", teamID).
		Order("id").
		Offset(int(index) - 1).
		First(&cluster).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("cluster %d doesn't exist", index)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find cluster by index: %v", err)
	}

	return cluster, nil
}

func (r repository) findAll(ctx context.Context) ([]model.Cluster, error) {
	var clusters []model.Cluster
	err := r.db.
		WithContext(ctx).
		Preload("ProverType").
		Preload("Versions", "is_active = true").
		Preload("Versions.Machines").
		Joins("Team").
		Where("\"Team\".approved = true").
		Order("clusters.id").
		Find(&clusters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find clusters: %v", err)
	}

	return clusters, nil
}

func (r repository) findAllByTeam(ctx context.Context, teamID uint) ([]model.Cluster, error) {
	var clusters []model.Cluster
	err := r.db.
		WithContext(ctx).
		Preload("ProverType").
		Preload("Versions", "is_active = true").
		Preload("Versions.Machines").
		Where("team_id = ?", teamID).
		Order("id").
		Find(&clusters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find team clusters: %v", err)
	}

	return clusters, nil
}

func (r repository) create(ctx context.Context, cluster *model.Cluster) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	return r.db.WithContext(ctx).Create(&cluster).Error
}

// latestVersion returns the most recently created version of a cluster, or
// nil when none exist. Equivalent to activeVersion because applyChange always
// activates the version it inserts.
func (r repository) latestVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error) {
	return r.version(r.db.WithContext(ctx), clusterID, "cluster_id = ?", clusterID)
}

// activeVersion returns the version flagged active, or nil when none exist.
func (r repository) activeVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error) {
	return r.version(r.db.WithContext(ctx), clusterID, "cluster_id = ? AND is_active = true", clusterID)
}

func (r repository) version(db *gorm.DB, clusterID uint, query string, args ...any) (*model.ClusterVersion, error) {
	var version *model.ClusterVersion
	err := db.
		Preload("Machines").
		Where(query, args...).
		Order("version desc").
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find version of cluster %d: %v", clusterID, err)
	}

	return version, nil
}

// hasActiveCluster reports whether the team already has an active cluster of
// the given prover type, excluding the cluster being updated.
func (r repository) hasActiveCluster(ctx context.Context, teamID uint, proverTypeID uint, excludeClusterID uint) (bool, error) {
	var count int64
	err := r.db.
		WithContext(ctx).
		Model(&model.Cluster{}).
		Where("team_id = ? AND prover_type_id = ? AND is_active = true AND id <> ?", teamID, proverTypeID, excludeClusterID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count active clusters: %v", err)
	}

	return count > 0, nil
}

// change is the validated outcome of an update, ready to commit.
type change struct {
	// metadata holds the cluster columns to update, keyed by column name.
	metadata map[string]any
	// newVersion, when set, is inserted as the new active version. Its
	// Version number is assigned under the row lock.
	newVersion *model.ClusterVersion
	// expectedVersionID is the id of the version the update was validated
	// against; 0 when the cluster had none.
	expectedVersionID uint
}

// applyChange commits a validated change in one transaction: it locks the
// cluster row, verifies the active version is still the one the change was
// computed from, updates the metadata columns and inserts the new version
// with its machine assignments. It returns the id of the version that is
// current after the commit.
func (r repository) applyChange(ctx context.Context, clusterID uint, ch change) (uint, error) {
	// don't let a client disconnect roll back a commit that already passed
	// validation
	ctx = context.WithoutCancel(ctx)

	var currentID uint
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cluster model.Cluster
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cluster, clusterID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errdef.NewNotFound("cluster %d doesn't exist", clusterID)
		}
		if err != nil {
			return err
		}

		// re-read the current version under the lock; the manager validated
		// against expectedVersionID and anything newer means a concurrent
		// update won the race
		active, err := r.version(tx, clusterID, "cluster_id = ? AND is_active = true", clusterID)
		if err != nil {
			return err
		}
		var activeID uint
		if active != nil {
			activeID = active.ID
		}
		if activeID != ch.expectedVersionID {
			return NewConcurrentModification("cluster %d was updated concurrently, expected version %d but found %d", clusterID, ch.expectedVersionID, activeID)
		}

		if len(ch.metadata) > 0 {
			err := tx.Model(&cluster).Updates(ch.metadata).Error
			if err != nil {
				return fmt.Errorf("failed to update cluster metadata: %v", err)
			}
		}

		if ch.newVersion == nil {
			currentID = activeID
			return nil
		}

		if active != nil {
			err := tx.Model(active).Update("is_active", false).Error
			if err != nil {
				return fmt.Errorf("failed to deactivate version %d: %v", active.ID, err)
			}
			ch.newVersion.Version = active.Version + 1
		} else {
			ch.newVersion.Version = 1
		}

		ch.newVersion.ClusterID = clusterID
		ch.newVersion.IsActive = true
		if err := r.createVersion(tx, ch.newVersion); err != nil {
			return err
		}

		currentID = ch.newVersion.ID
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}

	return currentID, nil
}

// createVersion inserts a version row together with its machine assignments.
// It never opens its own transaction so it composes with applyChange and
// with cluster creation.
func (r repository) createVersion(tx *gorm.DB, version *model.ClusterVersion) error {
	if err := tx.Create(version).Error; err != nil {
		return fmt.Errorf("failed to create cluster version: %v", err)
	}
	return nil
}
