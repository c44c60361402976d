// Package proof ingests proof submissions. A proof moves through
// queued, proving and proved, and is attributed to the cluster version that
// was active when it was first reported so historical costs stay stable
// across reconfigurations.
package proof

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/event"
	"github.com/proofscan/proof-manager/pkg/model"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(logger *slog.Logger, bucket string, repository proofRepository, clusterService clusterService, objectStorage objectStorage, publisher publisher) *service {
	return &service{
		logger:         logger,
		bucket:         bucket,
		repository:     repository,
		clusterService: clusterService,
		objectStorage:  objectStorage,
		publisher:      publisher,
	}
}

type proofRepository interface {
	upsertBlock(ctx context.Context, block *model.Block) error
	findByBlockAndCluster(ctx context.Context, blockNumber uint64, clusterID uint) (*model.Proof, error)
	create(ctx context.Context, proof *model.Proof) error
	save(ctx context.Context, proof *model.Proof) error
	findAllByCluster(ctx context.Context, clusterID uint) ([]model.Proof, error)
	findRecent(ctx context.Context, limit int) ([]model.Proof, error)
	findVersionWithPricing(ctx context.Context, versionID uint) (*model.ClusterVersion, error)
}

type clusterService interface {
	FindByTeamAndIndex(ctx context.Context, teamID uint, index uint) (*model.Cluster, error)
	ActiveVersion(ctx context.Context, clusterID uint) (*model.ClusterVersion, error)
}

type objectStorage interface {
	Upload(ctx context.Context, bucket string, key string, body io.Reader) error
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, payload any)
}

type service struct {
	logger         *slog.Logger
	bucket         string
	repository     proofRepository
	clusterService clusterService
	objectStorage  objectStorage
	publisher      publisher
}

// BlockInfo describes the block a proof is reported against. It is upserted
// on every submission since multiple teams prove the same blocks.
type BlockInfo struct {
	Number    uint64
	Hash      string
	GasUsed   uint64
	TxCount   uint
	Timestamp time.Time
}

// ProvedResult carries the measurements of a completed proof.
type ProvedResult struct {
	ProvingTimeMs uint64
	ProvingCycles uint64
	Proof         io.Reader
}

var statusRank = map[string]int{
	model.ProofStatusQueued:  1,
	model.ProofStatusProving: 2,
	model.ProofStatusProved:  3,
}

// Queued reports that a proof of a block has been queued on a cluster.
func (s *service) Queued(ctx context.Context, teamID uint, clusterIndex uint, block BlockInfo) (*model.Proof, error) {
	return s.transition(ctx, teamID, clusterIndex, block, model.ProofStatusQueued, nil)
}

// Proving reports that a cluster has started proving a block. The queued
// stage is optional; provers that don't queue report proving directly.
func (s *service) Proving(ctx context.Context, teamID uint, clusterIndex uint, block BlockInfo) (*model.Proof, error) {
	return s.transition(ctx, teamID, clusterIndex, block, model.ProofStatusProving, nil)
}

// Proved reports a completed proof: it stores the binary, derives the cost
// from the catalog prices of the attributed version's machines and publishes
// the completion event.
func (s *service) Proved(ctx context.Context, teamID uint, clusterIndex uint, block BlockInfo, result ProvedResult) (*model.Proof, error) {
	return s.transition(ctx, teamID, clusterIndex, block, model.ProofStatusProved, &result)
}

func (s *service) transition(ctx context.Context, teamID uint, clusterIndex uint, block BlockInfo, status string, result *ProvedResult) (*model.Proof, error) {
	cluster, err := s.clusterService.FindByTeamAndIndex(ctx, teamID, clusterIndex)
	if err != nil {
		return nil, err
	}

	err = s.repository.upsertBlock(ctx, &model.Block{
		Number:    block.Number,
		Hash:      block.Hash,
		GasUsed:   block.GasUsed,
		TxCount:   block.TxCount,
		Timestamp: block.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	proof, err := s.repository.findByBlockAndCluster(ctx, block.Number, cluster.ID)
	if err != nil && !errdef.IsNotFound(err) {
		return nil, err
	}

	isNew := proof == nil
	if isNew {
		version, err := s.clusterService.ActiveVersion(ctx, cluster.ID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, errdef.NewBadRequest("cluster %d has no configuration to attribute proofs to", cluster.ID)
		}

		proof = &model.Proof{
			BlockNumber:      block.Number,
			ClusterID:        cluster.ID,
			ClusterVersionID: version.ID,
		}
	} else if statusRank[status] <= statusRank[proof.Status] {
		return nil, errdef.NewDuplicated("proof of block %d by cluster %d is already %s", block.Number, cluster.ID, proof.Status)
	}

	proof.Status = status
	now := time.Now()
	switch status {
	case model.ProofStatusQueued:
		proof.QueuedAt = &now
	case model.ProofStatusProving:
		proof.ProvingAt = &now
	case model.ProofStatusProved:
		proof.ProvedAt = &now
		if err := s.complete(ctx, proof, *result); err != nil {
			return nil, err
		}
	}

	if isNew {
		err = s.repository.create(ctx, proof)
	} else {
		err = s.repository.save(ctx, proof)
	}
	if err != nil {
		return nil, err
	}

	if status == model.ProofStatusProved {
		s.publisher.Publish(ctx, event.ProofProved, map[string]any{
			"blockNumber": proof.BlockNumber,
			"clusterId":   proof.ClusterID,
			"costUsd":     proof.CostUsd,
		})
	}

	s.logger.InfoContext(ctx, "Recorded proof submission", "blockNumber", proof.BlockNumber, "clusterId", proof.ClusterID, "status", status)
	return proof, nil
}

// complete fills in the measurement fields of a proved proof: the binary goes
// to object storage and the cost is the hourly price of the attributed
// version's machines prorated over the proving time.
func (s *service) complete(ctx context.Context, proof *model.Proof, result ProvedResult) error {
	proof.ProvingTimeMs = result.ProvingTimeMs
	proof.ProvingCycles = result.ProvingCycles

	version, err := s.repository.findVersionWithPricing(ctx, proof.ClusterVersionID)
	if err != nil {
		return err
	}
	proof.CostUsd = costUsd(version.Machines, result.ProvingTimeMs)

	if result.Proof != nil {
		key := fmt.Sprintf("proofs/%d/%d.proof", proof.ClusterID, proof.BlockNumber)
		if err := s.objectStorage.Upload(ctx, s.bucket, key, result.Proof); err != nil {
			return err
		}
		proof.ProofPath = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	}

	return nil
}

func costUsd(machines []model.ClusterMachine, provingTimeMs uint64) float64 {
	var hourlyUsd float64
	for _, machine := range machines {
		if machine.CloudInstance == nil {
			continue
		}
		hourlyUsd += machine.CloudInstance.HourlyPrice * float64(machine.CloudInstanceCount)
	}

	return hourlyUsd * float64(provingTimeMs) / (1000 * 60 * 60)
}

// FindAllByCluster lists a cluster's proofs, most recent block first.
func (s *service) FindAllByCluster(ctx context.Context, clusterID uint) ([]model.Proof, error) {
	return s.repository.findAllByCluster(ctx, clusterID)
}

// FindRecent lists the most recently submitted proofs across all clusters.
func (s *service) FindRecent(ctx context.Context, limit int) ([]model.Proof, error) {
	return s.repository.findRecent(ctx, limit)
}
