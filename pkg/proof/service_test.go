package proof

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/event"
	"github.com/proofscan/proof-manager/pkg/model"
)

func TestProofLifecycle(t *testing.T) {
	t.Parallel()

	block := BlockInfo{
		Number:    23112400,
		Hash:      "0xabc",
		GasUsed:   14_500_000,
		TxCount:   180,
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	t.Run("QueuedCreatesProofAttributedToActiveVersion", func(t *testing.T) {
		t.Parallel()

		repo, clusters, _, _, svc := setup(t)
		cluster := clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})
		version := clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 100, Version: 3})

		proof, err := svc.Queued(context.Background(), 1, 1, block)

		require.NoError(t, err)
		assert.Equal(t, model.ProofStatusQueued, proof.Status)
		assert.Equal(t, cluster.ID, proof.ClusterID)
		assert.Equal(t, version.ID, proof.ClusterVersionID)
		assert.NotNil(t, proof.QueuedAt)
		require.Contains(t, repo.blocks, block.Number)
		assert.Equal(t, "0xabc", repo.blocks[block.Number].Hash)
	})

	t.Run("ProvingWithoutQueueCreatesProof", func(t *testing.T) {
		t.Parallel()

		_, clusters, _, _, svc := setup(t)
		cluster := clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})
		clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 100})

		proof, err := svc.Proving(context.Background(), 1, 1, block)

		require.NoError(t, err)
		assert.Equal(t, model.ProofStatusProving, proof.Status)
		assert.Nil(t, proof.QueuedAt)
		assert.NotNil(t, proof.ProvingAt)
	})

	t.Run("ProvedComputesCostAndStoresBinary", func(t *testing.T) {
		t.Parallel()

		repo, clusters, storage, publisher, svc := setup(t)
		cluster := clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})
		version := clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 100})
		version.Machines = []model.ClusterMachine{
			{CloudInstance: &model.CloudInstance{HourlyPrice: 2.0}, CloudInstanceCount: 2},
			{CloudInstance: &model.CloudInstance{HourlyPrice: 1.5}, CloudInstanceCount: 1},
		}
		repo.versions[version.ID] = version

		_, err := svc.Queued(context.Background(), 1, 1, block)
		require.NoError(t, err)

		proof, err := svc.Proved(context.Background(), 1, 1, block, ProvedResult{
			ProvingTimeMs: 1_800_000, // half an hour
			ProvingCycles: 4_200_000_000,
			Proof:         strings.NewReader("proof bytes"),
		})

		require.NoError(t, err)
		assert.Equal(t, model.ProofStatusProved, proof.Status)
		// (2.0*2 + 1.5*1) $/h * 0.5h
		assert.InDelta(t, 2.75, proof.CostUsd, 1e-9)
		assert.Equal(t, uint64(1_800_000), proof.ProvingTimeMs)
		assert.Equal(t, "s3://proof-bucket/proofs/10/23112400.proof", proof.ProofPath)
		assert.NotNil(t, proof.ProvedAt)
		assert.Equal(t, "proof-bucket", storage.lastBucket)
		assert.Equal(t, "proofs/10/23112400.proof", storage.lastKey)
		require.Len(t, publisher.events, 1)
		assert.Equal(t, event.ProofProved, publisher.events[0].routingKey)
	})

	t.Run("StatusNeverMovesBackwards", func(t *testing.T) {
		t.Parallel()

		repo, clusters, _, _, svc := setup(t)
		cluster := clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})
		version := clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 100})
		repo.versions[version.ID] = version

		_, err := svc.Proved(context.Background(), 1, 1, block, ProvedResult{ProvingTimeMs: 1000})
		require.NoError(t, err)

		_, err = svc.Proving(context.Background(), 1, 1, block)
		assert.True(t, errdef.IsDuplicated(err), "should reject the backwards transition")

		_, err = svc.Proved(context.Background(), 1, 1, block, ProvedResult{ProvingTimeMs: 1000})
		assert.True(t, errdef.IsDuplicated(err), "should reject the repeated submission")
	})

	t.Run("AttributionSticksToFirstVersion", func(t *testing.T) {
		t.Parallel()

		repo, clusters, _, _, svc := setup(t)
		cluster := clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})
		first := clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 100, Version: 1})
		repo.versions[first.ID] = first

		_, err := svc.Queued(context.Background(), 1, 1, block)
		require.NoError(t, err)

		// the cluster is reconfigured between queued and proved
		clusters.setActiveVersion(cluster.ID, &model.ClusterVersion{ID: 200, Version: 2})

		proof, err := svc.Proved(context.Background(), 1, 1, block, ProvedResult{ProvingTimeMs: 1000})
		require.NoError(t, err)
		assert.Equal(t, first.ID, proof.ClusterVersionID)
	})

	t.Run("ClusterWithoutConfigurationRejected", func(t *testing.T) {
		t.Parallel()

		_, clusters, _, _, svc := setup(t)
		clusters.add(1, &model.Cluster{ID: 10, TeamID: 1})

		_, err := svc.Queued(context.Background(), 1, 1, block)

		assert.True(t, errdef.IsBadRequest(err), "should be a bad request error")
		assert.ErrorContains(t, err, "no configuration")
	})

	t.Run("UnknownClusterIndexFails", func(t *testing.T) {
		t.Parallel()

		_, _, _, _, svc := setup(t)

		_, err := svc.Queued(context.Background(), 1, 3, block)

		assert.True(t, errdef.IsNotFound(err))
	})
}

func setup(t *testing.T) (*fakeRepository, *fakeClusterService, *storageSpy, *publisherSpy, *service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &fakeRepository{
		blocks:   map[uint64]*model.Block{},
		versions: map[uint]*model.ClusterVersion{},
	}
	clusters := &fakeClusterService{
		byTeamAndIndex: map[uint]map[uint]*model.Cluster{},
		activeVersions: map[uint]*model.ClusterVersion{},
	}
	storage := &storageSpy{}
	publisher := &publisherSpy{}
	svc := NewService(logger, "proof-bucket", repo, clusters, storage, publisher)
	return repo, clusters, storage, publisher, svc
}

type fakeRepository struct {
	blocks   map[uint64]*model.Block
	proofs   []*model.Proof
	versions map[uint]*model.ClusterVersion
}

func (f *fakeRepository) upsertBlock(_ context.Context, block *model.Block) error {
	f.blocks[block.Number] = block
	return nil
}

func (f *fakeRepository) findByBlockAndCluster(_ context.Context, blockNumber uint64, clusterID uint) (*model.Proof, error) {
	for _, proof := range f.proofs {
		if proof.BlockNumber == blockNumber && proof.ClusterID == clusterID {
			return proof, nil
		}
	}
	return nil, errdef.NewNotFound("no proof of block %d by cluster %d", blockNumber, clusterID)
}

func (f *fakeRepository) create(_ context.Context, proof *model.Proof) error {
	f.proofs = append(f.proofs, proof)
	return nil
}

func (f *fakeRepository) save(_ context.Context, _ *model.Proof) error {
	return nil
}

func (f *fakeRepository) findAllByCluster(_ context.Context, clusterID uint) ([]model.Proof, error) {
	var proofs []model.Proof
	for _, proof := range f.proofs {
		if proof.ClusterID == clusterID {
			proofs = append(proofs, *proof)
		}
	}
	return proofs, nil
}

func (f *fakeRepository) findRecent(_ context.Context, limit int) ([]model.Proof, error) {
	var proofs []model.Proof
	for i := len(f.proofs) - 1; i >= 0 && len(proofs) < limit; i-- {
		proofs = append(proofs, *f.proofs[i])
	}
	return proofs, nil
}

func (f *fakeRepository) findVersionWithPricing(_ context.Context, versionID uint) (*model.ClusterVersion, error) {
	version, ok := f.versions[versionID]
	if !ok {
		return nil, errdef.NewNotFound("cluster version %d doesn't exist", versionID)
	}
	return version, nil
}

type fakeClusterService struct {
	byTeamAndIndex map[uint]map[uint]*model.Cluster
	activeVersions map[uint]*model.ClusterVersion
}

func (f *fakeClusterService) add(teamID uint, cluster *model.Cluster) *model.Cluster {
	if f.byTeamAndIndex[teamID] == nil {
		f.byTeamAndIndex[teamID] = map[uint]*model.Cluster{}
	}
	index := uint(len(f.byTeamAndIndex[teamID]) + 1)
	f.byTeamAndIndex[teamID][index] = cluster
	return cluster
}

func (f *fakeClusterService) setActiveVersion(clusterID uint, version *model.ClusterVersion) *model.ClusterVersion {
	version.ClusterID = clusterID
	version.IsActive = true
	f.activeVersions[clusterID] = version
	return version
}

func (f *fakeClusterService) FindByTeamAndIndex(_ context.Context, teamID uint, index uint) (*model.Cluster, error) {
	cluster, ok := f.byTeamAndIndex[teamID][index]
	if !ok {
		return nil, errdef.NewNotFound("cluster %d doesn't exist", index)
	}
	return cluster, nil
}

func (f *fakeClusterService) ActiveVersion(_ context.Context, clusterID uint) (*model.ClusterVersion, error) {
	return f.activeVersions[clusterID], nil
}

type storageSpy struct {
	lastBucket string
	lastKey    string
}

func (s *storageSpy) Upload(_ context.Context, bucket string, key string, body io.Reader) error {
	s.lastBucket = bucket
	s.lastKey = key
	_, _ = io.Copy(io.Discard, body)
	return nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type publisherSpy struct {
	events []publishedEvent
}

func (s *publisherSpy) Publish(_ context.Context, routingKey string, payload any) {
	s.events = append(s.events, publishedEvent{routingKey: routingKey, payload: payload})
}
