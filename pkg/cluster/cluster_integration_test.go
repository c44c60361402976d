package cluster_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofscan/proof-manager/pkg/cache"
	"github.com/proofscan/proof-manager/pkg/catalog"
	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/inttest"
	"github.com/proofscan/proof-manager/pkg/model"
)

func TestClusterVersioning(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	redisClient := inttest.SetupRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	zkvm := model.Zkvm{Name: "sp1", Isa: "riscv32im"}
	require.NoError(t, db.Create(&zkvm).Error)
	release1 := model.ZkvmVersion{ZkvmID: zkvm.ID, Version: "4.0.0"}
	require.NoError(t, db.Create(&release1).Error)
	release2 := model.ZkvmVersion{ZkvmID: zkvm.ID, Version: "4.1.0"}
	require.NoError(t, db.Create(&release2).Error)
	instance := model.CloudInstance{Provider: "aws", InstanceName: "g6.12xlarge", Region: "us-east-1", HourlyPrice: 4.6, GpuCount: 4, GpuType: "L4"}
	require.NoError(t, db.Create(&instance).Error)
	team := model.Team{Name: "prover-team", Approved: true}
	require.NoError(t, db.Create(&team).Error)

	invalidator := cache.NewInvalidator(logger, redisClient)
	catalogService := catalog.NewService(catalog.NewRepository(db))
	clusterService := cluster.NewService(logger, cluster.NewRepository(db), catalogService, invalidator, noopPublisher{})

	ctx := context.Background()
	actor := cluster.Actor{TeamID: team.ID}

	created, err := clusterService.Create(ctx, team.ID, cluster.CreateClusterInput{
		Nickname:      "prover-a",
		NumGpus:       4,
		ZkvmVersionID: release1.ID,
		Configuration: []cluster.MachineSpec{
			{Machine: "4x L4", MachineCount: 1, CloudInstanceName: "g6.12xlarge", CloudInstanceCount: 1},
		},
	})
	require.NoError(t, err, "failed to create cluster with first version")

	t.Run("FirstVersionIsActive", func(t *testing.T) {
		active, err := clusterService.ActiveVersion(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, uint(1), active.Version)
		assert.Equal(t, "v0.1", active.Marker())
		assert.Equal(t, release1.ID, active.ZkvmVersionID)
		require.Len(t, active.Machines, 1)
	})

	t.Run("ZkvmChangeCreatesVersionTwo", func(t *testing.T) {
		versionID, err := clusterService.ApplyUpdate(ctx, created.ID, actor, cluster.UpdatePatch{
			ZkvmVersionID: &release2.ID,
		})
		require.NoError(t, err)

		active, err := clusterService.ActiveVersion(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, versionID, active.ID)
		assert.Equal(t, uint(2), active.Version)
		assert.Equal(t, release2.ID, active.ZkvmVersionID)
		require.Len(t, active.Machines, 1, "machines are inherited from the previous version")

		var total int64
		require.NoError(t, db.Model(&model.ClusterVersion{}).Where("cluster_id = ?", created.ID).Count(&total).Error)
		assert.EqualValues(t, 2, total, "the previous version must be retained")

		var activeCount int64
		require.NoError(t, db.Model(&model.ClusterVersion{}).Where("cluster_id = ? AND is_active = true", created.ID).Count(&activeCount).Error)
		assert.EqualValues(t, 1, activeCount, "exactly one version may be active")
	})

	t.Run("MetadataOnlyUpdateKeepsVersion", func(t *testing.T) {
		nickname := "prover-a-renamed"
		versionID, err := clusterService.ApplyUpdate(ctx, created.ID, actor, cluster.UpdatePatch{
			Nickname: &nickname,
		})
		require.NoError(t, err)

		active, err := clusterService.ActiveVersion(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, active.ID, versionID)
		assert.Equal(t, uint(2), active.Version)

		found, err := clusterService.Find(ctx, created.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, "prover-a-renamed", found.Nickname)
	})

	t.Run("UnknownInstanceLeavesEverythingUntouched", func(t *testing.T) {
		nickname := "should-not-apply"
		_, err := clusterService.ApplyUpdate(ctx, created.ID, actor, cluster.UpdatePatch{
			Nickname: &nickname,
			Configuration: []cluster.MachineSpec{
				{Machine: "4x L4", MachineCount: 1, CloudInstanceName: "no-such-sku", CloudInstanceCount: 1},
			},
		})
		require.Error(t, err)
		assert.True(t, cluster.IsInvalidConfiguration(err))

		found, err := clusterService.Find(ctx, created.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, "prover-a-renamed", found.Nickname)

		var total int64
		require.NoError(t, db.Model(&model.ClusterVersion{}).Where("cluster_id = ?", created.ID).Count(&total).Error)
		assert.EqualValues(t, 2, total)
	})

	t.Run("StaleExpectedVersionConflicts", func(t *testing.T) {
		stale := uint(99999)
		nickname := "should-not-apply"
		_, err := clusterService.ApplyUpdate(ctx, created.ID, actor, cluster.UpdatePatch{
			Nickname:          &nickname,
			ExpectedVersionID: &stale,
		})
		assert.True(t, cluster.IsConcurrentModification(err))
	})

	t.Run("IndexAddressingFindsClustersInCreationOrder", func(t *testing.T) {
		second, err := clusterService.Create(ctx, team.ID, cluster.CreateClusterInput{Nickname: "prover-b"})
		require.NoError(t, err)

		first, err := clusterService.FindByTeamAndIndex(ctx, team.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, created.ID, first.ID)

		found, err := clusterService.FindByTeamAndIndex(ctx, team.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)

		_, err = clusterService.FindByTeamAndIndex(ctx, team.ID, 3)
		require.Error(t, err)
	})
}

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ string, _ any) {}
