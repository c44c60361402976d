package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/model"
)

func TestLoadSeedFile(t *testing.T) {
	seed := `
zkvms:
  - name: sp1
    isa: riscv32im
    versions:
      - 4.0.0
      - 4.1.0

cloudInstances:
  - provider: aws
    instanceName: g6.12xlarge
    region: us-east-1
    hourlyPrice: 4.6016
    cpuCount: 48
    memoryGb: 192
    gpuCount: 4
    gpuType: L4

proverTypes:
  - name: single-gpu
    gpuClass: single-gpu
    deploymentShape: single-machine
`
	path := filepath.Join(t.TempDir(), "catalogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	repo := &fakeRepository{}
	svc := NewService(repo)

	err := svc.LoadSeedFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, repo.zkvms, 1)
	assert.Equal(t, "sp1", repo.zkvms[0].Name)
	assert.Equal(t, "riscv32im", repo.zkvms[0].Isa)
	require.Len(t, repo.zkvmVersions, 2)
	assert.Equal(t, repo.zkvms[0].ID, repo.zkvmVersions[0].ZkvmID, "versions must reference their zkVM")
	assert.Equal(t, "4.0.0", repo.zkvmVersions[0].Version)
	assert.Equal(t, "4.1.0", repo.zkvmVersions[1].Version)
	require.Len(t, repo.cloudInstances, 1)
	assert.Equal(t, "g6.12xlarge", repo.cloudInstances[0].InstanceName)
	assert.InDelta(t, 4.6016, repo.cloudInstances[0].HourlyPrice, 1e-9)
	require.Len(t, repo.proverTypes, 1)
	assert.Equal(t, model.GpuClassSingle, repo.proverTypes[0].GpuClass)
}

func TestLoadSeedFileMissingFile(t *testing.T) {
	svc := NewService(&fakeRepository{})

	err := svc.LoadSeedFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))

	require.ErrorContains(t, err, "failed to read seed file")
}

type fakeRepository struct {
	zkvms          []*model.Zkvm
	zkvmVersions   []*model.ZkvmVersion
	cloudInstances []*model.CloudInstance
	proverTypes    []*model.ProverType
	nextID         uint
}

func (f *fakeRepository) findZkvmVersion(_ context.Context, id uint) (*model.ZkvmVersion, error) {
	for _, version := range f.zkvmVersions {
		if version.ID == id {
			return version, nil
		}
	}
	return nil, errdef.NewNotFound("zkVM version %d doesn't exist", id)
}

func (f *fakeRepository) findAllZkvms(_ context.Context) ([]model.Zkvm, error) {
	var zkvms []model.Zkvm
	for _, zkvm := range f.zkvms {
		zkvms = append(zkvms, *zkvm)
	}
	return zkvms, nil
}

func (f *fakeRepository) findCloudInstancesByName(_ context.Context, names []string) ([]model.CloudInstance, error) {
	var instances []model.CloudInstance
	for _, instance := range f.cloudInstances {
		for _, name := range names {
			if instance.InstanceName == name {
				instances = append(instances, *instance)
			}
		}
	}
	return instances, nil
}

func (f *fakeRepository) findAllCloudInstances(_ context.Context) ([]model.CloudInstance, error) {
	var instances []model.CloudInstance
	for _, instance := range f.cloudInstances {
		instances = append(instances, *instance)
	}
	return instances, nil
}

func (f *fakeRepository) findProverType(_ context.Context, id uint) (*model.ProverType, error) {
	for _, proverType := range f.proverTypes {
		if proverType.ID == id {
			return proverType, nil
		}
	}
	return nil, errdef.NewNotFound("prover type %d doesn't exist", id)
}

func (f *fakeRepository) saveZkvm(_ context.Context, zkvm *model.Zkvm) error {
	f.nextID++
	zkvm.ID = f.nextID
	f.zkvms = append(f.zkvms, zkvm)
	return nil
}

func (f *fakeRepository) saveZkvmVersion(_ context.Context, version *model.ZkvmVersion) error {
	f.nextID++
	version.ID = f.nextID
	f.zkvmVersions = append(f.zkvmVersions, version)
	return nil
}

func (f *fakeRepository) saveCloudInstance(_ context.Context, instance *model.CloudInstance) error {
	f.nextID++
	instance.ID = f.nextID
	f.cloudInstances = append(f.cloudInstances, instance)
	return nil
}

func (f *fakeRepository) saveProverType(_ context.Context, proverType *model.ProverType) error {
	f.nextID++
	proverType.ID = f.nextID
	f.proverTypes = append(f.proverTypes, proverType)
	return nil
}
