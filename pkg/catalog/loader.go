package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/proofscan/proof-manager/pkg/model"
)

// Seed is the on-disk shape of a catalog seed file.
type Seed struct {
	Zkvms []struct {
		Name     string   `yaml:"name"`
		Isa      string   `yaml:"isa"`
		Versions []string `yaml:"versions"`
	} `yaml:"zkvms"`
	CloudInstances []struct {
		Provider     string  `yaml:"provider"`
		InstanceName string  `yaml:"instanceName"`
		Region       string  `yaml:"region"`
		HourlyPrice  float64 `yaml:"hourlyPrice"`
		CpuCount     uint    `yaml:"cpuCount"`
		MemoryGb     uint    `yaml:"memoryGb"`
		GpuCount     uint    `yaml:"gpuCount"`
		GpuType      string  `yaml:"gpuType"`
	} `yaml:"cloudInstances"`
	ProverTypes []struct {
		Name            string `yaml:"name"`
		GpuClass        string `yaml:"gpuClass"`
		DeploymentShape string `yaml:"deploymentShape"`
	} `yaml:"proverTypes"`
}

// LoadSeedFile reads a YAML seed file and upserts its entries. Existing
// entries are updated in place so the loader can be re-run on every deploy.
func (s *service) LoadSeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %v", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %q: %v", path, err)
	}

	for _, z := range seed.Zkvms {
		zkvm := &model.Zkvm{Name: z.Name, Isa: z.Isa}
		if err := s.repository.saveZkvm(ctx, zkvm); err != nil {
			return fmt.Errorf("failed to save zkVM %q: %v", z.Name, err)
		}
		for _, v := range z.Versions {
			version := &model.ZkvmVersion{ZkvmID: zkvm.ID, Version: v}
			if err := s.repository.saveZkvmVersion(ctx, version); err != nil {
				return fmt.Errorf("failed to save zkVM version %q %q: %v", z.Name, v, err)
			}
		}
	}

	for _, i := range seed.CloudInstances {
		instance := &model.CloudInstance{
			Provider:     i.Provider,
			InstanceName: i.InstanceName,
			Region:       i.Region,
			HourlyPrice:  i.HourlyPrice,
			CpuCount:     i.CpuCount,
			MemoryGb:     i.MemoryGb,
			GpuCount:     i.GpuCount,
			GpuType:      i.GpuType,
		}
		if err := s.repository.saveCloudInstance(ctx, instance); err != nil {
			return fmt.Errorf("failed to save cloud instance %q: %v", i.InstanceName, err)
		}
	}

	for _, p := range seed.ProverTypes {
		proverType := &model.ProverType{
			Name:            p.Name,
			GpuClass:        p.GpuClass,
			DeploymentShape: p.DeploymentShape,
		}
		if err := s.repository.saveProverType(ctx, proverType); err != nil {
			return fmt.Errorf("failed to save prover type %q: %v", p.Name, err)
		}
	}

	return nil
}
