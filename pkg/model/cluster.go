package model

import (
	"fmt"
	"time"
)

// GPU configuration classes a prover type can be bound to.
const (
	GpuClassSingle = "single-gpu"
	GpuClassMulti  = "multi-gpu"
)

// GpuClassOf derives the GPU configuration class from a GPU count.
func GpuClassOf(numGpus uint) string {
	if numGpus > 1 {
		return GpuClassMulti
	}
	return GpuClassSingle
}

// ProverType classifies a cluster by GPU configuration and deployment shape.
// A team may have at most one active cluster per prover type.
// swagger:model
type ProverType struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"index;unique" json:"name"`
	GpuClass        string `json:"gpuClass"`
	DeploymentShape string `json:"deploymentShape"`
}

// Cluster domain object defining a team's proving setup. Version independent
// attributes live here; the provable configuration lives in the versions.
// swagger:model
type Cluster struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TeamID uint  `gorm:"index" json:"teamId"`
	Team   *Team `json:"team,omitempty"`

	Nickname            string `json:"nickname"`
	Description         string `json:"description"`
	CycleType           string `json:"cycleType"`
	ProofType           string `json:"proofType"`
	HardwareDescription string `json:"hardwareDescription"`
	NumGpus             uint   `json:"numGpus"`

	IsMultiMachine bool `json:"isMultiMachine"`
	IsActive       bool `json:"isActive"`

	ProverTypeID *uint       `json:"proverTypeId"`
	ProverType   *ProverType `json:"proverType,omitempty"`

	Versions []ClusterVersion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"versions,omitempty"`
}

// GpuClass returns the GPU configuration class the cluster currently falls
// into.
func (c *Cluster) GpuClass() string {
	return GpuClassOf(c.NumGpus)
}

// ClusterVersion is an immutable snapshot of a cluster's provable
// configuration. Versions are retained forever; historical proofs are
// attributed to the version active when they were produced. After creation
// only IsActive may change.
// swagger:model
type ClusterVersion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ClusterID uint `gorm:"index:idx_cluster_version,unique" json:"clusterId"`
	Version   uint `gorm:"index:idx_cluster_version,unique" json:"version"`

	ZkvmVersionID uint         `json:"zkvmVersionId"`
	ZkvmVersion   *ZkvmVersion `json:"zkvmVersion,omitempty"`

	VkPath   string `json:"vkPath"`
	IsActive bool   `json:"isActive"`

	Machines []ClusterMachine `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"machines,omitempty"`
}

// Marker renders the version number the way cluster listings display it.
func (v *ClusterVersion) Marker() string {
	return fmt.Sprintf("v0.%d", v.Version)
}

// ClusterMachine maps a hardware spec to a cloud instance SKU for one cluster
// version. The set of machines for a version is fixed at creation time.
// swagger:model
type ClusterMachine struct {
	ID               uint `gorm:"primarykey" json:"id"`
	ClusterVersionID uint `gorm:"index" json:"clusterVersionId"`

	Machine      string `json:"machine"`
	MachineCount uint   `json:"machineCount"`

	CloudInstanceID    uint           `json:"cloudInstanceId"`
	CloudInstance      *CloudInstance `json:"cloudInstance,omitempty"`
	CloudInstanceCount uint           `json:"cloudInstanceCount"`
}
