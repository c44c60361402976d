package model

import "time"

// Zkvm is a zero-knowledge virtual machine tracked by the explorer.
// swagger:model
type Zkvm struct {
	ID       uint          `gorm:"primarykey" json:"id"`
	Name     string        `gorm:"index;unique" json:"name"`
	Isa      string        `json:"isa"`
	Versions []ZkvmVersion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"versions,omitempty"`
}

// ZkvmVersion is a released version of a zkVM. Cluster versions reference it
// by id; the catalog is read-only to the versioning core.
// swagger:model
type ZkvmVersion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ZkvmID    uint      `gorm:"index:idx_zkvm_version,unique" json:"zkvmId"`
	Zkvm      *Zkvm     `json:"zkvm,omitempty"`
	Version   string    `gorm:"index:idx_zkvm_version,unique" json:"version"`
}

// CloudInstance is a cloud provider SKU with its pricing, used to validate
// machine assignments and to price proofs. Read-only to the versioning core.
// swagger:model
type CloudInstance struct {
	ID           uint    `gorm:"primarykey" json:"id"`
	Provider     string  `json:"provider"`
	InstanceName string  `gorm:"index;unique" json:"instanceName"`
	Region       string  `json:"region"`
	HourlyPrice  float64 `json:"hourlyPrice"`
	CpuCount     uint    `json:"cpuCount"`
	MemoryGb     uint    `json:"memoryGb"`
	GpuCount     uint    `json:"gpuCount"`
	GpuType      string  `json:"gpuType"`
}
