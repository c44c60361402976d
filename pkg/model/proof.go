package model

import "time"

// Proof lifecycle statuses.
const (
	ProofStatusQueued  = "queued"
	ProofStatusProving = "proving"
	ProofStatusProved  = "proved"
)

// Proof is a team's proof of one Ethereum block, attributed to the cluster
// version that was active when the proof was submitted.
// swagger:model
type Proof struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BlockNumber uint64 `gorm:"index:idx_block_cluster,unique" json:"blockNumber"`
	Block       *Block `gorm:"foreignKey:BlockNumber;references:Number" json:"block,omitempty"`

	ClusterID uint     `gorm:"index:idx_block_cluster,unique" json:"clusterId"`
	Cluster   *Cluster `json:"cluster,omitempty"`

	ClusterVersionID uint            `json:"clusterVersionId"`
	ClusterVersion   *ClusterVersion `json:"clusterVersion,omitempty"`

	Status string `gorm:"index" json:"status"`

	// Filled in when the proof reaches the proved status.
	ProvingTimeMs uint64  `json:"provingTimeMs"`
	ProvingCycles uint64  `json:"provingCycles"`
	ProofPath     string  `json:"proofPath"`
	CostUsd       float64 `json:"costUsd"`

	QueuedAt  *time.Time `json:"queuedAt"`
	ProvingAt *time.Time `json:"provingAt"`
	ProvedAt  *time.Time `json:"provedAt"`
}

// Block is an Ethereum block proofs are reported against.
// swagger:model
type Block struct {
	Number    uint64    `gorm:"primarykey" json:"number"`
	Hash      string    `json:"hash"`
	GasUsed   uint64    `json:"gasUsed"`
	TxCount   uint      `json:"txCount"`
	Timestamp time.Time `json:"timestamp"`
}
