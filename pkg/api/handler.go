// Package api is the public v1 API used by provers. Teams authenticate with
// an API key and address their clusters by per-team index rather than by id.
package api

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/internal/handler"
	"github.com/proofscan/proof-manager/internal/middleware"
	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/model"
	"github.com/proofscan/proof-manager/pkg/proof"
)

func NewHandler(clusterService clusterService, proofService proofService) Handler {
	return Handler{
		clusterService: clusterService,
		proofService:   proofService,
	}
}

type clusterService interface {
	ApplyUpdate(ctx context.Context, clusterID uint, actor cluster.Actor, patch cluster.UpdatePatch) (uint, error)
	FindByTeamAndIndex(ctx context.Context, teamID uint, index uint) (*model.Cluster, error)
	FindAll(ctx context.Context) ([]model.Cluster, error)
}

type proofService interface {
	Queued(ctx context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo) (*model.Proof, error)
	Proving(ctx context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo) (*model.Proof, error)
	Proved(ctx context.Context, teamID uint, clusterIndex uint, block proof.BlockInfo, result proof.ProvedResult) (*model.Proof, error)
	FindRecent(ctx context.Context, limit int) ([]model.Proof, error)
}

type Handler struct {
	clusterService clusterService
	proofService   proofService
}

type UpdateClusterRequest struct {
	Name                *string `json:"name"`
	NumGpus             *uint   `json:"num_gpus"`
	HardwareDescription *string `json:"hardware_description"`
	IsActive            *bool   `json:"is_active"`
	ZkvmVersionID       *uint   `json:"zkvm_version_id"`
	VkPath              *string `json:"vk_path"`
}

// UpdateCluster updates the authenticated team's cluster
func (h Handler) UpdateCluster(c *gin.Context) {
	// swagger:route PATCH /v1/clusters/{index} apiUpdateCluster
	//
	// Update cluster
	//
	// Apply a sparse update to the team's cluster at the given index (1-based,
	// in creation order). Absent fields are left unchanged. A zkVM version or
	// verification key change creates a new cluster version.
	//
	// security:
	//   apiKey:
	//
	// responses:
	//   200: UpdateClusterResponse
	//   400: Error
	//   401: Error
	//   404: Error
	//   409: Error
	//   415: Error
	index, ok := handler.GetPathParameter(c, "index")
	if !ok {
		return
	}

	team, err := middleware.GetTeamFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var request UpdateClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	foundCluster, err := h.clusterService.FindByTeamAndIndex(c.Request.Context(), team.ID, index)
	if err != nil {
		_ = c.Error(err)
		return
	}

	patch := cluster.UpdatePatch{
		Nickname:            request.Name,
		NumGpus:             request.NumGpus,
		HardwareDescription: request.HardwareDescription,
		IsActive:            request.IsActive,
		ZkvmVersionID:       request.ZkvmVersionID,
		VkPath:              request.VkPath,
	}

	versionID, err := h.clusterService.ApplyUpdate(c.Request.Context(), foundCluster.ID, cluster.Actor{TeamID: team.ID}, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cluster_id": foundCluster.ID, "version_id": versionID})
}

// FindAllClusters lists all clusters
func (h Handler) FindAllClusters(c *gin.Context) {
	// swagger:route GET /v1/clusters apiFindAllClusters
	//
	// Find all clusters
	//
	// List the clusters of approved teams with their active version.
	//
	// responses:
	//   200: []Cluster
	//   415: Error
	clusters, err := h.clusterService.FindAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, clusters)
}

type SubmitProofRequest struct {
	BlockNumber    uint64 `json:"block_number" form:"block_number" binding:"required"`
	ClusterIndex   uint   `json:"cluster_index" form:"cluster_index" binding:"required"`
	BlockHash      string `json:"block_hash" form:"block_hash"`
	GasUsed        uint64 `json:"gas_used" form:"gas_used"`
	TxCount        uint   `json:"tx_count" form:"tx_count"`
	BlockTimestamp int64  `json:"block_timestamp" form:"block_timestamp"`
}

func (r SubmitProofRequest) blockInfo() proof.BlockInfo {
	block := proof.BlockInfo{
		Number:  r.BlockNumber,
		Hash:    r.BlockHash,
		GasUsed: r.GasUsed,
		TxCount: r.TxCount,
	}
	if r.BlockTimestamp > 0 {
		block.Timestamp = time.Unix(r.BlockTimestamp, 0).UTC()
	}
	return block
}

// ProofQueued reports a queued proof
func (h Handler) ProofQueued(c *gin.Context) {
	// swagger:route POST /v1/proofs/queued apiProofQueued
	//
	// Report queued proof
	//
	// security:
	//   apiKey:
	//
	// responses:
	//   201: Proof
	//   400: Error
	//   401: Error
	//   404: Error
	//   409: Error
	//   415: Error
	h.submitProof(c, func(ctx context.Context, teamID uint, request SubmitProofRequest) (*model.Proof, error) {
		return h.proofService.Queued(ctx, teamID, request.ClusterIndex, request.blockInfo())
	})
}

// ProofProving reports a proof being worked on
func (h Handler) ProofProving(c *gin.Context) {
	// swagger:route POST /v1/proofs/proving apiProofProving
	//
	// Report proving
	//
	// security:
	//   apiKey:
	//
	// responses:
	//   201: Proof
	//   400: Error
	//   401: Error
	//   404: Error
	//   409: Error
	//   415: Error
	h.submitProof(c, func(ctx context.Context, teamID uint, request SubmitProofRequest) (*model.Proof, error) {
		return h.proofService.Proving(ctx, teamID, request.ClusterIndex, request.blockInfo())
	})
}

func (h Handler) submitProof(c *gin.Context, submit func(ctx context.Context, teamID uint, request SubmitProofRequest) (*model.Proof, error)) {
	team, err := middleware.GetTeamFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var request SubmitProofRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	submitted, err := submit(c.Request.Context(), team.ID, request)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, submitted)
}

type ProvedProofRequest struct {
	SubmitProofRequest
	ProvingTimeMs uint64                `form:"proving_time_ms" binding:"required"`
	ProvingCycles uint64                `form:"proving_cycles"`
	Proof         *multipart.FileHeader `form:"proof"`
}

// ProofProved reports a completed proof
func (h Handler) ProofProved(c *gin.Context) {
	// swagger:route POST /v1/proofs/proved apiProofProved
	//
	// Report proved
	//
	// Report a completed proof with its measurements. The proof binary is
	// uploaded as the multipart file field "proof".
	//
	// security:
	//   apiKey:
	//
	// responses:
	//   201: Proof
	//   400: Error
	//   401: Error
	//   404: Error
	//   409: Error
	//   415: Error
	team, err := middleware.GetTeamFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var request ProvedProofRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	result := proof.ProvedResult{
		ProvingTimeMs: request.ProvingTimeMs,
		ProvingCycles: request.ProvingCycles,
	}
	if request.Proof != nil {
		file, err := request.Proof.Open()
		if err != nil {
			_ = c.Error(errdef.NewBadRequest("failed to open proof file: %v", err))
			return
		}
		defer func() {
			_ = file.Close()
		}()
		result.Proof = file
	}

	submitted, err := h.proofService.Proved(c.Request.Context(), team.ID, request.ClusterIndex, request.blockInfo(), result)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, submitted)
}

// FindRecentProofs lists recently submitted proofs
func (h Handler) FindRecentProofs(c *gin.Context) {
	// swagger:route GET /v1/proofs apiFindRecentProofs
	//
	// Find recent proofs
	//
	// responses:
	//   200: []Proof
	//   415: Error
	proofs, err := h.proofService.FindRecent(c.Request.Context(), 100)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, proofs)
}
