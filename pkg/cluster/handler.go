package cluster

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/proofscan/proof-manager/internal/handler"
)

func NewHandler(clusterService *service) Handler {
	return Handler{
		clusterService: clusterService,
	}
}

type Handler struct {
	clusterService *service
}

// ConfigurationEntry is one machine line of a requested configuration.
type ConfigurationEntry struct {
	Machine            string `json:"machine" binding:"required"`
	MachineCount       uint   `json:"machine_count" binding:"required,min=1"`
	CloudInstanceName  string `json:"cloud_instance_name" binding:"required"`
	CloudInstanceCount uint   `json:"cloud_instance_count" binding:"required,min=1"`
}

func configurationSpecs(entries []ConfigurationEntry) []MachineSpec {
	if entries == nil {
		return nil
	}
	specs := make([]MachineSpec, len(entries))
	for i, entry := range entries {
		specs[i] = MachineSpec{
			Machine:            entry.Machine,
			MachineCount:       entry.MachineCount,
			CloudInstanceName:  entry.CloudInstanceName,
			CloudInstanceCount: entry.CloudInstanceCount,
		}
	}
	return specs
}

type CreateClusterRequest struct {
	TeamID              uint                 `json:"team_id" binding:"required"`
	Nickname            string               `json:"nickname" binding:"required"`
	Description         string               `json:"description"`
	CycleType           string               `json:"cycle_type"`
	ProofType           string               `json:"proof_type"`
	HardwareDescription string               `json:"hardware_description"`
	NumGpus             uint                 `json:"num_gpus"`
	ProverTypeID        *uint                `json:"prover_type_id"`
	ZkvmVersionID       uint                 `json:"zkvm_version_id"`
	VkPath              string               `json:"vk_path"`
	Configuration       []ConfigurationEntry `json:"configuration"`
}

// Create cluster
func (h Handler) Create(c *gin.Context) {
	// swagger:route POST /clusters clusterCreate
	//
	// Create cluster
	//
	// Register a cluster for a team, optionally with its first configuration
	// version.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: Cluster
	//   400: Error
	//   401: Error
	//   415: Error
	var request CreateClusterRequest

	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	cluster, err := h.clusterService.Create(c.Request.Context(), request.TeamID, CreateClusterInput{
		Nickname:            request.Nickname,
		Description:         request.Description,
		CycleType:           request.CycleType,
		ProofType:           request.ProofType,
		HardwareDescription: request.HardwareDescription,
		NumGpus:             request.NumGpus,
		ProverTypeID:        request.ProverTypeID,
		ZkvmVersionID:       request.ZkvmVersionID,
		VkPath:              request.VkPath,
		Configuration:       configurationSpecs(request.Configuration),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cluster)
}

type UpdateClusterRequest struct {
	Nickname          *string              `json:"nickname"`
	Description       *string              `json:"description"`
	CycleType         *string              `json:"cycle_type"`
	ProofType         *string              `json:"proof_type"`
	ZkvmVersionID     *uint                `json:"zkvm_version_id"`
	Configuration     []ConfigurationEntry `json:"configuration"`
	ExpectedVersionID *uint                `json:"expected_version_id"`
}

// Update cluster
func (h Handler) Update(c *gin.Context) {
	// swagger:route PUT /clusters/{id} clusterUpdate
	//
	// Update cluster
	//
	// Apply a sparse update. Absent fields are left unchanged. A change to
	// the zkVM version or the machine configuration creates a new cluster
	// version; everything else mutates the cluster in place.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: UpdateClusterResponse
	//   400: Error
	//   401: Error
	//   404: Error
	//   409: Error
	//   415: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	var request UpdateClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	patch := UpdatePatch{
		Nickname:          request.Nickname,
		Description:       request.Description,
		CycleType:         request.CycleType,
		ProofType:         request.ProofType,
		ZkvmVersionID:     request.ZkvmVersionID,
		Configuration:     configurationSpecs(request.Configuration),
		ExpectedVersionID: request.ExpectedVersionID,
	}

	// the internal endpoint is trusted and may update any team's cluster
	versionID, err := h.clusterService.ApplyUpdate(c.Request.Context(), id, Actor{Admin: true}, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cluster_id": id, "version_id": versionID})
}

// FindAll clusters
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /clusters findAllClusters
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

// Find cluster by id
func (h Handler) Find(c *gin.Context) {
	// swagger:route GET /clusters/{id} findClusterById
	//
	// Find cluster
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: Cluster
	//   401: Error
	//   404: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	cluster, err := h.clusterService.Find(c.Request.Context(), id, Actor{Admin: true})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cluster)
}
