// Package dashboard is the entry point behind the team dashboard's cluster
// settings form. The form posts every field along with an original_* shadow
// of the value it was rendered with; only fields the user actually changed
// enter the update, so untouched inputs can't clobber concurrent edits.
package dashboard

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/internal/handler"
	"github.com/proofscan/proof-manager/pkg/cluster"
	"github.com/proofscan/proof-manager/pkg/model"
)

func NewHandler(clusterService clusterService) Handler {
	return Handler{
		clusterService: clusterService,
	}
}

type clusterService interface {
	ApplyUpdate(ctx context.Context, clusterID uint, actor cluster.Actor, patch cluster.UpdatePatch) (uint, error)
	FindAllByTeam(ctx context.Context, teamID uint) ([]model.Cluster, error)
}

type Handler struct {
	clusterService clusterService
}

// UpdateCluster handles the cluster settings form
func (h Handler) UpdateCluster(c *gin.Context) {
	// swagger:route POST /dashboard/clusters/{id} dashboardUpdateCluster
	//
	// Update cluster
	//
	// Form action for the cluster settings page. Each field is accompanied by
	// an original_* shadow holding the value the form was rendered with; a
	// field is applied only when it differs from its shadow.
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

	user, err := handler.GetUserFromContext(c.Request.Context())
	if err != nil {
		_ = c.Error(errdef.NewUnauthorized("%v", err))
		return
	}

	patch, err := formPatch(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	actor := cluster.Actor{TeamID: user.TeamID, Admin: user.Admin}
	versionID, err := h.clusterService.ApplyUpdate(c.Request.Context(), id, actor, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cluster_id": id, "version_id": versionID})
}

// FindAllClusters lists the user's team clusters
func (h Handler) FindAllClusters(c *gin.Context) {
	// swagger:route GET /dashboard/clusters dashboardFindAllClusters
	//
	// Find team clusters
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: []Cluster
	//   401: Error
	//   415: Error
	user, err := handler.GetUserFromContext(c.Request.Context())
	if err != nil {
		_ = c.Error(errdef.NewUnauthorized("%v", err))
		return
	}

	clusters, err := h.clusterService.FindAllByTeam(c.Request.Context(), user.TeamID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, clusters)
}

func formPatch(c *gin.Context) (cluster.UpdatePatch, error) {
	var patch cluster.UpdatePatch

	patch.Nickname = changedField(c, "name")
	patch.HardwareDescription = changedField(c, "hardware_description")
	patch.VkPath = changedField(c, "vk_path")

	numGpus, err := changedUintField(c, "num_gpus")
	if err != nil {
		return patch, err
	}
	patch.NumGpus = numGpus

	zkvmVersionID, err := changedUintField(c, "zkvm_version_id")
	if err != nil {
		return patch, err
	}
	patch.ZkvmVersionID = zkvmVersionID

	isActive, err := changedBoolField(c, "is_active")
	if err != nil {
		return patch, err
	}
	patch.IsActive = isActive

	return patch, nil
}

// changedField returns the posted value of a form field, or nil when the
// field is absent or equal to its original_* shadow.
func changedField(c *gin.Context, field string) *string {
	value, ok := c.GetPostForm(field)
	if !ok {
		return nil
	}

	original, hasOriginal := c.GetPostForm("original_" + field)
	if hasOriginal && original == value {
		return nil
	}

	return &value
}

func changedUintField(c *gin.Context, field string) (*uint, error) {
	value := changedField(c, field)
	if value == nil {
		return nil, nil
	}

	parsed, err := strconv.ParseUint(*value, 10, 32)
	if err != nil {
		return nil, errdef.NewBadRequest("field %q is not a number: %v", field, err)
	}

	result := uint(parsed)
	return &result, nil
}

func changedBoolField(c *gin.Context, field string) (*bool, error) {
	value := changedField(c, field)
	if value == nil {
		return nil, nil
	}

	parsed, err := strconv.ParseBool(*value)
	if err != nil {
		return nil, errdef.NewBadRequest("field %q is not a boolean: %v", field, err)
	}

	return &parsed, nil
}
