package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewHandler(catalogService *service) Handler {
	return Handler{
		catalogService: catalogService,
	}
}

type Handler struct {
	catalogService *service
}

// FindAllZkvms lists the zkVMs with their versions
func (h Handler) FindAllZkvms(c *gin.Context) {
	// swagger:route GET /zkvms findAllZkvms
	//
	// Find all zkVMs
	//
	// responses:
	//   200: []Zkvm
	//   415: Error
	zkvms, err := h.catalogService.FindAllZkvms(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, zkvms)
}

// FindAllCloudInstances lists the cloud instance SKUs
func (h Handler) FindAllCloudInstances(c *gin.Context) {
	// swagger:route GET /cloud-instances findAllCloudInstances
	//
	// Find all cloud instances
	//
	// responses:
	//   200: []CloudInstance
	//   415: Error
	instances, err := h.catalogService.FindAllCloudInstances(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, instances)
}
