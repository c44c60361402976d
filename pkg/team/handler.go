package team

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/proofscan/proof-manager/internal/handler"
)

func NewHandler(teamService *service) Handler {
	return Handler{
		teamService: teamService,
	}
}

type Handler struct {
	teamService *service
}

type CreateTeamRequest struct {
	Name    string `json:"name" binding:"required"`
	Website string `json:"website"`
	LogoUrl string `json:"logoUrl"`
}

// Create team
func (h Handler) Create(c *gin.Context) {
	// swagger:route POST /teams teamCreate
	//
	// Create team
	//
	// Register a proving team. Teams stay unapproved until an administrator
	// reviews them.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: Team
	//   400: Error
	//   401: Error
	//   403: Error
	//   415: Error
	var request CreateTeamRequest

	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), request.Name, request.Website, request.LogoUrl)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, team)
}

// FindAll teams
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /teams findAllTeams
	//
	// Find all teams
	//
	// responses:
	//   200: []Team
	//   401: Error
	//   415: Error
	//
	// security:
	//   oauth2:
	teams, err := h.teamService.FindAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, teams)
}

// Approve team
func (h Handler) Approve(c *gin.Context) {
	// swagger:route PUT /teams/{id}/approve approveTeam
	//
	// Approve team
	//
	// Mark a team as reviewed by an administrator.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: Team
	//   401: Error
	//   403: Error
	//   404: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	team, err := h.teamService.Approve(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, team)
}

// CreateApiKey mints an API key for a team
func (h Handler) CreateApiKey(c *gin.Context) {
	// swagger:route POST /teams/{id}/api-keys createApiKey
	//
	// Create API key
	//
	// Mint a new API key for the team. The key is only shown once.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: ApiKey
	//   401: Error
	//   403: Error
	//   404: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	if _, err := h.teamService.Find(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	key, err := h.teamService.CreateApiKey(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key})
}
