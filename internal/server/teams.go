package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createTeamRequest struct {
	Name       string `json:"name"`
	OwnerEmail string `json:"ownerEmail"`
}

// HandleCreateTeam provisions a new workspace on the free plan and returns
// its API token. The token is shown once.
func (s *Server) HandleCreateTeam(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("name", "required", "name is required"))
		return
	}
	if strings.TrimSpace(req.OwnerEmail) == "" {
		AbortWithError(c, newValidationError("ownerEmail", "required", "owner email is required"))
		return
	}

	team, token, err := s.teamSvc.Onboard(c.Request.Context(), req.Name, req.OwnerEmail)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"teamId":   team.ID.String(),
		"slug":     team.Slug,
		"apiToken": token,
		"planName": team.PlanName,
	})
}
