package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperdesk/paperdesk/internal/service"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/response"
)

// TeamHandler wires HTTP endpoints to the team service.
type TeamHandler struct {
	service *service.TeamService
}

// NewTeamHandler creates a new handler.
func NewTeamHandler(svc *service.TeamService) *TeamHandler {
	return &TeamHandler{service: svc}
}

// Create godoc
// @Summary Create team
// @Description Create a team; the creator is enrolled as OWNER
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body service.CreateTeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	actor := userFromContext(c)

	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid team payload"))
		return
	}

	team, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// List godoc
// @Summary List teams
// @Description List the caller's teams; superusers see every team
// @Tags Teams
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	actor := userFromContext(c)
	skip, limit := pageParams(c)

	teams, pagination, err := h.service.List(c.Request.Context(), actor, skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, pagination)
}

// Get godoc
// @Summary Get team
// @Tags Teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teams/{id} [get]
func (h *TeamHandler) Get(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}

	team, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Update godoc
// @Summary Update team
// @Description Rename or describe a team; team admin required
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param payload body service.UpdateTeamRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id} [patch]
func (h *TeamHandler) Update(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}

	var req service.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid team payload"))
		return
	}

	team, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// Delete godoc
// @Summary Delete team
// @Description Cascade-delete a team; OWNER only
// @Tags Teams
// @Param id path int true "Team ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id} [delete]
func (h *TeamHandler) Delete(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMembers godoc
// @Summary List team members
// @Tags Teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id}/members [get]
func (h *TeamHandler) ListMembers(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// AddMember godoc
// @Summary Add team member
// @Description Enroll a user; admin required; OWNER not grantable
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param payload body service.AddMemberRequest true "Member payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}

	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid member payload"))
		return
	}

	member, err := h.service.AddMember(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateMemberRole godoc
// @Summary Update member role
// @Description Change a member's role; admin required; owner immutable
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param userID path int true "User ID"
// @Param payload body service.UpdateMemberRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id}/members/{userID} [patch]
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}
	userID, ok := pathID(c, "userID")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	var req service.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}

	member, err := h.service.UpdateMemberRole(c.Request.Context(), actor, id, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// RemoveMember godoc
// @Summary Remove team member
// @Description Remove a member; admin required; owner irremovable
// @Tags Teams
// @Param id path int true "Team ID"
// @Param userID path int true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teams/{id}/members/{userID} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid team id"))
		return
	}
	userID, ok := pathID(c, "userID")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), actor, id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
