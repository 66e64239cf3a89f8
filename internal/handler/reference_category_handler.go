package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperdesk/paperdesk/internal/service"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/response"
)

// ReferenceCategoryHandler wires HTTP endpoints to the per-team reference
// category service.
type ReferenceCategoryHandler struct {
	service *service.ReferenceCategoryService
}

// NewReferenceCategoryHandler creates a new handler.
func NewReferenceCategoryHandler(svc *service.ReferenceCategoryService) *ReferenceCategoryHandler {
	return &ReferenceCategoryHandler{service: svc}
}

// List godoc
// @Summary List reference categories
// @Description List a team's reference categories; membership required
// @Tags ReferenceCategories
// @Produce json
// @Param team_id query int true "Team ID"
// @Param include_stats query bool false "Attach recursive reference counts"
// @Param parent_id query int false "Direct children of this node"
// @Param roots_only query bool false "Only root nodes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reference-categories [get]
func (h *ReferenceCategoryHandler) List(c *gin.Context) {
	actor := userFromContext(c)
	teamID := queryInt64Ptr(c, "team_id")
	if teamID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "team_id is required"))
		return
	}

	categories, err := h.service.List(c.Request.Context(), actor, *teamID, queryInt64Ptr(c, "parent_id"), queryBool(c, "roots_only"), queryBool(c, "include_stats"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Get reference category
// @Tags ReferenceCategories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reference-categories/{id} [get]
func (h *ReferenceCategoryHandler) Get(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category id"))
		return
	}

	category, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Descendants godoc
// @Summary Reference category descendants
// @Tags ReferenceCategories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /reference-categories/{id}/descendants [get]
func (h *ReferenceCategoryHandler) Descendants(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category id"))
		return
	}

	ids, err := h.service.DescendantIDs(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"category_ids": ids}, nil)
}

// Ancestors godoc
// @Summary Reference category ancestors
// @Tags ReferenceCategories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /reference-categories/{id}/ancestors [get]
func (h *ReferenceCategoryHandler) Ancestors(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category id"))
		return
	}

	ids, err := h.service.AncestorIDs(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"category_ids": ids}, nil)
}

// Create godoc
// @Summary Create reference category
// @Description Add a node to a team's tree; team admin required
// @Tags ReferenceCategories
// @Accept json
// @Produce json
// @Param payload body service.ReferenceCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reference-categories [post]
func (h *ReferenceCategoryHandler) Create(c *gin.Context) {
	actor := userFromContext(c)

	var req service.ReferenceCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update reference category
// @Description Rename or re-parent within the same team; team admin required
// @Tags ReferenceCategories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param payload body service.UpdateReferenceCategoryRequest true "Category patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reference-categories/{id} [patch]
func (h *ReferenceCategoryHandler) Update(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category id"))
		return
	}

	var req service.UpdateReferenceCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete reference category
// @Description Remove an empty leaf node; team admin required
// @Tags ReferenceCategories
// @Param id path int true "Category ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reference-categories/{id} [delete]
func (h *ReferenceCategoryHandler) Delete(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
