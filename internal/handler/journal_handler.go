package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paperdesk/paperdesk/internal/models"
	"github.com/paperdesk/paperdesk/internal/service"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/response"
)

// JournalHandler wires HTTP endpoints to the journal service.
type JournalHandler struct {
	service *service.JournalService
}

// NewJournalHandler creates a new handler.
func NewJournalHandler(svc *service.JournalService) *JournalHandler {
	return &JournalHandler{service: svc}
}

// Create godoc
// @Summary Create journal
// @Description Add a journal to the catalogue; superuser only
// @Tags Journals
// @Accept json
// @Produce json
// @Param payload body service.JournalRequest true "Journal payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /journals [post]
func (h *JournalHandler) Create(c *gin.Context) {
	actor := userFromContext(c)

	var req service.JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}

	journal, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, journal)
}

// List godoc
// @Summary List journals
// @Tags Journals
// @Produce json
// @Param name query string false "Name fragment"
// @Param grade query string false "Grade tier"
// @Success 200 {object} response.Envelope
// @Router /journals [get]
func (h *JournalHandler) List(c *gin.Context) {
	filter := models.JournalFilter{
		Name:  c.Query("name"),
		Grade: models.JournalGrade(c.Query("grade")),
	}
	filter.Skip, filter.Limit = pageParams(c)

	journals, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journals, pagination)
}

// Search godoc
// @Summary Search journals
// @Description Name search; query must be at least 2 characters
// @Tags Journals
// @Produce json
// @Param q query string true "Name fragment"
// @Param limit query int false "Result cap"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /journals/search [get]
func (h *JournalHandler) Search(c *gin.Context) {
	journals, err := h.service.Search(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journals, nil)
}

// Grades godoc
// @Summary List journal grades
// @Description Grade tiers with their workload base scores
// @Tags Journals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /journals/grades/list [get]
func (h *JournalHandler) Grades(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Grades(), nil)
}

// Get godoc
// @Summary Get journal
// @Tags Journals
// @Produce json
// @Param id path int true "Journal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /journals/{id} [get]
func (h *JournalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid journal id"))
		return
	}

	journal, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journal, nil)
}

// Update godoc
// @Summary Update journal
// @Description Rename or regrade a journal; superuser only
// @Tags Journals
// @Accept json
// @Produce json
// @Param id path int true "Journal ID"
// @Param payload body service.JournalRequest true "Journal payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /journals/{id} [patch]
func (h *JournalHandler) Update(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid journal id"))
		return
	}

	var req service.JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}

	journal, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, journal, nil)
}

// Delete godoc
// @Summary Delete journal
// @Description Remove an unused journal; superuser only
// @Tags Journals
// @Param id path int true "Journal ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /journals/{id} [delete]
func (h *JournalHandler) Delete(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid journal id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
