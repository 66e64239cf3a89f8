package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paperdesk/paperdesk/internal/models"
	"github.com/paperdesk/paperdesk/internal/service"
	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/export"
	"github.com/paperdesk/paperdesk/pkg/response"
	"github.com/paperdesk/paperdesk/pkg/storage"
)

// ReferenceHandler wires HTTP endpoints to the reference service.
type ReferenceHandler struct {
	service *service.ReferenceService
	store   *storage.UploadStore
	excel   *export.ExcelExporter
	csv     *export.CSVExporter
	pdf     *export.PDFExporter

	maxUpload     int64
	publicBaseURL string
}

// NewReferenceHandler creates a new handler.
func NewReferenceHandler(svc *service.ReferenceService, store *storage.UploadStore, maxUpload int64, publicBaseURL string) *ReferenceHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &ReferenceHandler{
		service:       svc,
		store:         store,
		excel:         export.NewExcelExporter(),
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		maxUpload:     maxUpload,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func referenceFilterFromQuery(c *gin.Context) models.ReferenceFilter {
	filter := models.ReferenceFilter{
		Title:           c.Query("title"),
		CategoryID:      queryInt64Ptr(c, "category_id"),
		Keyword:         c.Query("keyword"),
		JournalID:       queryInt64Ptr(c, "journal_id"),
		TeamID:          queryInt64Ptr(c, "team_id"),
		PublicationYear: queryIntPtr(c, "publication_year"),
	}
	filter.Skip, filter.Limit = pageParams(c)
	return filter
}

// Create godoc
// @Summary Create reference
// @Description Create a team or public reference with keyword links
// @Tags References
// @Accept json
// @Produce json
// @Param payload body service.CreateReferenceRequest true "Reference payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /references [post]
func (h *ReferenceHandler) Create(c *gin.Context) {
	actor := userFromContext(c)

	var req service.CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reference payload"))
		return
	}

	reference, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reference)
}

// List godoc
// @Summary List references
// @Description List references from the caller's teams plus public ones
// @Tags References
// @Produce json
// @Param title query string false "Title fragment"
// @Param category_id query int false "Category (descendants included)"
// @Param keyword query string false "Exact keyword"
// @Param journal_id query int false "Journal ID"
// @Param team_id query int false "Restrict to one team"
// @Param publication_year query int false "Publication year"
// @Success 200 {object} response.Envelope
// @Router /references [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	actor := userFromContext(c)

	references, pagination, err := h.service.List(c.Request.Context(), actor, referenceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, references, pagination)
}

// Get godoc
// @Summary Get reference
// @Tags References
// @Produce json
// @Param id path int true "Reference ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /references/{id} [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	reference, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reference, nil)
}

// Update godoc
// @Summary Update reference
// @Description Patch a reference; creator, team admin or superuser
// @Tags References
// @Accept json
// @Produce json
// @Param id path int true "Reference ID"
// @Param payload body service.UpdateReferenceRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /references/{id} [patch]
func (h *ReferenceHandler) Update(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	var req service.UpdateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reference payload"))
		return
	}

	reference, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reference, nil)
}

// Delete godoc
// @Summary Delete reference
// @Description Remove a reference, its links and stored file
// @Tags References
// @Param id path int true "Reference ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /references/{id} [delete]
func (h *ReferenceHandler) Delete(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upload godoc
// @Summary Upload reference PDF
// @Tags References
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Reference ID"
// @Param file formData file true "PDF file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /references/{id}/upload [post]
func (h *ReferenceHandler) Upload(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > h.maxUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	reference, err := h.service.Upload(c.Request.Context(), actor, id, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reference, nil)
}

// Download godoc
// @Summary Download reference PDF
// @Tags References
// @Produce application/pdf
// @Param id path int true "Reference ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /references/{id}/download [get]
func (h *ReferenceHandler) Download(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	relPath, name, err := h.service.File(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(h.store.Path(relPath), name)
}

// DownloadByTitle godoc
// @Summary Download reference PDF by title
// @Description Resolve a download by exact title within the caller's visible scope
// @Tags References
// @Produce application/pdf
// @Param title query string true "Exact title"
// @Param team_id query int false "Restrict to one team"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /references/download/by-title [get]
func (h *ReferenceHandler) DownloadByTitle(c *gin.Context) {
	actor := userFromContext(c)
	title := c.Query("title")
	if title == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "title is required"))
		return
	}

	relPath, name, err := h.service.FileByTitle(c.Request.Context(), actor, title, queryInt64Ptr(c, "team_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(h.store.Path(relPath), name)
}

// DownloadURL godoc
// @Summary Signed download link
// @Tags References
// @Produce json
// @Param id path int true "Reference ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /references/{id}/download-url [get]
func (h *ReferenceHandler) DownloadURL(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reference id"))
		return
	}

	token, expiresAt, err := h.service.DownloadToken(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	data := gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	}
	if h.publicBaseURL != "" {
		data["url"] = fmt.Sprintf("%s/files/download?token=%s", h.publicBaseURL, url.QueryEscape(token))
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Export godoc
// @Summary Export references
// @Description Export the filtered reference list as xlsx (default) or csv
// @Tags References
// @Produce application/octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Router /references/export/excel [get]
func (h *ReferenceHandler) Export(c *gin.Context) {
	actor := userFromContext(c)

	data, err := h.service.ExportDataset(c.Request.Context(), actor, referenceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "pdf" {
		body, err := h.pdf.Render(data, "References")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="references.pdf"`)
		c.Data(http.StatusOK, "application/pdf", body)
		return
	}

	if c.Query("format") == "csv" {
		body, err := h.csv.Render(data)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="references.csv"`)
		c.Data(http.StatusOK, "text/csv", body)
		return
	}

	body, err := h.excel.Render(data, "References")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="references.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}
