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

const defaultMaxUploadBytes = 50 << 20

// PaperHandler wires HTTP endpoints to the paper service.
type PaperHandler struct {
	service *service.PaperService
	store   *storage.UploadStore
	excel   *export.ExcelExporter
	csv     *export.CSVExporter
	pdf     *export.PDFExporter

	maxUpload     int64
	publicBaseURL string
}

// NewPaperHandler creates a new handler.
func NewPaperHandler(svc *service.PaperService, store *storage.UploadStore, maxUpload int64, publicBaseURL string) *PaperHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &PaperHandler{
		service:       svc,
		store:         store,
		excel:         export.NewExcelExporter(),
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		maxUpload:     maxUpload,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func paperFilterFromQuery(c *gin.Context) models.PaperFilter {
	filter := models.PaperFilter{
		Title:      c.Query("title"),
		CategoryID: queryInt64Ptr(c, "category_id"),
		AuthorName: c.Query("author_name"),
		Keyword:    c.Query("keyword"),
		JournalID:  queryInt64Ptr(c, "journal_id"),
		TeamID:     queryInt64Ptr(c, "team_id"),
		DateFrom:   queryDate(c, "date_from"),
		DateTo:     queryDate(c, "date_to"),
	}
	filter.Skip, filter.Limit = pageParams(c)
	return filter
}

// Create godoc
// @Summary Create paper
// @Description Create a paper with author and keyword links
// @Tags Papers
// @Accept json
// @Produce json
// @Param payload body service.CreatePaperRequest true "Paper payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /papers [post]
func (h *PaperHandler) Create(c *gin.Context) {
	actor := userFromContext(c)

	var req service.CreatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid paper payload"))
		return
	}

	paper, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paper)
}

// List godoc
// @Summary List papers
// @Description List papers visible to the caller with filters
// @Tags Papers
// @Produce json
// @Param title query string false "Title fragment"
// @Param category_id query int false "Category (descendants included)"
// @Param author_name query string false "Exact author name"
// @Param keyword query string false "Exact keyword"
// @Param journal_id query int false "Journal ID"
// @Param team_id query int false "Restrict to one team"
// @Param date_from query string false "Publication date lower bound (YYYY-MM-DD)"
// @Param date_to query string false "Publication date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	actor := userFromContext(c)

	papers, pagination, err := h.service.List(c.Request.Context(), actor, paperFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, pagination)
}

// Get godoc
// @Summary Get paper
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}

	paper, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Update godoc
// @Summary Update paper
// @Description Patch a paper; creator or superuser only
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path int true "Paper ID"
// @Param payload body service.UpdatePaperRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /papers/{id} [patch]
func (h *PaperHandler) Update(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}

	var req service.UpdatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid paper payload"))
		return
	}

	paper, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Delete godoc
// @Summary Delete paper
// @Description Remove a paper, its links and stored file
// @Tags Papers
// @Param id path int true "Paper ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /papers/{id} [delete]
func (h *PaperHandler) Delete(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upload godoc
// @Summary Upload paper PDF
// @Description Store the paper's PDF, replacing any prior file
// @Tags Papers
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Paper ID"
// @Param file formData file true "PDF file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /papers/{id}/upload [post]
func (h *PaperHandler) Upload(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
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

	paper, err := h.service.Upload(c.Request.Context(), actor, id, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Download godoc
// @Summary Download paper PDF
// @Tags Papers
// @Produce application/pdf
// @Param id path int true "Paper ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /papers/{id}/download [get]
func (h *PaperHandler) Download(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
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
// @Summary Download paper PDF by title
// @Description Resolve a download by exact title within the caller's teams
// @Tags Papers
// @Produce application/pdf
// @Param title query string true "Exact title"
// @Param team_id query int false "Restrict to one team"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /papers/download/by-title [get]
func (h *PaperHandler) DownloadByTitle(c *gin.Context) {
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
// @Description Issue a time-limited signed token for the paper's file
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id}/download-url [get]
func (h *PaperHandler) DownloadURL(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
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

// Workload godoc
// @Summary Paper workload
// @Description Per-author workload rows for one paper
// @Tags Papers
// @Produce json
// @Param id path int true "Paper ID"
// @Success 200 {object} response.Envelope
// @Router /papers/{id}/workload [get]
func (h *PaperHandler) Workload(c *gin.Context) {
	actor := userFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paper id"))
		return
	}

	entries, err := h.service.Workload(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ListAuthors godoc
// @Summary List authors
// @Description The global author registry, optionally filtered by a name substring
// @Tags Papers
// @Produce json
// @Param search query string false "Name substring"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /papers/authors [get]
func (h *PaperHandler) ListAuthors(c *gin.Context) {
	skip, limit := pageParams(c)
	authors, pagination, err := h.service.Authors(c.Request.Context(), c.Query("search"), skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, authors, pagination)
}

// GetAuthor godoc
// @Summary Get author
// @Tags Papers
// @Produce json
// @Param author_id path int true "Author ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/authors/{author_id} [get]
func (h *PaperHandler) GetAuthor(c *gin.Context) {
	id, ok := pathID(c, "author_id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author id"))
		return
	}
	author, err := h.service.Author(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, author, nil)
}

// AuthorWorkload godoc
// @Summary Author workload by name
// @Description An author's papers with per-paper and summed workload
// @Tags Papers
// @Produce json
// @Param name query string true "Author name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/authors/workload/by-name [get]
func (h *PaperHandler) AuthorWorkload(c *gin.Context) {
	actor := userFromContext(c)
	name := c.Query("name")
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name is required"))
		return
	}

	workload, err := h.service.AuthorWorkloadByName(c.Request.Context(), actor, name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload, nil)
}

// CollaborationNetwork godoc
// @Summary Co-authorship network
// @Description Nodes and weighted edges of the co-authorship graph
// @Tags Papers
// @Produce json
// @Param team_id query int false "Restrict to one team"
// @Success 200 {object} response.Envelope
// @Router /papers/authors/collaboration-network [get]
func (h *PaperHandler) CollaborationNetwork(c *gin.Context) {
	actor := userFromContext(c)

	network, err := h.service.CollaborationNetwork(c.Request.Context(), actor, queryInt64Ptr(c, "team_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, network, nil)
}

// Export godoc
// @Summary Export papers
// @Description Export the filtered paper list as xlsx (default) or csv
// @Tags Papers
// @Produce application/octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Router /papers/export/excel [get]
func (h *PaperHandler) Export(c *gin.Context) {
	actor := userFromContext(c)

	data, err := h.service.ExportDataset(c.Request.Context(), actor, paperFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "pdf" {
		body, err := h.pdf.Render(data, "Papers")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="papers.pdf"`)
		c.Data(http.StatusOK, "application/pdf", body)
		return
	}

	if c.Query("format") == "csv" {
		body, err := h.csv.Render(data)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="papers.csv"`)
		c.Data(http.StatusOK, "text/csv", body)
		return
	}

	body, err := h.excel.Render(data, "Papers")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="papers.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}
