package handler

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/paperdesk/paperdesk/pkg/errors"
	"github.com/paperdesk/paperdesk/pkg/response"
	"github.com/paperdesk/paperdesk/pkg/storage"
)

// DownloadHandler redeems signed download tokens without requiring a JWT,
// so links can be handed to browsers and external tools.
type DownloadHandler struct {
	signer *storage.DownloadSigner
	store  *storage.UploadStore
}

// NewDownloadHandler creates a new handler.
func NewDownloadHandler(signer *storage.DownloadSigner, store *storage.UploadStore) *DownloadHandler {
	return &DownloadHandler{signer: signer, store: store}
}

// Redeem godoc
// @Summary Redeem a signed download token
// @Description Stream the file referenced by a valid, unexpired token
// @Tags Files
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/download [get]
func (h *DownloadHandler) Redeem(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	if !h.store.Exists(relPath) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file no longer exists"))
		return
	}
	c.FileAttachment(h.store.Path(relPath), filepath.Base(relPath))
}
