package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/places-backend-go/internal/photos"
	"github.com/jengzang/places-backend-go/pkg/response"
)

// ImportHandler handles photo import requests
type ImportHandler struct {
	importer *photos.Importer
	photoDir string
}

// NewImportHandler creates a new import handler. photoDir is the default
// directory scanned when the request omits one.
func NewImportHandler(importer *photos.Importer, photoDir string) *ImportHandler {
	return &ImportHandler{importer: importer, photoDir: photoDir}
}

type importRequest struct {
	Directory string `json:"directory"`
}

// PostImport handles POST /api/v1/photos/import
func (h *ImportHandler) PostImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, "Invalid import payload", err)
		return
	}

	dir := req.Directory
	if dir == "" {
		dir = h.photoDir
	}
	if dir == "" {
		response.Error(c, http.StatusBadRequest, "No photo directory configured", nil)
		return
	}

	result, err := h.importer.ImportDirectory(c.Request.Context(), dir)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Photo import failed", err)
		return
	}

	response.Success(c, result)
}
