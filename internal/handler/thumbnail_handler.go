package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

type thumbnailOpener interface {
	Open(token string) (*os.File, error)
}

// ThumbnailHandler serves generated lesson thumbnails behind signed links.
type ThumbnailHandler struct {
	opener thumbnailOpener
}

// NewThumbnailHandler constructs a thumbnail handler.
func NewThumbnailHandler(opener thumbnailOpener) *ThumbnailHandler {
	return &ThumbnailHandler{opener: opener}
}

// Serve godoc
// @Summary Fetch a generated thumbnail
// @Tags Lessons
// @Produce image/png
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /thumbnails/{token} [get]
func (h *ThumbnailHandler) Serve(c *gin.Context) {
	file, err := h.opener.Open(c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExpiredSignature):
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "thumbnail link expired"))
		case errors.Is(err, storage.ErrInvalidSignature), errors.Is(err, os.ErrNotExist):
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "thumbnail not found"))
		default:
			response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to open thumbnail"))
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to read thumbnail"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "image/png", file, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}
