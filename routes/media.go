package routes

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"servicesync-server/media"
	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterMediaRoutes serves images for stores that keep their own files.
// Images are public so that request listings can embed them.
func (h *Handler) RegisterMediaRoutes(rg *gin.RouterGroup) {
	rg.GET("/media/:id", h.downloadMedia)
}

func (h *Handler) downloadMedia(c *gin.Context) {
	downloader, ok := h.Media.(media.Downloader)
	if !ok {
		utils.RespondError(c, services.ErrNotFound)
		return
	}

	reader, name, err := downloader.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			utils.RespondError(c, services.ErrNotFound)
			return
		}
		utils.RespondError(c, err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}
