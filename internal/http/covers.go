package http

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/covers"
)

// CoversController serves uploaded book cover images.
type CoversController struct {
	store *covers.Store
}

// NewCoversController creates a new CoversController.
func NewCoversController(store *covers.Store) *CoversController {
	return &CoversController{store: store}
}

// GetCover serves a stored cover.
// GET /covers/:file
func (cc *CoversController) GetCover(c *gin.Context) {
	path, err := cc.store.Path(c.Param("file"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
