package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-lookup/internal/services"
)

type CatalogHandler struct {
	cardService *services.CardService
	janitor     *services.CacheJanitor
}

func NewCatalogHandler(cardService *services.CardService, janitor *services.CacheJanitor) *CatalogHandler {
	return &CatalogHandler{
		cardService: cardService,
		janitor:     janitor,
	}
}

// GetCatalogStatus returns the catalog load state and index size
func (h *CatalogHandler) GetCatalogStatus(c *gin.Context) {
	status := h.cardService.Status()

	resp := gin.H{
		"catalog":     status,
		"scratch_dir": h.cardService.ScratchDir(),
	}
	if h.janitor != nil {
		if lastRun, removed := h.janitor.LastRun(); !lastRun.IsZero() {
			resp["last_prune"] = gin.H{"at": lastRun, "removed": removed}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// PruneImages removes expired images now
func (h *CatalogHandler) PruneImages(c *gin.Context) {
	var removed int
	if h.janitor != nil {
		removed = h.janitor.RunOnce(c.Request.Context())
	} else {
		removed = h.cardService.PruneImages(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
