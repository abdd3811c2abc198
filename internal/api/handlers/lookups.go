package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-lookup/internal/services"
)

type LookupHandler struct {
	lookupLog *services.LookupLog
}

func NewLookupHandler(lookupLog *services.LookupLog) *LookupHandler {
	return &LookupHandler{lookupLog: lookupLog}
}

// GetRecentLookups returns the most recent searches, newest first
func (h *LookupHandler) GetRecentLookups(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.lookupLog.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled": h.lookupLog.Enabled(),
		"lookups": records,
	})
}
