package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-lookup/internal/catalog"
	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/services"
)

const maxSearchLimit = 50

type CardHandler struct {
	cardService *services.CardService
	lookupLog   *services.LookupLog
}

func NewCardHandler(cardService *services.CardService, lookupLog *services.LookupLog) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		lookupLog:   lookupLog,
	}
}

// SearchCards returns the best match for q and its alternatives
func (h *CardHandler) SearchCards(c *gin.Context) {
	query, ok := c.GetQuery("q")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = min(n, maxSearchLimit)
	}

	result := h.cardService.FuzzyMatch(c.Request.Context(), query, limit)
	h.lookupLog.Record(query, result)

	c.JSON(http.StatusOK, result)
}

// ResolveCard finds the card for q and returns its details in the requested language
func (h *CardHandler) ResolveCard(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	opts := services.ResolveOptions{
		Language:       requestLanguage(c),
		ForceSecondary: c.Query("jp") == "true" || c.Query("jp") == "1",
	}

	res, err := h.cardService.Resolve(c.Request.Context(), query, opts)
	if err != nil {
		h.lookupLog.Record(query, models.NoMatch())
		writeCardError(c, err)
		return
	}
	h.lookupLog.Record(query, res.Match)

	c.JSON(http.StatusOK, gin.H{
		"detail":     res.Detail,
		"score":      res.Match.Score,
		"tier":       res.Match.Tier,
		"candidates": res.Match.Candidates,
	})
}

// GetCard returns one card by id
func (h *CardHandler) GetCard(c *gin.Context) {
	detail, ok := h.cardDetail(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetCardImage serves the card's image from the scratch directory, downloading it if needed
func (h *CardHandler) GetCardImage(c *gin.Context) {
	detail, ok := h.cardDetail(c)
	if !ok {
		return
	}

	path, err := h.cardService.CardImage(c.Request.Context(), detail)
	if err != nil {
		writeCardError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.File(path)
}

func (h *CardHandler) cardDetail(c *gin.Context) (*models.CardDetail, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card id must be an integer"})
		return nil, false
	}

	if err := h.cardService.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}

	entry, found := h.cardService.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return nil, false
	}

	detail, err := h.cardService.Detail(entry, services.ResolveOptions{Language: requestLanguage(c)}, entry.DisplayName())
	if err != nil {
		writeCardError(c, err)
		return nil, false
	}
	return detail, true
}

// requestLanguage prefers the lang query parameter, then the first Accept-Language tag.
func requestLanguage(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return ""
	}
	first, _, _ := strings.Cut(accept, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}

func writeCardError(c *gin.Context, err error) {
	var statusErr *catalog.HTTPStatusError
	switch {
	case errors.Is(err, services.ErrCardNotFound),
		errors.Is(err, services.ErrCardUnresolved),
		errors.Is(err, services.ErrCardDataUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "image download failed: " + err.Error()})
	case errors.Is(err, catalog.ErrInvalidFileName):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
