package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/card-lookup/internal/api/handlers"
	"github.com/codyseavey/card-lookup/internal/metrics"
	"github.com/codyseavey/card-lookup/internal/services"
)

// RouterConfig carries the router settings resolved by the caller.
type RouterConfig struct {
	CORSAllowedOrigins []string
}

func SetupRouter(cfg RouterConfig, cardService *services.CardService, lookupLog *services.LookupLog, janitor *services.CacheJanitor) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow configured origins or the local dev defaults
	config := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		config.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(requestMetrics())

	cardHandler := handlers.NewCardHandler(cardService, lookupLog)
	catalogHandler := handlers.NewCatalogHandler(cardService, janitor)
	lookupHandler := handlers.NewLookupHandler(lookupLog)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/resolve", cardHandler.ResolveCard)
			cards.GET("/:id", cardHandler.GetCard)
			cards.GET("/:id/image", cardHandler.GetCardImage)
		}

		catalogRoutes := api.Group("/catalog")
		{
			catalogRoutes.GET("/status", catalogHandler.GetCatalogStatus)
			catalogRoutes.POST("/prune", catalogHandler.PruneImages)
		}

		api.GET("/lookups/recent", lookupHandler.GetRecentLookups)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// requestMetrics records request counts and latency per route template.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
