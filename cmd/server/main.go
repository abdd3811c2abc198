package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/card-lookup/internal/api"
	"github.com/codyseavey/card-lookup/internal/config"
	"github.com/codyseavey/card-lookup/internal/database"
	"github.com/codyseavey/card-lookup/internal/services"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Lookup history is optional; an empty DB_PATH disables it
	lookupLog := services.NewLookupLog(nil)
	if cfg.DBPath != "" {
		if err := database.Initialize(cfg.DBPath); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		lookupLog = services.NewLookupLog(database.GetDB())
	} else {
		log.Println("Lookup log disabled: DB_PATH is empty")
	}

	cardAPI := services.NewYGOProDeckClient(cfg.CardAPIBaseURL, cfg.CardAPITimeout, cfg.CardAPIRateLimit)
	cardService := services.NewCardService(cardAPI, services.CardServiceConfig{
		ScratchDir:      cfg.ScratchDir,
		ImageRetention:  cfg.ImageRetention,
		RebuildInterval: cfg.IndexRebuildInterval,
		MatchCacheSize:  cfg.MatchCacheSize,
	})
	if err := cardService.EnsureScratchDir(); err != nil {
		log.Printf("Warning: %v", err)
	}

	janitor := services.NewCacheJanitor(cardService, cfg.JanitorInterval)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm the catalog and index in the background; queries before it
	// finishes see whatever has loaded so far
	go func() {
		start := time.Now()
		if err := cardService.Warm(ctx); err != nil {
			log.Printf("Warning: catalog warmup interrupted: %v", err)
			return
		}
		status := cardService.Status()
		log.Printf("Catalog ready in %s: %d entries, index size %d",
			time.Since(start).Round(time.Millisecond), status.Entries, status.IndexSize)
	}()

	// Start the scratch directory janitor with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in cache janitor: %v - restarting in 30 seconds", r)
					}
				}()
				janitor.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
				log.Println("Cache janitor restarting after panic recovery...")
			}
		}
	}()

	router := api.SetupRouter(api.RouterConfig{CORSAllowedOrigins: cfg.CORSAllowedOrigins}, cardService, lookupLog, janitor)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the janitor and any in-flight catalog load
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	lookupLog.Wait()
	log.Println("Server exited")
}
