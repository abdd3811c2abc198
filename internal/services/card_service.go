package services

import (
	"context"
	"time"

	"github.com/codyseavey/card-lookup/internal/catalog"
	"github.com/codyseavey/card-lookup/internal/match"
	"github.com/codyseavey/card-lookup/internal/models"
)

// CardProvider supplies both the card lists and the card images.
type CardProvider interface {
	catalog.RecordProvider
	catalog.BinaryProvider
}

// CardServiceConfig holds the tunables of a CardService. Zero values select
// the package defaults.
type CardServiceConfig struct {
	ScratchDir      string
	ImageRetention  time.Duration
	RebuildInterval time.Duration
	MatchCacheSize  int
	Clock           func() time.Time
}

// CardService owns one catalog and the match engine over it. Everything the
// HTTP handlers and the CLI do with cards goes through it.
type CardService struct {
	store  *catalog.Store
	engine *match.Engine
}

// NewCardService creates a service whose catalog is loaded on first use.
func NewCardService(provider CardProvider, cfg CardServiceConfig) *CardService {
	var storeOpts []catalog.StoreOption
	if cfg.ImageRetention > 0 {
		storeOpts = append(storeOpts, catalog.WithImageRetention(cfg.ImageRetention))
	}
	if cfg.Clock != nil {
		storeOpts = append(storeOpts, catalog.WithClock(cfg.Clock))
	}

	var records catalog.RecordProvider
	var binaries catalog.BinaryProvider
	if provider != nil {
		records, binaries = provider, provider
	}
	store := catalog.NewStore(records, binaries, cfg.ScratchDir, storeOpts...)

	engine := match.NewEngine(store, match.Options{
		RebuildInterval: cfg.RebuildInterval,
		CacheSize:       cfg.MatchCacheSize,
		Clock:           cfg.Clock,
	})

	return &CardService{store: store, engine: engine}
}

// Load fetches and merges the catalog once.
func (s *CardService) Load(ctx context.Context) error {
	return s.store.Load(ctx)
}

// Warm loads the catalog and builds the match index ahead of the first query.
func (s *CardService) Warm(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	s.engine.Warm(ctx)
	return nil
}

// All returns the merged catalog in iteration order.
func (s *CardService) All() []*models.MergedEntry {
	return s.store.All()
}

// Get returns the catalog entry with the given id.
func (s *CardService) Get(id int) (*models.MergedEntry, bool) {
	return s.store.Get(id)
}

// FetchAndCacheImage downloads sourceURL into the scratch directory as
// destName and returns the written path.
func (s *CardService) FetchAndCacheImage(ctx context.Context, sourceURL, destName string) (string, error) {
	return s.store.FetchAndCacheImage(ctx, sourceURL, destName)
}

// FuzzyMatch resolves a free-text query to the best catalog entry.
func (s *CardService) FuzzyMatch(ctx context.Context, query string, limit int) models.MatchResult {
	return s.engine.FuzzyMatch(ctx, query, limit)
}

// PruneImages removes expired images from the scratch directory.
func (s *CardService) PruneImages(ctx context.Context) int {
	return s.store.Prune(ctx)
}

// EnsureScratchDir creates the image scratch directory.
func (s *CardService) EnsureScratchDir() error {
	return s.store.EnsureScratchDir()
}

// ScratchDir returns the image scratch directory.
func (s *CardService) ScratchDir() string {
	return s.store.ScratchDir()
}

// Status reports the catalog and index state.
func (s *CardService) Status() models.CatalogStatus {
	status := s.store.Status()
	status.IndexSize = s.engine.IndexSize()
	if builtAt, ok := s.engine.IndexBuiltAt(); ok {
		status.IndexBuiltAt = &builtAt
	}
	return status
}
