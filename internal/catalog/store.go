package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/card-lookup/internal/metrics"
	"github.com/codyseavey/card-lookup/internal/models"
)

// RecordProvider fetches the raw card list for one language.
type RecordProvider interface {
	FetchRecords(ctx context.Context, lang models.Language) ([]models.RawRecord, error)
}

// BinaryProvider downloads a binary resource. The status code is returned
// as-is; interpreting it is up to the caller.
type BinaryProvider interface {
	FetchBinary(ctx context.Context, url string) (int, []byte, error)
}

// Store holds the merged catalog and the raw per-language records it was
// built from. The catalog loads at most once; readers see empty results until
// then.
type Store struct {
	records    RecordProvider
	binaries   BinaryProvider
	scratchDir string
	retention  time.Duration
	now        func() time.Time

	loadMu sync.Mutex // serializes Load

	mu       sync.RWMutex
	state    models.CatalogState
	entries  []*models.MergedEntry
	byID     map[int]*models.MergedEntry
	raw      map[models.Language][]models.RawRecord
	version  uint64
	loadedAt time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithImageRetention sets how long downloaded images survive in the scratch
// directory before Prune removes them.
func WithImageRetention(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an unloaded store.
func NewStore(records RecordProvider, binaries BinaryProvider, scratchDir string, opts ...StoreOption) *Store {
	if scratchDir == "" {
		scratchDir = DefaultScratchDir
	}

	s := &Store{
		records:    records,
		binaries:   binaries,
		scratchDir: scratchDir,
		retention:  DefaultImageRetention,
		now:        time.Now,
		state:      models.CatalogUninitialized,
		byID:       make(map[int]*models.MergedEntry),
		raw:        make(map[models.Language][]models.RawRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches both languages and merges them. A failed language fetch is
// logged and that language contributes nothing. Once loaded, further calls
// return immediately without fetching.
//
// If ctx ends before both fetches settle the store stays unloaded and the
// context error is returned, so a later call can try again.
func (s *Store) Load(ctx context.Context) error {
	if s.State() == models.CatalogLoaded {
		return nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.State() == models.CatalogLoaded {
		return nil
	}
	s.setState(models.CatalogLoading)

	langs := models.Languages()
	fetched := make([][]models.RawRecord, len(langs))

	var wg sync.WaitGroup
	for i, lang := range langs {
		wg.Add(1)
		go func(i int, lang models.Language) {
			defer wg.Done()
			fetched[i] = s.fetch(ctx, lang)
		}(i, lang)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.setState(models.CatalogUninitialized)
		return fmt.Errorf("catalog load interrupted: %w", err)
	}

	entries := Merge(fetched[0], fetched[1])
	byID := make(map[int]*models.MergedEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.byID = byID
	for i, lang := range langs {
		s.raw[lang] = fetched[i]
	}
	s.version++
	s.loadedAt = s.now()
	s.state = models.CatalogLoaded
	s.mu.Unlock()

	metrics.CatalogLoadsTotal.Inc()
	metrics.CatalogEntries.Set(float64(len(entries)))
	for i, lang := range langs {
		metrics.CatalogRawRecords.WithLabelValues(string(lang)).Set(float64(len(fetched[i])))
	}

	log.Printf("Catalog loaded: %d entries (%d %s, %d %s raw records)",
		len(entries), len(fetched[0]), langs[0], len(fetched[1]), langs[1])
	return nil
}

func (s *Store) fetch(ctx context.Context, lang models.Language) []models.RawRecord {
	if s.records == nil {
		return nil
	}
	records, err := s.records.FetchRecords(ctx, lang)
	if err != nil {
		metrics.CatalogFetchFailures.WithLabelValues(string(lang)).Inc()
		log.Printf("Warning: failed to fetch %s card list: %v", lang, err)
		return nil
	}
	return records
}

func (s *Store) setState(state models.CatalogState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the load lifecycle state.
func (s *Store) State() models.CatalogState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version increases every time a load publishes a new catalog.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// All returns the merged entries in catalog order. The slice must not be modified.
func (s *Store) All() []*models.MergedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// Get returns the entry with the given id.
func (s *Store) Get(id int) (*models.MergedEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// PrimaryRaw returns the raw primary-language records.
func (s *Store) PrimaryRaw() []models.RawRecord {
	return s.rawFor(models.LanguagePrimary)
}

// SecondaryRaw returns the raw secondary-language records.
func (s *Store) SecondaryRaw() []models.RawRecord {
	return s.rawFor(models.LanguageSecondary)
}

func (s *Store) rawFor(lang models.Language) []models.RawRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw[lang]
}

// Status summarizes the store. Index fields are left for the engine to fill.
func (s *Store) Status() models.CatalogStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := models.CatalogStatus{
		State:      s.state,
		Entries:    len(s.entries),
		RawRecords: make(map[models.Language]int, len(s.raw)),
	}
	for _, lang := range models.Languages() {
		status.RawRecords[lang] = len(s.raw[lang])
	}
	if !s.loadedAt.IsZero() {
		loadedAt := s.loadedAt
		status.LoadedAt = &loadedAt
	}
	return status
}
