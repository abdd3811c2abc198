package match

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/card-lookup/internal/metrics"
	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/normalize"
)

// Engine defaults.
const (
	DefaultLimit           = 8
	DefaultRebuildInterval = time.Hour
	DefaultCacheSize       = 256

	// AcceptThreshold is the worst scored-tier result kept when a better one exists.
	AcceptThreshold = 0.42
)

// Catalog is the part of the catalog store the engine reads.
type Catalog interface {
	Load(ctx context.Context) error
	All() []*models.MergedEntry
	Version() uint64
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	RebuildInterval time.Duration
	CacheSize       int
	Index           IndexOptions
	Clock           func() time.Time
}

type cacheKey struct {
	version uint64
	query   string
	limit   int
}

// entryNames caches the normalized names the cheap tiers compare against.
type entryNames struct {
	entry     *models.MergedEntry
	primary   string
	secondary string
	aliases   []string
}

// Engine answers lookups against a catalog: exact, prefix and substring tiers
// first, then the scored index.
type Engine struct {
	catalog  Catalog
	interval time.Duration
	indexOpt IndexOptions
	now      func() time.Time

	buildMu sync.Mutex

	mu        sync.RWMutex
	index     *Index
	lastBuild time.Time
	rebuilds  uint64
	names     []entryNames
	namesVer  uint64
	namesLen  int
	cache     *lru.Cache[cacheKey, models.MatchResult]
}

// NewEngine creates an engine over catalog. The index is built lazily by the
// first FuzzyMatch call.
func NewEngine(catalog Catalog, opts Options) *Engine {
	if opts.RebuildInterval <= 0 {
		opts.RebuildInterval = DefaultRebuildInterval
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	cache, err := lru.New[cacheKey, models.MatchResult](opts.CacheSize)
	if err != nil {
		log.Printf("Warning: match cache disabled: %v", err)
	}

	return &Engine{
		catalog:  catalog,
		interval: opts.RebuildInterval,
		indexOpt: opts.Index,
		now:      opts.Clock,
		cache:    cache,
		namesLen: -1,
	}
}

// FuzzyMatch resolves query to the best catalog entry. limit <= 0 selects
// DefaultLimit. It never fails: queries that match nothing get NoMatch.
func (e *Engine) FuzzyMatch(ctx context.Context, query string, limit int) models.MatchResult {
	start := time.Now()
	defer func() { metrics.MatchDuration.Observe(time.Since(start).Seconds()) }()

	if limit <= 0 {
		limit = DefaultLimit
	}

	e.ensureFresh(ctx)

	q := normalize.Normalize(query)
	if q == "" {
		metrics.MatchTierTotal.WithLabelValues(string(models.TierNone)).Inc()
		return models.NoMatch()
	}

	names, version := e.snapshot()
	key := cacheKey{version: version, query: q, limit: limit}
	if e.cache != nil {
		if res, ok := e.cache.Get(key); ok {
			metrics.MatchCacheHits.Inc()
			return cloneResult(res)
		}
		metrics.MatchCacheMisses.Inc()
	}

	res := e.evaluate(names, q, limit)
	metrics.MatchTierTotal.WithLabelValues(string(res.Tier)).Inc()

	if e.cache != nil {
		e.cache.Add(key, res)
	}
	return cloneResult(res)
}

// Warm builds the index now if it is missing or stale.
func (e *Engine) Warm(ctx context.Context) {
	e.ensureFresh(ctx)
}

// ensureFresh rebuilds the index when none exists or the current one is
// older than the rebuild interval.
func (e *Engine) ensureFresh(ctx context.Context) {
	if !e.stale() {
		return
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	if !e.stale() {
		return
	}

	if err := e.catalog.Load(ctx); err != nil {
		log.Printf("Warning: catalog load failed during index rebuild: %v", err)
	}

	entries := e.catalog.All()
	var idx *Index
	if len(entries) > 0 {
		idx = BuildIndex(entries, e.indexOpt)
	}

	e.mu.Lock()
	e.index = idx
	e.lastBuild = e.now()
	e.rebuilds++
	e.mu.Unlock()

	if e.cache != nil {
		e.cache.Purge()
	}

	metrics.IndexRebuildsTotal.Inc()
	metrics.IndexSize.Set(float64(idx.Len()))
}

func (e *Engine) stale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index == nil || e.now().Sub(e.lastBuild) >= e.interval
}

// snapshot returns the normalized names for the current catalog, recomputing
// them and purging cached results when the catalog has changed.
func (e *Engine) snapshot() ([]entryNames, uint64) {
	version := e.catalog.Version()
	entries := e.catalog.All()

	e.mu.RLock()
	if e.namesVer == version && e.namesLen == len(entries) {
		names := e.names
		e.mu.RUnlock()
		return names, version
	}
	e.mu.RUnlock()

	names := make([]entryNames, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		n := entryNames{entry: entry}
		if name, ok := entry.Name(models.LanguagePrimary); ok {
			n.primary = normalize.Normalize(name)
		}
		if name, ok := entry.Name(models.LanguageSecondary); ok {
			n.secondary = normalize.Normalize(name)
		}
		for _, a := range entry.Aliases {
			n.aliases = append(n.aliases, normalize.Normalize(a))
		}
		names = append(names, n)
	}

	e.mu.Lock()
	changed := e.namesVer != version
	e.names, e.namesVer, e.namesLen = names, version, len(entries)
	e.mu.Unlock()

	if changed && e.cache != nil {
		e.cache.Purge()
	}
	return names, version
}

func (e *Engine) evaluate(names []entryNames, q string, limit int) models.MatchResult {
	// Exact primary or secondary name.
	for _, n := range names {
		if n.entry.Normalized == "" {
			continue
		}
		if n.primary == q || n.secondary == q {
			return single(n.entry, n.entry.DisplayName(), models.ScoreExact, models.TierExact)
		}
	}

	for _, n := range names {
		if n.entry.Normalized == "" {
			continue
		}
		if (n.primary != "" && strings.HasPrefix(n.primary, q)) ||
			(n.secondary != "" && strings.HasPrefix(n.secondary, q)) {
			return single(n.entry, n.entry.DisplayName(), models.ScorePrefix, models.TierPrefix)
		}
	}

	for _, n := range names {
		if strings.Contains(n.entry.Normalized, q) {
			return single(n.entry, n.entry.DisplayName(), models.ScoreSubstring, models.TierSubstring)
		}
	}

	// Aliases only when no combined text contained the query.
	for _, n := range names {
		for i, a := range n.aliases {
			if a != "" && strings.Contains(a, q) {
				display := n.entry.DisplayNameOr(n.entry.Aliases[i])
				return single(n.entry, display, models.ScoreAliasSubstring, models.TierAlias)
			}
		}
	}

	return e.scored(q, limit)
}

func (e *Engine) scored(q string, limit int) models.MatchResult {
	e.mu.RLock()
	idx := e.index
	e.mu.RUnlock()
	if idx == nil {
		return models.NoMatch()
	}

	hits := idx.Search(q, limit)
	if len(hits) == 0 {
		return models.NoMatch()
	}

	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score <= AcceptThreshold {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		kept = hits[:1]
	}

	candidates := make([]string, 0, len(kept))
	for _, h := range kept {
		if name := h.Item.Display(); name != "" {
			candidates = append(candidates, name)
		}
	}

	top := kept[0]
	return models.MatchResult{
		Best:       top.Item.Display(),
		BestID:     top.Item.ID,
		Score:      top.Score,
		Candidates: candidates,
		Tier:       models.TierFuzzy,
	}
}

func single(entry *models.MergedEntry, display string, score float64, tier models.MatchTier) models.MatchResult {
	candidates := []string{}
	if display != "" {
		candidates = append(candidates, display)
	}
	return models.MatchResult{
		Best:       display,
		BestID:     entry.ID,
		Score:      score,
		Candidates: candidates,
		Tier:       tier,
	}
}

func cloneResult(r models.MatchResult) models.MatchResult {
	r.Candidates = append([]string{}, r.Candidates...)
	return r
}

// IndexSize returns the number of items in the current index.
func (e *Engine) IndexSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Len()
}

// IndexBuiltAt returns when the index was last rebuilt.
func (e *Engine) IndexBuiltAt() (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastBuild, !e.lastBuild.IsZero()
}

// Rebuilds returns how many times the index has been rebuilt.
func (e *Engine) Rebuilds() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rebuilds
}
