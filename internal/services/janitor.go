package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultJanitorInterval is how often the janitor prunes the scratch directory.
const DefaultJanitorInterval = time.Hour

// ImagePruner removes expired images and reports how many were removed.
type ImagePruner interface {
	PruneImages(ctx context.Context) int
}

// CacheJanitor periodically prunes the image scratch directory
type CacheJanitor struct {
	mu          sync.RWMutex
	pruner      ImagePruner
	interval    time.Duration
	lastRun     time.Time
	lastRemoved int
}

// NewCacheJanitor creates a janitor for pruner
func NewCacheJanitor(pruner ImagePruner, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &CacheJanitor{
		pruner:   pruner,
		interval: interval,
	}
}

// Start prunes once, then on every tick until ctx is cancelled
func (j *CacheJanitor) Start(ctx context.Context) {
	log.Printf("Cache janitor started: pruning every %s", j.interval)

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache janitor stopping...")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce prunes immediately and returns the number of files removed
func (j *CacheJanitor) RunOnce(ctx context.Context) int {
	removed := j.pruner.PruneImages(ctx)
	if removed > 0 {
		log.Printf("Cache janitor: removed %d expired images", removed)
	}

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastRemoved = removed
	j.mu.Unlock()

	return removed
}

// LastRun returns when the janitor last ran and how many files it removed
func (j *CacheJanitor) LastRun() (time.Time, int) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastRun, j.lastRemoved
}
