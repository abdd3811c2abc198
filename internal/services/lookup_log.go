package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/card-lookup/internal/metrics"
	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/normalize"
)

// Lookup history limits.
const (
	DefaultRecentLookups = 20
	MaxRecentLookups     = 200
)

// LookupLog persists search queries and their outcome. A nil LookupLog, or
// one without a database, records nothing.
type LookupLog struct {
	db  *gorm.DB
	now func() time.Time
	wg  sync.WaitGroup
}

// NewLookupLog creates a log backed by db.
func NewLookupLog(db *gorm.DB) *LookupLog {
	return &LookupLog{db: db, now: time.Now}
}

// Enabled reports whether records are persisted.
func (l *LookupLog) Enabled() bool {
	return l != nil && l.db != nil
}

// Record saves query and its result in the background. Failures are logged.
func (l *LookupLog) Record(query string, result models.MatchResult) {
	if !l.Enabled() {
		return
	}

	rec := newLookupRecord(query, result, l.now())

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.db.Create(&rec).Error; err != nil {
			metrics.LookupLogErrorsTotal.Inc()
			log.Printf("Warning: failed to record lookup %q: %v", query, err)
		}
	}()
}

// Wait blocks until pending writes finish.
func (l *LookupLog) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

// Recent returns up to limit lookups, newest first.
func (l *LookupLog) Recent(limit int) ([]models.LookupRecord, error) {
	if !l.Enabled() {
		return []models.LookupRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecentLookups
	}
	if limit > MaxRecentLookups {
		limit = MaxRecentLookups
	}

	var records []models.LookupRecord
	if err := l.db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func newLookupRecord(query string, result models.MatchResult, now time.Time) models.LookupRecord {
	rec := models.LookupRecord{
		ID:              uuid.New().String(),
		Query:           query,
		NormalizedQuery: normalize.Normalize(query),
		Tier:            result.Tier,
		CreatedAt:       now,
	}
	if result.Found() {
		id, score := result.BestID, result.Score
		rec.BestID = &id
		rec.Score = &score
		rec.BestName = result.Best
	}
	return rec
}
