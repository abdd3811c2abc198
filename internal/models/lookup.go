package models

import (
	"time"
)

// LookupRecord is one logged search request.
type LookupRecord struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Query           string    `json:"query" gorm:"not null"`
	NormalizedQuery string    `json:"normalized_query" gorm:"index"`
	BestID          *int      `json:"best_id"`
	BestName        string    `json:"best_name"`
	Score           *float64  `json:"score"`
	Tier            MatchTier `json:"tier"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

// CatalogState is the load lifecycle of the catalog store.
type CatalogState string

const (
	CatalogUninitialized CatalogState = "uninitialized"
	CatalogLoading       CatalogState = "loading"
	CatalogLoaded        CatalogState = "loaded"
)

// CatalogStatus summarizes the catalog for status endpoints.
type CatalogStatus struct {
	State        CatalogState     `json:"state"`
	Entries      int              `json:"entries"`
	RawRecords   map[Language]int `json:"raw_records"`
	LoadedAt     *time.Time       `json:"loaded_at,omitempty"`
	IndexSize    int              `json:"index_size"`
	IndexBuiltAt *time.Time       `json:"index_built_at,omitempty"`
}
