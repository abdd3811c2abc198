package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/codyseavey/card-lookup/internal/models"
	"github.com/codyseavey/card-lookup/internal/normalize"
)

// backfillBatchSize bounds how many lookup rows are rewritten per statement batch.
const backfillBatchSize = 500

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := backfillNormalizedQueries(db); err != nil {
		return err
	}
	migrateTierField(db)
	return nil
}

// backfillNormalizedQueries fills normalized_query for rows written before the
// column existed. Safe to run repeatedly: only empty rows are touched.
func backfillNormalizedQueries(db *gorm.DB) error {
	var pending []models.LookupRecord
	result := db.Where("normalized_query IS NULL OR normalized_query = ''").
		Where("query <> ''").
		FindInBatches(&pending, backfillBatchSize, func(tx *gorm.DB, _ int) error {
			for _, rec := range pending {
				norm := normalize.Normalize(rec.Query)
				if norm == "" {
					continue
				}
				if err := tx.Model(&models.LookupRecord{}).
					Where("id = ?", rec.ID).
					Update("normalized_query", norm).Error; err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Backfilled normalized queries for %d lookup records", result.RowsAffected)
	}
	return nil
}

// migrateTierField gives rows without a recorded tier the tier their score implies.
func migrateTierField(db *gorm.DB) {
	result := db.Exec(`
		UPDATE lookup_records
		SET tier = CASE
			WHEN score IS NULL THEN 'none'
			WHEN score = 0 THEN 'exact'
			WHEN score = 0.01 THEN 'prefix'
			WHEN score = 0.02 THEN 'substring'
			WHEN score = 0.03 THEN 'alias'
			ELSE 'fuzzy'
		END
		WHERE tier IS NULL OR tier = ''
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to migrate lookup_records tier values: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Migrated tier for %d lookup records", result.RowsAffected)
	}
}
