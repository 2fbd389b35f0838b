package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/kisan/internal/models"
)

// GetCache returns the cached payload for key, or nil when nothing is cached.
func (db *DB) GetCache(key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := db.First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// PutCache overwrites the cached payload for key.
func (db *DB) PutCache(key, payload string, storedAt time.Time) error {
	entry := models.CacheEntry{Key: key, Payload: payload, StoredAt: storedAt}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "stored_at"}),
	}).Create(&entry).Error
}

// ListCacheKeys returns all cached keys, newest first.
func (db *DB) ListCacheKeys() ([]models.CacheEntry, error) {
	var entries []models.CacheEntry
	err := db.Select("key", "stored_at").Order("stored_at DESC").Find(&entries).Error
	return entries, err
}
