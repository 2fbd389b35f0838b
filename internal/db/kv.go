package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/kisan/internal/models"
)

// GetKV retrieves a local value. A missing key is not an error: ok is false.
func (db *DB) GetKV(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// SetKV sets a local value, overwriting any previous one.
func (db *DB) SetKV(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// DeleteKV removes a local value. Only `kisan reset` clears keys.
func (db *DB) DeleteKV(ctx context.Context, key string) error {
	return db.WithContext(ctx).Delete(&models.KVEntry{}, "key = ?", key).Error
}

// GetAllKV retrieves all local values.
func (db *DB) GetAllKV(ctx context.Context) (map[string]string, error) {
	var entries []models.KVEntry
	if err := db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.Key] = e.Value
	}
	return result, nil
}
