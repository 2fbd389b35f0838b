// Package db provides the GORM-based on-device store for kisan: the local
// key-value table, cached query payloads, the remote mirror outbox and the
// persisted session. It uses the pure-Go SQLite driver.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/asteroid-belt/kisan/internal/models"
)

// DB wraps the GORM database connection with kisan-specific operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: db, path: cfg.Path}

	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := wrapped.seedUserState(); err != nil {
		return nil, fmt.Errorf("seed user state: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.KVEntry{},
		&models.CacheEntry{},
		&models.MirrorItem{},
		&models.UserState{},
	)
}

// seedUserState inserts the singleton user-state row if not present.
func (db *DB) seedUserState() error {
	state := models.UserState{ID: models.UserStateID}
	return db.Where("id = ?", models.UserStateID).FirstOrCreate(&state).Error
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
func (d *DB) Transaction(fc func(tx *DB) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		return fc(&DB{DB: tx, path: d.path})
	})
}

// Stats is a snapshot of the local store, shown by `kisan sync`.
type Stats struct {
	KVEntries      int64
	CacheEntries   int64
	MirrorPending  int64
	MirrorFailed   int64
	CacheSizeBytes int64
	LastUpdated    time.Time
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats

	if err := db.Model(&models.KVEntry{}).Count(&stats.KVEntries).Error; err != nil {
		return nil, fmt.Errorf("count kv entries: %w", err)
	}
	if err := db.Model(&models.CacheEntry{}).Count(&stats.CacheEntries).Error; err != nil {
		return nil, fmt.Errorf("count cache entries: %w", err)
	}
	if err := db.Model(&models.MirrorItem{}).Where("status = ?", models.MirrorPending).Count(&stats.MirrorPending).Error; err != nil {
		return nil, fmt.Errorf("count pending mirror items: %w", err)
	}
	if err := db.Model(&models.MirrorItem{}).Where("status = ?", models.MirrorFailed).Count(&stats.MirrorFailed).Error; err != nil {
		return nil, fmt.Errorf("count failed mirror items: %w", err)
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.CacheSizeBytes = info.Size()
	}
	stats.LastUpdated = time.Now()

	return &stats, nil
}
