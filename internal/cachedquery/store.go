package cachedquery

import (
	"sync"
	"time"

	"github.com/asteroid-belt/kisan/internal/models"
)

// Store persists the last successful payload per key. GetCache returns
// (nil, nil) on a miss. *db.DB implements it.
type Store interface {
	GetCache(key string) (*models.CacheEntry, error)
	PutCache(key, payload string, storedAt time.Time) error
}

// MemoryStore is an in-process Store, used when no database is available.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CacheEntry)}
}

func (m *MemoryStore) GetCache(key string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) PutCache(key, payload string, storedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = models.CacheEntry{Key: key, Payload: payload, StoredAt: storedAt}
	return nil
}
