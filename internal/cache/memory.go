package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process SeenCache used when Redis is not
// configured, and in tests. TTLs are ignored; entries live for the
// process lifetime.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]struct{})}
}

func (m *MemoryCache) Close() error {
	return nil
}

func (m *MemoryCache) IsSeen(ctx context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[hash]
	return ok, nil
}

func (m *MemoryCache) MarkSeen(ctx context.Context, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[hash] = struct{}{}
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]struct{})
	return nil
}
