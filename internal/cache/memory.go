package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process Processed set used when Redis is not configured
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]time.Time
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryCache) IsProcessed(ctx context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(url)
	expires, exists := m.data[key]
	if !exists {
		return false, nil
	}
	if !expires.IsZero() && m.now().After(expires) {
		delete(m.data, key)
		return false, nil
	}
	return true, nil
}

// MarkProcessed records the URL; a zero ttl never expires
func (m *MemoryCache) MarkProcessed(ctx context.Context, url string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.data[Key(url)] = expires
	return nil
}

func (m *MemoryCache) ClearProcessed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]time.Time)
	return nil
}
