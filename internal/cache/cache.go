// Package cache provides byte-payload caches keyed by request path,
// with the stale-if-error fetch policy the aggregator relies on.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores raw response payloads with their write time. Writes are
// idempotent upserts; the most recently written value wins.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, age time.Duration, ok bool)
	Set(ctx context.Context, key string, data []byte)
}

type entry struct {
	data []byte
	ts   time.Time
}

// Memory is an in-process Cache. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, 0, false
	}
	return e.data, m.now().Sub(e.ts), true
}

func (m *Memory) Set(_ context.Context, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: data, ts: m.now()}
}

// Fetcher performs the live request when the cache can't serve one.
type Fetcher func(ctx context.Context) ([]byte, error)

// Fetch returns the cached payload for key when it is younger than ttl,
// otherwise attempts a live fetch and stores the result. A failed live
// fetch falls back to the cached payload regardless of age; the error
// propagates only when the cache is empty.
func Fetch(ctx context.Context, c Cache, key string, ttl time.Duration, fetch Fetcher) ([]byte, error) {
	if data, age, ok := c.Get(ctx, key); ok && age < ttl {
		return data, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		if stale, _, ok := c.Get(ctx, key); ok {
			return stale, nil
		}
		return nil, err
	}

	c.Set(ctx, key, data)
	return data, nil
}
