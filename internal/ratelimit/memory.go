package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. Each proxy instance holds its own map,
// so limits are only approximate across horizontally scaled instances.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]Counter
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]Counter)}
}

// GetCounter returns a copy of the stored counter, or nil when none exists.
func (m *MemoryStore) GetCounter(ctx context.Context, key string) (*Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// PutCounter replaces the counter for key.
func (m *MemoryStore) PutCounter(ctx context.Context, key string, counter *Counter) error {
	if counter == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counters == nil {
		m.counters = make(map[string]Counter)
	}
	m.counters[key] = *counter
	return nil
}

// DeleteExpired removes counters whose window ended before now.
func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, c := range m.counters {
		if now.After(c.ResetAt) {
			delete(m.counters, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked clients.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
