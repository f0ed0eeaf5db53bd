package rate

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process [CounterStore]. Expired counters are dropped
// opportunistically whenever the store is touched.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*memoryCounter)}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++

	// Windowed keys never repeat, so dead entries pile up without this.
	if len(s.counters) > 1024 {
		for k, v := range s.counters {
			if now.After(v.expiresAt) {
				delete(s.counters, k)
			}
		}
	}

	return c.count, nil
}
