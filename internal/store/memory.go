package store

import (
	"sync"

	"github.com/ncclspy/ncclspy/internal/trace"
)

// MemoryStore keeps events in memory. Used by tests and one-shot queries.
type MemoryStore struct {
	mu     sync.RWMutex
	events []trace.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// InsertEvents appends events in order.
func (s *MemoryStore) InsertEvents(events []trace.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns events matching the filter, insertion-ordered.
func (s *MemoryStore) Events(f Filter) ([]trace.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []trace.Event
	for _, ev := range s.events {
		if !matches(ev, f) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
