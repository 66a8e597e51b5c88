// Package store persists imported trace events so repeated queries do
// not re-parse large trace files.
package store

import "github.com/ncclspy/ncclspy/internal/trace"

// Filter narrows an event query. Zero values mean "any".
type Filter struct {
	Op         string
	Rank       *int
	MinCount   uint64
	FailedOnly bool
	Limit      int
}

// Store is implemented by the in-memory and SQLite backends.
type Store interface {
	InsertEvents(events []trace.Event) error
	Events(f Filter) ([]trace.Event, error)
	Close() error
}

func matches(ev trace.Event, f Filter) bool {
	if f.Op != "" && ev.Op != f.Op {
		return false
	}
	if f.Rank != nil && ev.Rank != *f.Rank {
		return false
	}
	if f.MinCount > 0 && ev.Count < f.MinCount {
		return false
	}
	if f.FailedOnly && ev.Status == 0 {
		return false
	}
	return true
}
