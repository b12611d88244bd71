package memory

import (
	"context"
	"sync"

	audit "apeguard/pkg/platform/audit"
)

// InMemoryStore keeps events in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByTarget returns up to limit events for target, most recent first.
// A non-positive limit returns all of them.
func (s *InMemoryStore) ListByTarget(_ context.Context, target string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(e audit.Event) bool { return e.Target == target }), nil
}

// ListRecent returns up to limit events across all targets, most recent first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(audit.Event) bool { return true }), nil
}

func (s *InMemoryStore) collect(limit int, keep func(audit.Event) bool) []audit.Event {
	out := []audit.Event{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if keep(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out
}
