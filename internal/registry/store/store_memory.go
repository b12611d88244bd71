package store

import (
	"context"
	"sync"

	"apeguard/pkg/platform/sentinel"
)

// InMemory keeps snapshots for the lifetime of the process.
type InMemory struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewInMemory() *InMemory {
	return &InMemory{snapshots: make(map[string]Snapshot)}
}

func (s *InMemory) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Items = append([]string(nil), snap.Items...)
	snap.Links = append([][2]string(nil), snap.Links...)
	s.snapshots[snap.Name] = snap
	return nil
}

func (s *InMemory) Load(_ context.Context, name string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[name]
	if !ok {
		return Snapshot{}, sentinel.ErrNotFound
	}
	return snap, nil
}
