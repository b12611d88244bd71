// Package store persists registry and relation contents between restarts.
// Snapshots carry keys and links in their text form; access state is not
// persisted and is rebuilt from configuration at boot.
package store

import (
	"context"
	"time"
)

// Kinds of snapshot.
const (
	KindRegistry = "registry"
	KindRelation = "relation"
)

// Snapshot is the persisted content of one registry or relation.
type Snapshot struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Items   []string    `json:"items,omitempty"`
	Links   [][2]string `json:"links,omitempty"`
	SavedAt time.Time   `json:"saved_at"`
}

// SnapshotStore saves and loads snapshots by name. Load returns
// sentinel.ErrNotFound for unknown names.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, name string) (Snapshot, error)
}
