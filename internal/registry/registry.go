// Package registry implements enumerable unique-key sets guarded by an
// access policy, and relations that link the members of two registries.
package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"apeguard/internal/registry/access"
	"apeguard/internal/registry/keys"
	"apeguard/pkg/domain"
	"apeguard/pkg/platform/tx"
	"apeguard/pkg/requestcontext"
)

var registrySeq atomic.Uint64

// Registry is an enumerable set of unique keys. Keys are compared through the
// key policy and stored as given; mutations are authorized against the caller
// carried in the context.
type Registry[K any] struct {
	name   string
	seq    uint64
	mu     sync.RWMutex
	keys   keys.Policy[K]
	access access.Policy
	index  *index[K]
	// linked reports whether a relation still references a canonical key.
	// Relations register one per Required side.
	linked []func(canon string) bool
}

// New creates an empty registry.
func New[K any](name string, kp keys.Policy[K], ap access.Policy) *Registry[K] {
	return &Registry[K]{
		name:   name,
		seq:    registrySeq.Add(1),
		keys:   kp,
		access: ap,
		index:  newIndex[K](),
	}
}

func (r *Registry[K]) Name() string { return r.name }

// KeyPolicy names the key comparison strategy.
func (r *Registry[K]) KeyPolicy() string { return r.keys.Name() }

// AccessPolicy names the authorization strategy.
func (r *Registry[K]) AccessPolicy() string { return r.access.Name() }

// Add appends key and returns its position.
func (r *Registry[K]) Add(ctx context.Context, key K) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx int
	err := tx.Run(ctx, func(j *tx.Journal) error {
		var err error
		idx, err = r.insert(j, requestcontext.Caller(ctx), key)
		return err
	})
	return idx, err
}

// Remove deletes key. The previously last key takes its position.
func (r *Registry[K]) Remove(ctx context.Context, key K) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return tx.Run(ctx, func(j *tx.Journal) error {
		return r.delete(j, requestcontext.Caller(ctx), key)
	})
}

func (r *Registry[K]) Contains(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index.find(r.keys.Canonical(key))
	return ok
}

func (r *Registry[K]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.len()
}

// GetByID returns the key stored at position idx.
func (r *Registry[K]) GetByID(idx int) (K, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.index.at(idx)
	if !ok {
		return key, indexOutOfBounds(r.name, idx, r.index.len())
	}
	return key, nil
}

// GetID returns the position of key. The position is zero when key is absent.
func (r *Registry[K]) GetID(key K) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.find(r.keys.Canonical(key))
}

// Items returns a copy of the keys in position order.
func (r *Registry[K]) Items() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.snapshot()
}

func (r *Registry[K]) Owner() domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.access.Owner()
}

func (r *Registry[K]) TransferOwnership(ctx context.Context, newOwner domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access.TransferOwnership(requestcontext.Caller(ctx), newOwner)
}

// AllowCaller adds identity to the allow-list of a gate registry.
func (r *Registry[K]) AllowCaller(ctx context.Context, identity domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gate, ok := r.access.(access.AllowList)
	if !ok {
		return noAllowList(r.name)
	}
	return gate.Allow(requestcontext.Caller(ctx), identity)
}

// DisallowCaller removes identity from the allow-list of a gate registry.
func (r *Registry[K]) DisallowCaller(ctx context.Context, identity domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gate, ok := r.access.(access.AllowList)
	if !ok {
		return noAllowList(r.name)
	}
	return gate.Disallow(requestcontext.Caller(ctx), identity)
}

// AllowedCallers lists the allow-list of a gate registry. The second result
// is false for owner registries.
func (r *Registry[K]) AllowedCallers() ([]domain.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gate, ok := r.access.(access.AllowList)
	if !ok {
		return nil, false
	}
	return gate.Allowed(), true
}

// HandOver makes to the sole controller of the registry in place of the
// caller. An owner registry transfers ownership; a gate registry allows to,
// disallows the caller and transfers ownership of the allow-list to to, so
// the caller cannot list itself again.
func (r *Registry[K]) HandOver(ctx context.Context, to domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	caller := requestcontext.Caller(ctx)
	gate, ok := r.access.(access.AllowList)
	if !ok {
		return r.access.TransferOwnership(caller, to)
	}
	if err := gate.Allow(caller, to); err != nil {
		return err
	}
	if caller != to {
		if err := gate.Disallow(caller, caller); err != nil {
			return err
		}
	}
	return r.access.TransferOwnership(caller, to)
}

// Seed appends keys without authorization. It restores persisted state and
// fails, leaving the registry untouched, if any key is invalid or duplicate.
func (r *Registry[K]) Seed(items []K) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return tx.Run(context.Background(), func(j *tx.Journal) error {
		for _, key := range items {
			if _, err := r.push(j, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// The methods below expect r.mu to be held by the caller.

func (r *Registry[K]) sequence() uint64 { return r.seq }
func (r *Registry[K]) locker() *sync.RWMutex { return &r.mu }

// trackLinks registers a check consulted before every removal. The check
// runs with r.mu held.
func (r *Registry[K]) trackLinks(linked func(canon string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked = append(r.linked, linked)
}

func (r *Registry[K]) authorize(caller domain.Address) error {
	return access.Check(r.access, caller)
}

func (r *Registry[K]) insert(j *tx.Journal, caller domain.Address, key K) (int, error) {
	if err := r.authorize(caller); err != nil {
		return 0, err
	}
	return r.push(j, key)
}

func (r *Registry[K]) push(j *tx.Journal, key K) (int, error) {
	if err := r.keys.Validate(key); err != nil {
		return 0, invalidKey(r.name, key, err)
	}
	canon := r.keys.Canonical(key)
	if _, ok := r.index.find(canon); ok {
		return 0, duplicateKey(r.name, key)
	}
	return r.index.push(j, canon, key), nil
}

func (r *Registry[K]) delete(j *tx.Journal, caller domain.Address, key K) error {
	if err := r.authorize(caller); err != nil {
		return err
	}
	canon := r.keys.Canonical(key)
	if _, ok := r.index.find(canon); !ok {
		return keyNotFound(r.name, key)
	}
	for _, linked := range r.linked {
		if linked(canon) {
			return keyLinked(r.name, key)
		}
	}
	r.index.remove(j, canon)
	return nil
}

// stored returns the key as it was added, preserving its original casing.
func (r *Registry[K]) stored(canon string) (K, bool) {
	i, ok := r.index.find(canon)
	if !ok {
		var zero K
		return zero, false
	}
	return r.index.at(i)
}

type lockable interface {
	sequence() uint64
	locker() *sync.RWMutex
}

// lockAll write-locks the given registries in creation order, skipping
// duplicates, and returns the matching unlock.
func lockAll(ls ...lockable) func() {
	sorted := make([]lockable, 0, len(ls))
	seen := make(map[uint64]struct{}, len(ls))
	for _, l := range ls {
		if _, ok := seen[l.sequence()]; ok {
			continue
		}
		seen[l.sequence()] = struct{}{}
		sorted = append(sorted, l)
	}
	sort.Slice(sorted, func(i, k int) bool { return sorted[i].sequence() < sorted[k].sequence() })
	for _, l := range sorted {
		l.locker().Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			sorted[i].locker().Unlock()
		}
	}
}
