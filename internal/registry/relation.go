package registry

import (
	"context"
	"sort"
	"sync"

	"apeguard/internal/registry/access"
	"apeguard/pkg/domain"
	"apeguard/pkg/platform/tx"
	"apeguard/pkg/requestcontext"
)

// Lifecycle controls how a relation treats the registry entries of one side.
type Lifecycle int

const (
	// Required sides must already hold the key; unlinking never removes it.
	Required Lifecycle = iota
	// AutoManaged sides gain the key on its first link and lose it when its
	// last link goes away.
	AutoManaged
)

func (l Lifecycle) String() string {
	if l == AutoManaged {
		return "auto"
	}
	return "required"
}

// Side binds a registry to one end of a relation.
type Side[K any] struct {
	Registry  *Registry[K]
	Lifecycle Lifecycle
}

// Link is one recorded (a, b) pair.
type Link[A, B any] struct {
	A A
	B B
}

type links[K, P any] struct {
	key   K
	peers *index[P]
}

// Relation records a many-to-many association between the members of two
// registries. Link and Unlink run as one unit across both registries and
// both link tables: a failing step leaves no trace.
type Relation[A, B any] struct {
	name     string
	identity domain.Address
	mu       sync.RWMutex
	access   access.Policy
	a        Side[A]
	b        Side[B]
	byA      map[string]*links[A, B]
	byB      map[string]*links[B, A]
	total    int
}

// RelationOption configures a Relation.
type RelationOption func(*relationConfig)

type relationConfig struct {
	identity domain.Address
}

// WithIdentity sets the identity the relation presents to its registries.
// A random identity is used otherwise.
func WithIdentity(id domain.Address) RelationOption {
	return func(c *relationConfig) {
		c.identity = id
	}
}

// NewRelation creates an empty relation owned by owner. Auto-managed sides
// only work once their registry authorizes Identity(). Keys of a Required
// side cannot be removed from their registry while they have links.
func NewRelation[A, B any](name string, owner domain.Address, a Side[A], b Side[B], opts ...RelationOption) *Relation[A, B] {
	cfg := relationConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.identity.IsZero() {
		cfg.identity = domain.NewAddress()
	}
	r := &Relation[A, B]{
		name:     name,
		identity: cfg.identity,
		access:   access.NewOwner(owner),
		a:        a,
		b:        b,
		byA:      make(map[string]*links[A, B]),
		byB:      make(map[string]*links[B, A]),
	}
	// Link tables only change while both registries are write-locked, so the
	// registry can read them under its own lock.
	if a.Lifecycle == Required {
		a.Registry.trackLinks(func(canon string) bool {
			_, ok := r.byA[canon]
			return ok
		})
	}
	if b.Lifecycle == Required {
		b.Registry.trackLinks(func(canon string) bool {
			_, ok := r.byB[canon]
			return ok
		})
	}
	return r
}

func (r *Relation[A, B]) Name() string { return r.name }

// Identity is the caller the relation uses when it mutates its registries.
func (r *Relation[A, B]) Identity() domain.Address { return r.identity }

func (r *Relation[A, B]) SideA() Side[A] { return r.a }
func (r *Relation[A, B]) SideB() Side[B] { return r.b }

func (r *Relation[A, B]) Owner() domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.access.Owner()
}

func (r *Relation[A, B]) TransferOwnership(ctx context.Context, newOwner domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access.TransferOwnership(requestcontext.Caller(ctx), newOwner)
}

func (r *Relation[A, B]) lock() func() {
	r.mu.Lock()
	unlockRegistries := lockAll(r.a.Registry, r.b.Registry)
	return func() {
		unlockRegistries()
		r.mu.Unlock()
	}
}

// Link records (a, b), creating auto-managed registry entries as needed.
func (r *Relation[A, B]) Link(ctx context.Context, a A, b B) error {
	unlock := r.lock()
	defer unlock()

	if err := access.Check(r.access, requestcontext.Caller(ctx)); err != nil {
		return err
	}
	return tx.Run(ctx, func(j *tx.Journal) error {
		return r.link(j, a, b)
	})
}

func (r *Relation[A, B]) link(j *tx.Journal, a A, b B) error {
	regA, regB := r.a.Registry, r.b.Registry
	ca, cb := regA.keys.Canonical(a), regB.keys.Canonical(b)

	if r.a.Lifecycle == Required && !has(regA, ca) {
		return notRegistered(regA.name, a)
	}
	if r.b.Lifecycle == Required && !has(regB, cb) {
		return notRegistered(regB.name, b)
	}
	if l, ok := r.byA[ca]; ok {
		if _, linked := l.peers.find(cb); linked {
			return alreadyLinked(r.name, a, b)
		}
	}

	if !has(regA, ca) {
		if _, err := regA.insert(j, r.identity, a); err != nil {
			return err
		}
	}
	if !has(regB, cb) {
		if _, err := regB.insert(j, r.identity, b); err != nil {
			return err
		}
	}

	storedA, _ := regA.stored(ca)
	storedB, _ := regB.stored(cb)
	listFor(j, r.byA, ca, storedA).peers.push(j, cb, storedB)
	listFor(j, r.byB, cb, storedB).peers.push(j, ca, storedA)
	r.total++
	j.Record(func() { r.total-- })
	return nil
}

// Unlink removes (a, b). An auto-managed key left without links is removed
// from its registry.
func (r *Relation[A, B]) Unlink(ctx context.Context, a A, b B) error {
	unlock := r.lock()
	defer unlock()

	if err := access.Check(r.access, requestcontext.Caller(ctx)); err != nil {
		return err
	}
	return tx.Run(ctx, func(j *tx.Journal) error {
		return r.unlink(j, a, b)
	})
}

func (r *Relation[A, B]) unlink(j *tx.Journal, a A, b B) error {
	regA, regB := r.a.Registry, r.b.Registry
	ca, cb := regA.keys.Canonical(a), regB.keys.Canonical(b)

	la, ok := r.byA[ca]
	if !ok {
		return notLinked(r.name, a, b)
	}
	if _, linked := la.peers.find(cb); !linked {
		return notLinked(r.name, a, b)
	}
	lb := r.byB[cb]

	la.peers.remove(j, cb)
	lb.peers.remove(j, ca)
	dropIfEmpty(j, r.byA, ca)
	dropIfEmpty(j, r.byB, cb)
	r.total--
	j.Record(func() { r.total++ })

	if r.a.Lifecycle == AutoManaged && la.peers.len() == 0 && has(regA, ca) {
		if err := regA.delete(j, r.identity, a); err != nil {
			return err
		}
	}
	if r.b.Lifecycle == AutoManaged && lb.peers.len() == 0 && has(regB, cb) {
		if err := regB.delete(j, r.identity, b); err != nil {
			return err
		}
	}
	return nil
}

// Owns reports whether (a, b) is linked.
func (r *Relation[A, B]) Owns(a A, b B) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byA[r.a.Registry.keys.Canonical(a)]
	if !ok {
		return false
	}
	_, linked := l.peers.find(r.b.Registry.keys.Canonical(b))
	return linked
}

// CountForA returns how many B keys are linked to a.
func (r *Relation[A, B]) CountForA(a A) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byA[r.a.Registry.keys.Canonical(a)]; ok {
		return l.peers.len()
	}
	return 0
}

// CountForB returns how many A keys are linked to b.
func (r *Relation[A, B]) CountForB(b B) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byB[r.b.Registry.keys.Canonical(b)]; ok {
		return l.peers.len()
	}
	return 0
}

// LinkedByIndexA returns the i-th B key linked to a. Positions shift when a
// link of a is removed.
func (r *Relation[A, B]) LinkedByIndexA(a A, i int) (B, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return peerAt(r.name, r.byA[r.a.Registry.keys.Canonical(a)], i)
}

// LinkedByIndexB returns the i-th A key linked to b.
func (r *Relation[A, B]) LinkedByIndexB(b B, i int) (A, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return peerAt(r.name, r.byB[r.b.Registry.keys.Canonical(b)], i)
}

// LinksOfA returns the B keys linked to a in position order.
func (r *Relation[A, B]) LinksOfA(a A) []B {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byA[r.a.Registry.keys.Canonical(a)]; ok {
		return l.peers.snapshot()
	}
	return []B{}
}

// LinksOfB returns the A keys linked to b in position order.
func (r *Relation[A, B]) LinksOfB(b B) []A {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byB[r.b.Registry.keys.Canonical(b)]; ok {
		return l.peers.snapshot()
	}
	return []A{}
}

func (r *Relation[A, B]) TotalLinkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Links lists every pair, grouped by A in canonical order. Within a group
// the order matches LinksOfA, so Seed(Links()) rebuilds identical positions
// on the A side.
func (r *Relation[A, B]) Links() []Link[A, B] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canons := make([]string, 0, len(r.byA))
	for c := range r.byA {
		canons = append(canons, c)
	}
	sort.Strings(canons)

	out := make([]Link[A, B], 0, r.total)
	for _, c := range canons {
		l := r.byA[c]
		for _, b := range l.peers.items {
			out = append(out, Link[A, B]{A: l.key, B: b})
		}
	}
	return out
}

// Seed records pairs without authorization to restore persisted state.
// Pairs whose keys are missing from either registry are skipped and
// returned. Any other failure leaves the relation untouched.
func (r *Relation[A, B]) Seed(pairs []Link[A, B]) ([]Link[A, B], error) {
	unlock := r.lock()
	defer unlock()

	var skipped []Link[A, B]
	err := tx.Run(context.Background(), func(j *tx.Journal) error {
		for _, p := range pairs {
			if !has(r.a.Registry, r.a.Registry.keys.Canonical(p.A)) ||
				!has(r.b.Registry, r.b.Registry.keys.Canonical(p.B)) {
				skipped = append(skipped, p)
				continue
			}
			if err := r.link(j, p.A, p.B); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

func has[K any](reg *Registry[K], canon string) bool {
	_, ok := reg.index.find(canon)
	return ok
}

func listFor[K, P any](j *tx.Journal, m map[string]*links[K, P], canon string, key K) *links[K, P] {
	if l, ok := m[canon]; ok {
		return l
	}
	l := &links[K, P]{key: key, peers: newIndex[P]()}
	m[canon] = l
	j.Record(func() { delete(m, canon) })
	return l
}

func dropIfEmpty[K, P any](j *tx.Journal, m map[string]*links[K, P], canon string) {
	l, ok := m[canon]
	if !ok || l.peers.len() > 0 {
		return
	}
	delete(m, canon)
	j.Record(func() { m[canon] = l })
}

func peerAt[K, P any](name string, l *links[K, P], i int) (P, error) {
	if l == nil {
		var zero P
		return zero, indexOutOfBounds(name, i, 0)
	}
	p, ok := l.peers.at(i)
	if !ok {
		return p, indexOutOfBounds(name, i, l.peers.len())
	}
	return p, nil
}
