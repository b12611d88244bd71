package service

import (
	"context"
	"fmt"

	"apeguard/internal/registry"
	"apeguard/internal/registry/keys"
	"apeguard/internal/registry/store"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
)

// registryHandle erases the key type of a registry behind its text codec.
type registryHandle interface {
	name() string
	describe(withItems bool) RegistryInfo
	size() int
	add(ctx context.Context, raw string) (int, error)
	remove(ctx context.Context, raw string) error
	lookup(raw string) (KeyLookup, error)
	at(idx int) (string, error)
	transferOwnership(ctx context.Context, to domain.Address) error
	allow(ctx context.Context, id domain.Address) error
	disallow(ctx context.Context, id domain.Address) error
	handOver(ctx context.Context, to domain.Address) error
	snapshot() store.Snapshot
	restore(snap store.Snapshot) error
}

type registryEntry[K any] struct {
	reg   *registry.Registry[K]
	codec keys.Codec[K]
}

func (e *registryEntry[K]) name() string { return e.reg.Name() }
func (e *registryEntry[K]) size() int { return e.reg.Size() }

func (e *registryEntry[K]) parse(raw string) (K, error) {
	k, err := e.codec.Parse(raw)
	if err != nil {
		var zero K
		return zero, dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("registry %q: cannot parse key %q", e.reg.Name(), raw))
	}
	return k, nil
}

func (e *registryEntry[K]) format(items []K) []string {
	out := make([]string, len(items))
	for i, k := range items {
		out[i] = e.codec.Format(k)
	}
	return out
}

func (e *registryEntry[K]) describe(withItems bool) RegistryInfo {
	info := RegistryInfo{
		Name:         e.reg.Name(),
		KeyPolicy:    e.reg.KeyPolicy(),
		AccessPolicy: e.reg.AccessPolicy(),
		Owner:        e.reg.Owner().String(),
		Size:         e.reg.Size(),
	}
	if allowed, ok := e.reg.AllowedCallers(); ok {
		info.Allowed = make([]string, len(allowed))
		for i, a := range allowed {
			info.Allowed[i] = a.String()
		}
	}
	if withItems {
		info.Items = e.format(e.reg.Items())
	}
	return info
}

func (e *registryEntry[K]) add(ctx context.Context, raw string) (int, error) {
	k, err := e.parse(raw)
	if err != nil {
		return 0, err
	}
	return e.reg.Add(ctx, k)
}

func (e *registryEntry[K]) remove(ctx context.Context, raw string) error {
	k, err := e.parse(raw)
	if err != nil {
		return err
	}
	return e.reg.Remove(ctx, k)
}

func (e *registryEntry[K]) lookup(raw string) (KeyLookup, error) {
	k, err := e.parse(raw)
	if err != nil {
		return KeyLookup{}, err
	}
	id, ok := e.reg.GetID(k)
	if !ok {
		return KeyLookup{Key: raw}, nil
	}
	return KeyLookup{Key: raw, Present: true, ID: id}, nil
}

func (e *registryEntry[K]) at(idx int) (string, error) {
	k, err := e.reg.GetByID(idx)
	if err != nil {
		return "", err
	}
	return e.codec.Format(k), nil
}

func (e *registryEntry[K]) transferOwnership(ctx context.Context, to domain.Address) error {
	return e.reg.TransferOwnership(ctx, to)
}

func (e *registryEntry[K]) allow(ctx context.Context, id domain.Address) error {
	return e.reg.AllowCaller(ctx, id)
}

func (e *registryEntry[K]) disallow(ctx context.Context, id domain.Address) error {
	return e.reg.DisallowCaller(ctx, id)
}

func (e *registryEntry[K]) handOver(ctx context.Context, to domain.Address) error {
	return e.reg.HandOver(ctx, to)
}

func (e *registryEntry[K]) snapshot() store.Snapshot {
	return store.Snapshot{Name: e.reg.Name(), Kind: store.KindRegistry, Items: e.format(e.reg.Items())}
}

func (e *registryEntry[K]) restore(snap store.Snapshot) error {
	items := make([]K, 0, len(snap.Items))
	for _, raw := range snap.Items {
		k, err := e.parse(raw)
		if err != nil {
			return err
		}
		items = append(items, k)
	}
	return e.reg.Seed(items)
}

// relationHandle erases both key types of a relation.
type relationHandle interface {
	name() string
	registries() (string, string)
	describe(withLinks bool) RelationInfo
	total() int
	link(ctx context.Context, a, b string) error
	unlink(ctx context.Context, a, b string) error
	owns(a, b string) (bool, error)
	linksOf(side Side, key string) (LinkedKeys, error)
	linkedAt(side Side, key string, i int) (string, error)
	transferOwnership(ctx context.Context, to domain.Address) error
	snapshot() store.Snapshot
	// restore seeds persisted links and returns how many were skipped
	// because a key is missing from its registry.
	restore(snap store.Snapshot) (int, error)
}

type relationEntry[A, B any] struct {
	rel    *registry.Relation[A, B]
	codecA keys.Codec[A]
	codecB keys.Codec[B]
}

func (e *relationEntry[A, B]) name() string { return e.rel.Name() }
func (e *relationEntry[A, B]) total() int { return e.rel.TotalLinkCount() }

func (e *relationEntry[A, B]) registries() (string, string) {
	return e.rel.SideA().Registry.Name(), e.rel.SideB().Registry.Name()
}

func (e *relationEntry[A, B]) parse(a, b string) (A, B, error) {
	ka, err := e.codecA.Parse(a)
	if err != nil {
		var za A
		var zb B
		return za, zb, dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), a))
	}
	kb, err := e.codecB.Parse(b)
	if err != nil {
		var zb B
		return ka, zb, dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), b))
	}
	return ka, kb, nil
}

func (e *relationEntry[A, B]) describe(withLinks bool) RelationInfo {
	a, b := e.rel.SideA(), e.rel.SideB()
	info := RelationInfo{
		Name:       e.rel.Name(),
		Owner:      e.rel.Owner().String(),
		Identity:   e.rel.Identity().String(),
		RegistryA:  a.Registry.Name(),
		LifecycleA: a.Lifecycle.String(),
		RegistryB:  b.Registry.Name(),
		LifecycleB: b.Lifecycle.String(),
		TotalLinks: e.rel.TotalLinkCount(),
	}
	if withLinks {
		info.Links = e.pairs()
	}
	return info
}

func (e *relationEntry[A, B]) pairs() [][2]string {
	links := e.rel.Links()
	out := make([][2]string, len(links))
	for i, l := range links {
		out[i] = [2]string{e.codecA.Format(l.A), e.codecB.Format(l.B)}
	}
	return out
}

func (e *relationEntry[A, B]) link(ctx context.Context, a, b string) error {
	ka, kb, err := e.parse(a, b)
	if err != nil {
		return err
	}
	return e.rel.Link(ctx, ka, kb)
}

func (e *relationEntry[A, B]) unlink(ctx context.Context, a, b string) error {
	ka, kb, err := e.parse(a, b)
	if err != nil {
		return err
	}
	return e.rel.Unlink(ctx, ka, kb)
}

func (e *relationEntry[A, B]) owns(a, b string) (bool, error) {
	ka, kb, err := e.parse(a, b)
	if err != nil {
		return false, err
	}
	return e.rel.Owns(ka, kb), nil
}

func (e *relationEntry[A, B]) linksOf(side Side, key string) (LinkedKeys, error) {
	out := LinkedKeys{Side: side, Key: key}
	switch side {
	case SideA:
		k, err := e.codecA.Parse(key)
		if err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), key))
		}
		for _, p := range e.rel.LinksOfA(k) {
			out.Linked = append(out.Linked, e.codecB.Format(p))
		}
	case SideB:
		k, err := e.codecB.Parse(key)
		if err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), key))
		}
		for _, p := range e.rel.LinksOfB(k) {
			out.Linked = append(out.Linked, e.codecA.Format(p))
		}
	default:
		return out, invalidSide(side)
	}
	if out.Linked == nil {
		out.Linked = []string{}
	}
	out.Count = len(out.Linked)
	return out, nil
}

func (e *relationEntry[A, B]) linkedAt(side Side, key string, i int) (string, error) {
	switch side {
	case SideA:
		k, err := e.codecA.Parse(key)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), key))
		}
		p, err := e.rel.LinkedByIndexA(k, i)
		if err != nil {
			return "", err
		}
		return e.codecB.Format(p), nil
	case SideB:
		k, err := e.codecB.Parse(key)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInvalidKey, fmt.Sprintf("relation %q: cannot parse key %q", e.rel.Name(), key))
		}
		p, err := e.rel.LinkedByIndexB(k, i)
		if err != nil {
			return "", err
		}
		return e.codecA.Format(p), nil
	default:
		return "", invalidSide(side)
	}
}

func (e *relationEntry[A, B]) transferOwnership(ctx context.Context, to domain.Address) error {
	return e.rel.TransferOwnership(ctx, to)
}

func (e *relationEntry[A, B]) snapshot() store.Snapshot {
	return store.Snapshot{Name: e.rel.Name(), Kind: store.KindRelation, Links: e.pairs()}
}

func (e *relationEntry[A, B]) restore(snap store.Snapshot) (int, error) {
	pairs := make([]registry.Link[A, B], 0, len(snap.Links))
	for _, p := range snap.Links {
		a, b, err := e.parse(p[0], p[1])
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, registry.Link[A, B]{A: a, B: b})
	}
	skipped, err := e.rel.Seed(pairs)
	return len(skipped), err
}

func invalidSide(side Side) error {
	return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("side must be %q or %q, got %q", SideA, SideB, side))
}
