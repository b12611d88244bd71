// Package service exposes the registries and relations of one deployment by
// name, with keys in their text form. Every mutation is traced, measured,
// audited and, when a snapshot store is configured, persisted.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"apeguard/internal/registry"
	"apeguard/internal/registry/keys"
	"apeguard/internal/registry/metrics"
	"apeguard/internal/registry/store"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/platform/sentinel"
	"apeguard/pkg/requestcontext"
)

const tracerName = "apeguard/registry"

// Operation names used for spans and metric labels.
const (
	OpAdd               = "add"
	OpRemove            = "remove"
	OpLink              = "link"
	OpUnlink            = "unlink"
	OpTransferOwnership = "transfer_ownership"
	OpAllowCaller       = "allow_caller"
	OpDisallowCaller    = "disallow_caller"
	OpHandOver          = "hand_over"
)

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the named catalog of registries and relations.
type Service struct {
	mu        sync.RWMutex
	regs      map[string]registryHandle
	rels      map[string]relationHandle
	regOrder  []string
	relOrder  []string
	persistMu sync.Mutex

	logger         *slog.Logger
	auditPublisher AuditPublisher
	auditReader    audit.Reader
	metrics        *metrics.Metrics
	snapshots      store.SnapshotStore
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithAuditReader enables AuditTrail.
func WithAuditReader(reader audit.Reader) Option {
	return func(s *Service) {
		s.auditReader = reader
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSnapshotStore persists registry and relation contents after every
// committed mutation and enables Restore.
func WithSnapshotStore(snapshots store.SnapshotStore) Option {
	return func(s *Service) {
		s.snapshots = snapshots
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs an empty catalog. Registries and relations are added with
// AddRegistry and AddRelation.
func New(opts ...Option) *Service {
	s := &Service{
		regs: make(map[string]registryHandle),
		rels: make(map[string]relationHandle),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// AddRegistry makes reg reachable by its name. Names are unique across
// registries and relations.
func AddRegistry[K any](s *Service, reg *registry.Registry[K], codec keys.Codec[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nameFree(reg.Name()); err != nil {
		return err
	}
	s.regs[reg.Name()] = &registryEntry[K]{reg: reg, codec: codec}
	s.regOrder = append(s.regOrder, reg.Name())
	if s.metrics != nil {
		s.metrics.SetRegistrySize(reg.Name(), reg.Size())
	}
	return nil
}

// AddRelation makes rel reachable by its name. Both of its registries must
// already be in the catalog.
func AddRelation[A, B any](s *Service, rel *registry.Relation[A, B], codecA keys.Codec[A], codecB keys.Codec[B]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nameFree(rel.Name()); err != nil {
		return err
	}
	for _, side := range []string{rel.SideA().Registry.Name(), rel.SideB().Registry.Name()} {
		if _, ok := s.regs[side]; !ok {
			return fmt.Errorf("relation %q: registry %q is not in the catalog", rel.Name(), side)
		}
	}
	s.rels[rel.Name()] = &relationEntry[A, B]{rel: rel, codecA: codecA, codecB: codecB}
	s.relOrder = append(s.relOrder, rel.Name())
	if s.metrics != nil {
		s.metrics.SetRelationLinks(rel.Name(), rel.TotalLinkCount())
	}
	return nil
}

func (s *Service) nameFree(name string) error {
	_, reg := s.regs[name]
	_, rel := s.rels[name]
	if reg || rel {
		return fmt.Errorf("name %q is already in the catalog", name)
	}
	return nil
}

func (s *Service) registry(name string) (registryHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.regs[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("registry %q not found", name))
	}
	return h, nil
}

func (s *Service) relation(name string) (relationHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.rels[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("relation %q not found", name))
	}
	return h, nil
}

// ListRegistries describes every registry in registration order.
func (s *Service) ListRegistries(_ context.Context) []RegistryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RegistryInfo, 0, len(s.regOrder))
	for _, name := range s.regOrder {
		out = append(out, s.regs[name].describe(false))
	}
	return out
}

// GetRegistry describes one registry including its items in index order.
func (s *Service) GetRegistry(_ context.Context, name string) (*RegistryInfo, error) {
	h, err := s.registry(name)
	if err != nil {
		return nil, err
	}
	info := h.describe(true)
	if info.Items == nil {
		info.Items = []string{}
	}
	return &info, nil
}

// LookupKey reports whether key is present and at which index.
func (s *Service) LookupKey(_ context.Context, name, key string) (*KeyLookup, error) {
	h, err := s.registry(name)
	if err != nil {
		return nil, err
	}
	res, err := h.lookup(key)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// KeyAt returns the key stored at idx.
func (s *Service) KeyAt(_ context.Context, name string, idx int) (string, error) {
	h, err := s.registry(name)
	if err != nil {
		return "", err
	}
	return h.at(idx)
}

// AddKey adds key to the named registry and returns its index.
func (s *Service) AddKey(ctx context.Context, name, key string) (int, error) {
	h, err := s.registry(name)
	if err != nil {
		return 0, err
	}
	var id int
	err = s.mutate(ctx, call{target: name, op: OpAdd, action: audit.EventKeyAdded, key: key}, func(ctx context.Context) error {
		var err error
		id, err = h.add(ctx, key)
		return err
	}, h)
	return id, err
}

// RemoveKey removes key from the named registry.
func (s *Service) RemoveKey(ctx context.Context, name, key string) error {
	h, err := s.registry(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpRemove, action: audit.EventKeyRemoved, key: key}, func(ctx context.Context) error {
		return h.remove(ctx, key)
	}, h)
}

// TransferOwnership moves ownership of the named registry or relation.
func (s *Service) TransferOwnership(ctx context.Context, name string, newOwner domain.Address) error {
	c := call{target: name, op: OpTransferOwnership, action: audit.EventOwnershipTransferred, counterpart: newOwner.String()}
	if h, err := s.registry(name); err == nil {
		return s.mutate(ctx, c, func(ctx context.Context) error {
			return h.transferOwnership(ctx, newOwner)
		})
	}
	h, err := s.relation(name)
	if err != nil {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%q is neither a registry nor a relation", name))
	}
	return s.mutate(ctx, c, func(ctx context.Context) error {
		return h.transferOwnership(ctx, newOwner)
	})
}

// AllowCaller adds identity to the allow-list of a gate registry.
func (s *Service) AllowCaller(ctx context.Context, name string, identity domain.Address) error {
	h, err := s.registry(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpAllowCaller, action: audit.EventCallerAllowed, counterpart: identity.String()}, func(ctx context.Context) error {
		return h.allow(ctx, identity)
	})
}

// DisallowCaller removes identity from the allow-list of a gate registry.
func (s *Service) DisallowCaller(ctx context.Context, name string, identity domain.Address) error {
	h, err := s.registry(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpDisallowCaller, action: audit.EventCallerDisallowed, counterpart: identity.String()}, func(ctx context.Context) error {
		return h.disallow(ctx, identity)
	})
}

// HandOver gives mutation rights on the named registry to identity and
// revokes the caller's.
func (s *Service) HandOver(ctx context.Context, name string, identity domain.Address) error {
	h, err := s.registry(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpHandOver, action: audit.EventHandedOver, counterpart: identity.String()}, func(ctx context.Context) error {
		return h.handOver(ctx, identity)
	})
}

// ListRelations describes every relation in registration order.
func (s *Service) ListRelations(_ context.Context) []RelationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RelationInfo, 0, len(s.relOrder))
	for _, name := range s.relOrder {
		out = append(out, s.rels[name].describe(false))
	}
	return out
}

// GetRelation describes one relation including its links.
func (s *Service) GetRelation(_ context.Context, name string) (*RelationInfo, error) {
	h, err := s.relation(name)
	if err != nil {
		return nil, err
	}
	info := h.describe(true)
	if info.Links == nil {
		info.Links = [][2]string{}
	}
	return &info, nil
}

// Link associates a and b in the named relation.
func (s *Service) Link(ctx context.Context, name, a, b string) error {
	h, err := s.relation(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpLink, action: audit.EventLinked, key: a, counterpart: b}, func(ctx context.Context) error {
		return h.link(ctx, a, b)
	}, s.relationSnapshots(h)...)
}

// Unlink removes the association between a and b.
func (s *Service) Unlink(ctx context.Context, name, a, b string) error {
	h, err := s.relation(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, call{target: name, op: OpUnlink, action: audit.EventUnlinked, key: a, counterpart: b}, func(ctx context.Context) error {
		return h.unlink(ctx, a, b)
	}, s.relationSnapshots(h)...)
}

// Owns reports whether a and b are linked.
func (s *Service) Owns(_ context.Context, name, a, b string) (bool, error) {
	h, err := s.relation(name)
	if err != nil {
		return false, err
	}
	return h.owns(a, b)
}

// LinksOf lists the peers of key on side, in index order.
func (s *Service) LinksOf(_ context.Context, name string, side Side, key string) (*LinkedKeys, error) {
	h, err := s.relation(name)
	if err != nil {
		return nil, err
	}
	res, err := h.linksOf(side, key)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// LinkedAt returns the i-th peer of key on side.
func (s *Service) LinkedAt(_ context.Context, name string, side Side, key string, i int) (string, error) {
	h, err := s.relation(name)
	if err != nil {
		return "", err
	}
	return h.linkedAt(side, key, i)
}

// AuditTrail lists the most recent audit events for target, or for every
// target when target is empty.
func (s *Service) AuditTrail(ctx context.Context, target string, limit int) ([]audit.Event, error) {
	if s.auditReader == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit trail is not available")
	}
	var (
		events []audit.Event
		err    error
	)
	if target == "" {
		events, err = s.auditReader.ListRecent(ctx, limit)
	} else {
		events, err = s.auditReader.ListByTarget(ctx, target, limit)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	return events, nil
}

// Restore seeds every registry, then every relation, from the snapshot
// store. Names without a snapshot are left as they are.
func (s *Service) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	s.mu.RLock()
	regs := make([]registryHandle, 0, len(s.regOrder))
	for _, name := range s.regOrder {
		regs = append(regs, s.regs[name])
	}
	rels := make([]relationHandle, 0, len(s.relOrder))
	for _, name := range s.relOrder {
		rels = append(rels, s.rels[name])
	}
	s.mu.RUnlock()

	restore := func(name string, fn func(store.Snapshot) error) error {
		snap, err := s.snapshots.Load(ctx, name)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load snapshot %q: %w", name, err)
		}
		if err := fn(snap); err != nil {
			return fmt.Errorf("restore %q: %w", name, err)
		}
		s.logger.InfoContext(ctx, "restored snapshot",
			"name", name,
			"kind", snap.Kind,
			"items", len(snap.Items),
			"links", len(snap.Links),
		)
		return nil
	}
	for _, h := range regs {
		if err := restore(h.name(), h.restore); err != nil {
			return err
		}
		s.recordRegistrySize(h)
	}
	for _, h := range rels {
		var skipped int
		err := restore(h.name(), func(snap store.Snapshot) error {
			var err error
			skipped, err = h.restore(snap)
			return err
		})
		if err != nil {
			return err
		}
		if skipped > 0 {
			s.logger.WarnContext(ctx, "skipped links to keys missing from their registries",
				"relation", h.name(),
				"skipped", skipped,
			)
			s.persist(ctx, h)
			continue
		}
		s.recordRelationLinks(h)
	}
	return nil
}

// snapshotter is a registry or relation whose content can be persisted.
type snapshotter interface {
	snapshot() store.Snapshot
}

func (s *Service) relationSnapshots(h relationHandle) []snapshotter {
	out := []snapshotter{h}
	a, b := h.registries()
	for _, name := range []string{a, b} {
		if reg, err := s.registry(name); err == nil {
			out = append(out, reg)
		}
	}
	return out
}

type call struct {
	target      string
	op          string
	action      audit.AuditEvent
	key         string
	counterpart string
}

// mutate runs fn inside a span, then records metrics and audit for the
// outcome. Committed calls persist the given snapshotters.
func (s *Service) mutate(ctx context.Context, c call, fn func(ctx context.Context) error, persist ...snapshotter) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registry."+c.op, trace.WithAttributes(
		attribute.String("apeguard.target", c.target),
		attribute.String("apeguard.op", c.op),
	))
	defer span.End()

	caller := requestcontext.Caller(ctx)
	err := fn(ctx)
	ctx = context.WithoutCancel(ctx)
	if s.metrics != nil {
		s.metrics.ObserveMutation(c.target, c.op, err, start)
	}

	event := audit.Event{
		Action:      string(c.action),
		Target:      c.target,
		Key:         c.key,
		Counterpart: c.counterpart,
		Caller:      caller.String(),
	}
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("apeguard.error_code", string(code)))

		event.Outcome = audit.OutcomeRejected
		event.Reason = string(code)
		if code == dErrors.CodeNotAuthorized {
			event.Category = audit.CategorySecurity
		}
		s.logger.WarnContext(ctx, "registry call rejected",
			"target", c.target,
			"op", c.op,
			"caller", caller.String(),
			"code", code,
			"error", err,
		)
		s.emit(ctx, event)
		return err
	}

	span.SetStatus(codes.Ok, "")
	event.Outcome = audit.OutcomeCommitted
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "registry call committed",
		"target", c.target,
		"op", c.op,
		"caller", caller.String(),
	)
	s.persist(ctx, persist...)
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"target", event.Target,
			"error", err,
		)
	}
}

// persist saves the current content of each snapshotter and refreshes the
// size gauges. Snapshots are taken and saved in one critical section so a
// later save never carries older content. Save failures are logged; the
// in-memory commit stands.
func (s *Service) persist(ctx context.Context, targets ...snapshotter) {
	for _, t := range targets {
		switch h := t.(type) {
		case registryHandle:
			s.recordRegistrySize(h)
		case relationHandle:
			s.recordRelationLinks(h)
		}
	}
	if s.snapshots == nil || len(targets) == 0 {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	for _, t := range targets {
		snap := t.snapshot()
		snap.SavedAt = requestcontext.Now(ctx)
		if err := s.snapshots.Save(ctx, snap); err != nil {
			s.logger.ErrorContext(ctx, "failed to save snapshot",
				"name", snap.Name,
				"error", err,
			)
		}
	}
}

func (s *Service) recordRegistrySize(h registryHandle) {
	if s.metrics != nil {
		s.metrics.SetRegistrySize(h.name(), h.size())
	}
}

func (s *Service) recordRelationLinks(h relationHandle) {
	if s.metrics != nil {
		s.metrics.SetRelationLinks(h.name(), h.total())
	}
}
