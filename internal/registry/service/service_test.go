package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"apeguard/internal/registry"
	"apeguard/internal/registry/keys"
	"apeguard/internal/registry/metrics"
	"apeguard/internal/registry/store"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/platform/audit/publisher"
	auditmemory "apeguard/pkg/platform/audit/store/memory"
	"apeguard/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	deployer  domain.Address
	ctx       context.Context
	audit     *auditmemory.InMemoryStore
	snapshots *store.InMemory
	metrics   *metrics.Metrics
	spans     *tracetest.SpanRecorder
	service   *Service
	relation  *registry.Relation[domain.Address, string]
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.deployer = domain.NewAddress()
	s.ctx = requestcontext.WithCaller(context.Background(), s.deployer)
	s.audit = auditmemory.NewInMemoryStore()
	s.snapshots = store.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.spans = tracetest.NewSpanRecorder()
	s.service, s.relation = s.build()
}

// build wires a protocols registry, an executors registry and the
// protocol-executor relation over them.
func (s *ServiceSuite) build() (*Service, *registry.Relation[domain.Address, string]) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))
	svc := New(
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithAuditReader(s.audit),
		WithMetrics(s.metrics),
		WithSnapshotStore(s.snapshots),
		WithTracer(tp.Tracer("test")),
	)
	protocols := registry.NewProtocolsRegistry(s.deployer)
	executors := registry.NewExecutorsRegistry(s.deployer)
	rel := registry.NewProtocolExecutor(s.deployer, executors, protocols)
	s.Require().NoError(executors.HandOver(s.ctx, rel.Identity()))

	s.Require().NoError(AddRegistry(svc, protocols, keys.Strings{}))
	s.Require().NoError(AddRegistry(svc, executors, keys.AddressCodec{}))
	s.Require().NoError(AddRelation(svc, rel, keys.AddressCodec{}, keys.Strings{}))
	return svc, rel
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func (s *ServiceSuite) TestCatalogNames() {
	s.Run("duplicate names are refused", func() {
		err := AddRegistry(s.service, registry.NewProtocolsRegistry(s.deployer), keys.Strings{})
		s.ErrorContains(err, "already in the catalog")
	})

	s.Run("relation needs its registries in the catalog", func() {
		svc := New()
		protocols := registry.NewProtocolsRegistry(s.deployer)
		executors := registry.NewExecutorsRegistry(s.deployer)
		s.Require().NoError(AddRegistry(svc, protocols, keys.Strings{}))
		err := AddRelation(svc, registry.NewProtocolExecutor(s.deployer, executors, protocols), keys.AddressCodec{}, keys.Strings{})
		s.ErrorContains(err, "not in the catalog")
	})

	s.Run("unknown names are not found", func() {
		_, err := s.service.AddKey(s.ctx, "nope", "x")
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.GetRelation(s.ctx, "nope")
		s.requireCode(err, dErrors.CodeNotFound)
		err = s.service.TransferOwnership(s.ctx, "nope", domain.NewAddress())
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("listings keep registration order", func() {
		regs := s.service.ListRegistries(s.ctx)
		s.Require().Len(regs, 2)
		s.Equal(registry.ProtocolsName, regs[0].Name)
		s.Equal(registry.ExecutorsName, regs[1].Name)
		rels := s.service.ListRelations(s.ctx)
		s.Require().Len(rels, 1)
		s.Equal("required", rels[0].LifecycleB)
		s.Equal("auto", rels[0].LifecycleA)
	})
}

func (s *ServiceSuite) TestRegistryKeys() {
	id, err := s.service.AddKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	s.Equal(0, id)
	id, err = s.service.AddKey(s.ctx, registry.ProtocolsName, "UniSwap")
	s.Require().NoError(err)
	s.Equal(1, id)

	_, err = s.service.AddKey(s.ctx, registry.ProtocolsName, "aave")
	s.requireCode(err, dErrors.CodeDuplicateKey)

	lookup, err := s.service.LookupKey(s.ctx, registry.ProtocolsName, "uniswap")
	s.Require().NoError(err)
	s.True(lookup.Present)
	s.Equal(1, lookup.ID)

	key, err := s.service.KeyAt(s.ctx, registry.ProtocolsName, 0)
	s.Require().NoError(err)
	s.Equal("AAVE", key)
	_, err = s.service.KeyAt(s.ctx, registry.ProtocolsName, 2)
	s.requireCode(err, dErrors.CodeIndexOutOfBounds)

	s.Require().NoError(s.service.RemoveKey(s.ctx, registry.ProtocolsName, "aave"))
	info, err := s.service.GetRegistry(s.ctx, registry.ProtocolsName)
	s.Require().NoError(err)
	s.Equal([]string{"UniSwap"}, info.Items)
	s.Equal(s.deployer.String(), info.Owner)
	s.Equal("casefold", info.KeyPolicy)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.RegistrySize.WithLabelValues(registry.ProtocolsName)))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues(registry.ProtocolsName, OpAdd, metrics.OutcomeOK)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues(registry.ProtocolsName, OpAdd, metrics.OutcomeRejected)))

	snap, err := s.snapshots.Load(s.ctx, registry.ProtocolsName)
	s.Require().NoError(err)
	s.Equal([]string{"UniSwap"}, snap.Items)
}

func (s *ServiceSuite) TestInvalidKeyText() {
	_, err := s.service.AddKey(s.ctx, registry.ExecutorsName, "not-an-address")
	s.requireCode(err, dErrors.CodeInvalidKey)
	err = s.service.Link(s.ctx, registry.ProtocolExecutorName, "0x12", "AAVE")
	s.requireCode(err, dErrors.CodeInvalidKey)
}

func (s *ServiceSuite) TestRejectedCallIsAudited() {
	stranger := requestcontext.WithCaller(context.Background(), domain.NewAddress())
	_, err := s.service.AddKey(stranger, registry.ProtocolsName, "AAVE")
	s.requireCode(err, dErrors.CodeNotAuthorized)

	events, err := s.service.AuditTrail(s.ctx, registry.ProtocolsName, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.OutcomeRejected, events[0].Outcome)
	s.Equal(audit.CategorySecurity, events[0].Category)
	s.Equal(string(dErrors.CodeNotAuthorized), events[0].Reason)
	s.Equal(string(audit.EventKeyAdded), events[0].Action)

	ended := s.spans.Ended()
	s.Require().NotEmpty(ended)
	last := ended[len(ended)-1]
	s.Equal("registry."+OpAdd, last.Name())
	s.Equal(codes.Error, last.Status().Code)

	_, err = s.snapshots.Load(s.ctx, registry.ProtocolsName)
	s.Error(err)
}

func (s *ServiceSuite) TestLinkLifecycle() {
	_, err := s.service.AddKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	exec := domain.NewAddress()

	s.Require().NoError(s.service.Link(s.ctx, registry.ProtocolExecutorName, exec.String(), "aave"))

	lookup, err := s.service.LookupKey(s.ctx, registry.ExecutorsName, exec.String())
	s.Require().NoError(err)
	s.True(lookup.Present)

	owns, err := s.service.Owns(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE")
	s.Require().NoError(err)
	s.True(owns)

	linked, err := s.service.LinksOf(s.ctx, registry.ProtocolExecutorName, SideB, "AAVE")
	s.Require().NoError(err)
	s.Equal(1, linked.Count)
	s.Equal([]string{exec.String()}, linked.Linked)

	peer, err := s.service.LinkedAt(s.ctx, registry.ProtocolExecutorName, SideA, exec.String(), 0)
	s.Require().NoError(err)
	s.Equal("AAVE", peer)
	_, err = s.service.LinkedAt(s.ctx, registry.ProtocolExecutorName, SideA, exec.String(), 1)
	s.requireCode(err, dErrors.CodeIndexOutOfBounds)
	_, err = s.service.LinksOf(s.ctx, registry.ProtocolExecutorName, Side("c"), "AAVE")
	s.requireCode(err, dErrors.CodeBadRequest)

	relSnap, err := s.snapshots.Load(s.ctx, registry.ProtocolExecutorName)
	s.Require().NoError(err)
	s.Equal([][2]string{{exec.String(), "AAVE"}}, relSnap.Links)
	execSnap, err := s.snapshots.Load(s.ctx, registry.ExecutorsName)
	s.Require().NoError(err)
	s.Equal([]string{exec.String()}, execSnap.Items)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RelationLinks.WithLabelValues(registry.ProtocolExecutorName)))

	s.Require().NoError(s.service.Unlink(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE"))
	lookup, err = s.service.LookupKey(s.ctx, registry.ExecutorsName, exec.String())
	s.Require().NoError(err)
	s.False(lookup.Present)
	err = s.service.Unlink(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE")
	s.requireCode(err, dErrors.CodeNotLinked)
}

func (s *ServiceSuite) TestRestore() {
	_, err := s.service.AddKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	_, err = s.service.AddKey(s.ctx, registry.ProtocolsName, "Compound")
	s.Require().NoError(err)
	exec := domain.NewAddress()
	s.Require().NoError(s.service.Link(s.ctx, registry.ProtocolExecutorName, exec.String(), "Compound"))

	restored, _ := s.build()
	s.Require().NoError(restored.Restore(s.ctx))

	info, err := restored.GetRegistry(s.ctx, registry.ProtocolsName)
	s.Require().NoError(err)
	s.Equal([]string{"AAVE", "Compound"}, info.Items)
	rel, err := restored.GetRelation(s.ctx, registry.ProtocolExecutorName)
	s.Require().NoError(err)
	s.Equal(1, rel.TotalLinks)
	s.Equal([][2]string{{exec.String(), "Compound"}}, rel.Links)
}

func (s *ServiceSuite) TestRemoveLinkedKey() {
	_, err := s.service.AddKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	exec := domain.NewAddress()
	s.Require().NoError(s.service.Link(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE"))

	err = s.service.RemoveKey(s.ctx, registry.ProtocolsName, "aave")
	s.requireCode(err, dErrors.CodeConflict)
	s.ErrorIs(err, registry.ErrKeyLinked)

	lookup, err := s.service.LookupKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	s.True(lookup.Present)
	owns, err := s.service.Owns(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE")
	s.Require().NoError(err)
	s.True(owns)

	s.Require().NoError(s.service.Unlink(s.ctx, registry.ProtocolExecutorName, exec.String(), "AAVE"))
	s.Require().NoError(s.service.RemoveKey(s.ctx, registry.ProtocolsName, "AAVE"))

	restored, rel := s.build()
	s.Require().NoError(restored.Restore(s.ctx))
	s.Equal(0, rel.TotalLinkCount())
}

func (s *ServiceSuite) TestRestoreSkipsLinksToMissingKeys() {
	_, err := s.service.AddKey(s.ctx, registry.ProtocolsName, "AAVE")
	s.Require().NoError(err)
	_, err = s.service.AddKey(s.ctx, registry.ProtocolsName, "Compound")
	s.Require().NoError(err)
	kept, gone := domain.NewAddress(), domain.NewAddress()
	s.Require().NoError(s.service.Link(s.ctx, registry.ProtocolExecutorName, kept.String(), "Compound"))
	s.Require().NoError(s.service.Link(s.ctx, registry.ProtocolExecutorName, gone.String(), "AAVE"))

	// A protocols snapshot written without AAVE while its link survived.
	s.Require().NoError(s.snapshots.Save(s.ctx, store.Snapshot{
		Name:  registry.ProtocolsName,
		Kind:  store.KindRegistry,
		Items: []string{"Compound"},
	}))

	restored, rel := s.build()
	s.Require().NoError(restored.Restore(s.ctx))

	s.Equal(1, rel.TotalLinkCount())
	s.True(rel.Owns(kept, "Compound"))
	s.False(rel.Owns(gone, "AAVE"))

	relSnap, err := s.snapshots.Load(s.ctx, registry.ProtocolExecutorName)
	s.Require().NoError(err)
	s.Equal([][2]string{{kept.String(), "Compound"}}, relSnap.Links)
}

func (s *ServiceSuite) TestRestoreWithoutSnapshots() {
	s.NoError(s.service.Restore(s.ctx))
	s.NoError(New().Restore(s.ctx))
}

func (s *ServiceSuite) TestAccessOperations() {
	s.Run("allow-list on an owner registry is refused", func() {
		err := s.service.AllowCaller(s.ctx, registry.ProtocolsName, domain.NewAddress())
		s.requireCode(err, dErrors.CodeBadRequest)
	})

	s.Run("relation ownership transfer", func() {
		next := domain.NewAddress()
		s.Require().NoError(s.service.TransferOwnership(s.ctx, registry.ProtocolExecutorName, next))
		s.Equal(next, s.relation.Owner())
		err := s.service.Link(s.ctx, registry.ProtocolExecutorName, domain.NewAddress().String(), "AAVE")
		s.requireCode(err, dErrors.CodeNotAuthorized)
	})

	s.Run("registry hand over", func() {
		next := domain.NewAddress()
		s.Require().NoError(s.service.HandOver(s.ctx, registry.ProtocolsName, next))
		info, err := s.service.GetRegistry(s.ctx, registry.ProtocolsName)
		s.Require().NoError(err)
		s.Equal(next.String(), info.Owner)

		events, err := s.service.AuditTrail(s.ctx, registry.ProtocolsName, 1)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventHandedOver), events[0].Action)
		s.Equal(audit.CategoryGovernance, events[0].Category)
		s.Equal(next.String(), events[0].Counterpart)
	})
}

func (s *ServiceSuite) TestAuditTrailUnavailable() {
	_, err := New().AuditTrail(s.ctx, "", 10)
	s.requireCode(err, dErrors.CodeNotFound)
}
