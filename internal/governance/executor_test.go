package governance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"apeguard/internal/registry"
	"apeguard/internal/registry/keys"
	"apeguard/internal/registry/service"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/platform/audit/publisher"
	"apeguard/pkg/platform/audit/store/memory"
	"apeguard/pkg/requestcontext"
)

type ExecutorSuite struct {
	suite.Suite
	deployer    domain.Address
	timelock    domain.Address
	proposer    domain.Address
	asDeployer  context.Context
	asProposer  context.Context
	catalog     *service.Service
	auditEvents *memory.InMemoryStore
	executor    *Executor
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.deployer = domain.NewAddress()
	s.timelock = domain.NewAddress()
	s.proposer = domain.NewAddress()
	s.asDeployer = requestcontext.WithCaller(context.Background(), s.deployer)
	s.asProposer = requestcontext.WithCaller(context.Background(), s.proposer)

	s.catalog = service.New()
	s.Require().NoError(service.AddRegistry(s.catalog, registry.NewAddressesRegistry(s.deployer), keys.AddressCodec{}))
	s.Require().NoError(SetupGate(s.asDeployer, s.catalog, registry.AddressesName, s.timelock))

	s.auditEvents = memory.NewInMemoryStore()
	s.executor = NewExecutor(s.catalog, s.timelock, s.proposer,
		WithAuditPublisher(publisher.NewPublisher(s.auditEvents)),
	)
}

func (s *ExecutorSuite) addOp(addr domain.Address) Operation {
	return Operation{Kind: OpAddKey, Target: registry.AddressesName, Key: addr.String()}
}

func (s *ExecutorSuite) TestSetupGate() {
	info, err := s.catalog.GetRegistry(s.asDeployer, registry.AddressesName)
	s.Require().NoError(err)
	s.Equal(s.timelock.String(), info.Owner)
	s.Equal([]string{s.timelock.String()}, info.Allowed)

	_, err = s.catalog.AddKey(s.asDeployer, registry.AddressesName, domain.NewAddress().String())
	s.Equal(dErrors.CodeNotAuthorized, dErrors.CodeOf(err))
}

func (s *ExecutorSuite) TestExecuteRunsAsTimelock() {
	a, b := domain.NewAddress(), domain.NewAddress()
	p, err := s.executor.Schedule(s.asProposer, []Operation{s.addOp(a), s.addOp(b)})
	s.Require().NoError(err)
	s.Equal(StatusScheduled, p.Status)

	done, err := s.executor.Execute(s.asProposer, p.ID)
	s.Require().NoError(err)
	s.Equal(StatusExecuted, done.Status)
	s.Equal(2, done.Applied)
	s.NotNil(done.ExecutedAt)

	info, err := s.catalog.GetRegistry(s.asProposer, registry.AddressesName)
	s.Require().NoError(err)
	s.Equal([]string{a.String(), b.String()}, info.Items)

	events, err := s.auditEvents.ListRecent(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventProposalExecuted), events[0].Action)
	s.Equal(p.ID.String(), events[0].Key)
	s.Equal(audit.OutcomeCommitted, events[0].Outcome)

	_, err = s.executor.Execute(s.asProposer, p.ID)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *ExecutorSuite) TestFailureStopsExecution() {
	a, b := domain.NewAddress(), domain.NewAddress()
	p, err := s.executor.Schedule(s.asProposer, []Operation{s.addOp(a), s.addOp(a), s.addOp(b)})
	s.Require().NoError(err)

	done, err := s.executor.Execute(s.asProposer, p.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeDuplicateKey, dErrors.CodeOf(err))
	s.Require().NotNil(done)
	s.Equal(StatusFailed, done.Status)
	s.Equal(1, done.Applied)
	s.Contains(done.Failure, "operation 1")

	info, err := s.catalog.GetRegistry(s.asProposer, registry.AddressesName)
	s.Require().NoError(err)
	s.Equal([]string{a.String()}, info.Items)

	got, err := s.executor.Get(s.asProposer, p.ID)
	s.Require().NoError(err)
	s.Equal(StatusFailed, got.Status)
}

func (s *ExecutorSuite) TestAccessOperations() {
	next := domain.NewAddress()
	p, err := s.executor.Schedule(s.asProposer, []Operation{
		{Kind: OpAllowCaller, Target: registry.AddressesName, Identity: next.String()},
		{Kind: OpDisallowCaller, Target: registry.AddressesName, Identity: s.timelock.String()},
	})
	s.Require().NoError(err)
	_, err = s.executor.Execute(s.asProposer, p.ID)
	s.Require().NoError(err)

	info, err := s.catalog.GetRegistry(s.asProposer, registry.AddressesName)
	s.Require().NoError(err)
	s.Equal([]string{next.String()}, info.Allowed)
}

func (s *ExecutorSuite) TestReturnedProposalsAreCopies() {
	a, b := domain.NewAddress(), domain.NewAddress()
	ops := []Operation{s.addOp(a)}
	p, err := s.executor.Schedule(s.asProposer, ops)
	s.Require().NoError(err)

	ops[0] = s.addOp(b)
	p.Operations[0] = s.addOp(b)
	got, err := s.executor.Get(s.asProposer, p.ID)
	s.Require().NoError(err)
	got.Operations[0].Key = b.String()

	stored, err := s.executor.Get(s.asProposer, p.ID)
	s.Require().NoError(err)
	s.Equal([]Operation{s.addOp(a)}, stored.Operations)

	done, err := s.executor.Execute(s.asProposer, p.ID)
	s.Require().NoError(err)
	done.Operations = append(done.Operations[:0], s.addOp(b))
	*done.ExecutedAt = time.Time{}

	stored, err = s.executor.Get(s.asProposer, p.ID)
	s.Require().NoError(err)
	s.Equal([]Operation{s.addOp(a)}, stored.Operations)
	s.False(stored.ExecutedAt.IsZero())
}

func (s *ExecutorSuite) TestRejections() {
	s.Run("only the proposer schedules", func() {
		_, err := s.executor.Schedule(s.asDeployer, []Operation{s.addOp(domain.NewAddress())})
		s.Equal(dErrors.CodeNotAuthorized, dErrors.CodeOf(err))
	})

	s.Run("only the proposer executes", func() {
		p, err := s.executor.Schedule(s.asProposer, []Operation{s.addOp(domain.NewAddress())})
		s.Require().NoError(err)
		_, err = s.executor.Execute(s.asDeployer, p.ID)
		s.Equal(dErrors.CodeNotAuthorized, dErrors.CodeOf(err))
	})

	s.Run("empty proposal", func() {
		_, err := s.executor.Schedule(s.asProposer, nil)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("unknown kind", func() {
		_, err := s.executor.Schedule(s.asProposer, []Operation{{Kind: "burn", Target: registry.AddressesName}})
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("bad identity", func() {
		_, err := s.executor.Schedule(s.asProposer, []Operation{{Kind: OpAllowCaller, Target: registry.AddressesName, Identity: "bob"}})
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("unknown proposal", func() {
		_, err := s.executor.Execute(s.asProposer, uuid.New())
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
		_, err = s.executor.Get(s.asProposer, uuid.New())
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}
