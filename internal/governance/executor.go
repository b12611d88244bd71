// Package governance runs proposals approved by the external vote pipeline
// against the registry catalog, with the timelock identity as caller.
// Voting, quorum and delays happen elsewhere; a scheduled proposal is
// already approved.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/requestcontext"
)

// Catalog is the subset of the registry service proposals can drive.
type Catalog interface {
	AddKey(ctx context.Context, name, key string) (int, error)
	RemoveKey(ctx context.Context, name, key string) error
	Link(ctx context.Context, name, a, b string) error
	Unlink(ctx context.Context, name, a, b string) error
	AllowCaller(ctx context.Context, name string, identity domain.Address) error
	DisallowCaller(ctx context.Context, name string, identity domain.Address) error
	TransferOwnership(ctx context.Context, name string, newOwner domain.Address) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Executor holds scheduled proposals and executes them as the timelock.
type Executor struct {
	catalog  Catalog
	timelock domain.Address
	proposer domain.Address

	mu        sync.Mutex
	proposals map[uuid.UUID]*Proposal

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(e *Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Executor) {
		e.auditPublisher = publisher
	}
}

// NewExecutor creates an executor acting as timelock. Only proposer may
// schedule and execute proposals.
func NewExecutor(catalog Catalog, timelock, proposer domain.Address, opts ...Option) *Executor {
	e := &Executor{
		catalog:   catalog,
		timelock:  timelock,
		proposer:  proposer,
		proposals: make(map[uuid.UUID]*Proposal),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Timelock returns the identity proposals run as.
func (e *Executor) Timelock() domain.Address { return e.timelock }

func (e *Executor) authorize(ctx context.Context) error {
	if requestcontext.Caller(ctx) != e.proposer {
		return dErrors.New(dErrors.CodeNotAuthorized, "caller is not the proposer")
	}
	return nil
}

// Schedule records an approved proposal.
func (e *Executor) Schedule(ctx context.Context, ops []Operation) (*Proposal, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}
	req := ScheduleRequest{Operations: slices.Clone(ops)}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Proposal{
		ID:          uuid.New(),
		Operations:  req.Operations,
		Status:      StatusScheduled,
		ScheduledAt: requestcontext.Now(ctx),
	}
	out := p.clone()
	e.mu.Lock()
	e.proposals[p.ID] = p
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "proposal scheduled",
		"proposal_id", out.ID,
		"operations", len(out.Operations),
	)
	return out, nil
}

// Get returns a copy of a proposal.
func (e *Executor) Get(_ context.Context, id uuid.UUID) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	return p.clone(), nil
}

// Execute runs the operations of a scheduled proposal in order with the
// timelock as caller. Execution stops at the first failing operation;
// operations that already committed stay committed.
func (e *Executor) Execute(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	p, ok := e.proposals[id]
	if !ok {
		e.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if p.Status != StatusScheduled {
		status := p.Status
		e.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("proposal is %s", status))
	}
	p.Status = StatusExecuting
	ops := p.Operations
	e.mu.Unlock()

	asTimelock := requestcontext.WithCaller(ctx, e.timelock)
	applied := 0
	var runErr error
	for i, op := range ops {
		if err := e.run(asTimelock, op); err != nil {
			runErr = fmt.Errorf("operation %d (%s on %s): %w", i, op.Kind, op.Target, err)
			break
		}
		applied++
	}

	now := requestcontext.Now(ctx)
	e.mu.Lock()
	p.Applied = applied
	p.ExecutedAt = &now
	p.Status = StatusExecuted
	if runErr != nil {
		p.Status = StatusFailed
		p.Failure = runErr.Error()
	}
	out := p.clone()
	e.mu.Unlock()

	e.audit(ctx, out, runErr)
	if runErr != nil {
		e.logger.WarnContext(ctx, "proposal failed",
			"proposal_id", id,
			"applied", applied,
			"error", runErr,
		)
		code := dErrors.CodeOf(runErr)
		return out, dErrors.Wrap(runErr, code, "proposal execution failed")
	}
	e.logger.InfoContext(ctx, "proposal executed",
		"proposal_id", id,
		"applied", applied,
	)
	return out, nil
}

func (e *Executor) run(ctx context.Context, op Operation) error {
	switch op.Kind {
	case OpAddKey:
		_, err := e.catalog.AddKey(ctx, op.Target, op.Key)
		return err
	case OpRemoveKey:
		return e.catalog.RemoveKey(ctx, op.Target, op.Key)
	case OpLink:
		return e.catalog.Link(ctx, op.Target, op.Key, op.Counterpart)
	case OpUnlink:
		return e.catalog.Unlink(ctx, op.Target, op.Key, op.Counterpart)
	}

	identity, err := domain.ParseAddress(op.Identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid identity")
	}
	switch op.Kind {
	case OpAllowCaller:
		return e.catalog.AllowCaller(ctx, op.Target, identity)
	case OpDisallowCaller:
		return e.catalog.DisallowCaller(ctx, op.Target, identity)
	case OpTransferOwnership:
		return e.catalog.TransferOwnership(ctx, op.Target, identity)
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown operation kind %q", op.Kind))
	}
}

func (e *Executor) audit(ctx context.Context, p *Proposal, runErr error) {
	if e.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:  string(audit.EventProposalExecuted),
		Target:  "governance",
		Key:     p.ID.String(),
		Caller:  requestcontext.Caller(ctx).String(),
		Outcome: audit.OutcomeCommitted,
	}
	if runErr != nil {
		event.Outcome = audit.OutcomeRejected
		event.Reason = string(dErrors.CodeOf(runErr))
	}
	if err := e.auditPublisher.Emit(context.WithoutCancel(ctx), event); err != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

// GateCatalog is what SetupGate needs from the registry service.
type GateCatalog interface {
	AllowCaller(ctx context.Context, name string, identity domain.Address) error
	DisallowCaller(ctx context.Context, name string, identity domain.Address) error
	TransferOwnership(ctx context.Context, name string, newOwner domain.Address) error
}

// SetupGate hands a gate registry from the deployer in ctx to the timelock:
// allow the timelock, disallow the deployer, then transfer ownership so the
// allow-list itself is governed.
func SetupGate(ctx context.Context, catalog GateCatalog, name string, timelock domain.Address) error {
	deployer := requestcontext.Caller(ctx)
	if err := catalog.AllowCaller(ctx, name, timelock); err != nil {
		return fmt.Errorf("allow timelock on %s: %w", name, err)
	}
	if deployer != timelock {
		if err := catalog.DisallowCaller(ctx, name, deployer); err != nil {
			return fmt.Errorf("disallow deployer on %s: %w", name, err)
		}
	}
	if err := catalog.TransferOwnership(ctx, name, timelock); err != nil {
		return fmt.Errorf("transfer %s to timelock: %w", name, err)
	}
	return nil
}
