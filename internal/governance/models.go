package governance

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
)

// OpKind names the catalog call an operation performs.
type OpKind string

const (
	OpAddKey            OpKind = "add_key"
	OpRemoveKey         OpKind = "remove_key"
	OpLink              OpKind = "link"
	OpUnlink            OpKind = "unlink"
	OpAllowCaller       OpKind = "allow_caller"
	OpDisallowCaller    OpKind = "disallow_caller"
	OpTransferOwnership OpKind = "transfer_ownership"
)

// Operation is one catalog call of an approved proposal. Key and
// Counterpart carry the registry key or the two sides of a link; Identity
// carries the subject of an access change.
type Operation struct {
	Kind        OpKind `json:"kind"`
	Target      string `json:"target"`
	Key         string `json:"key,omitempty"`
	Counterpart string `json:"counterpart,omitempty"`
	Identity    string `json:"identity,omitempty"`
}

func (o Operation) validate() error {
	if strings.TrimSpace(o.Target) == "" {
		return fmt.Errorf("target is required")
	}
	switch o.Kind {
	case OpAddKey, OpRemoveKey, OpLink, OpUnlink:
		return nil
	case OpAllowCaller, OpDisallowCaller, OpTransferOwnership:
		if _, err := domain.ParseAddress(o.Identity); err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown kind %q", o.Kind)
	}
}

// Status of a proposal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusExecuting Status = "executing"
	StatusExecuted  Status = "executed"
	StatusFailed    Status = "failed"
)

// Proposal is an approved batch of operations awaiting execution.
type Proposal struct {
	ID          uuid.UUID   `json:"id"`
	Operations  []Operation `json:"operations"`
	Status      Status      `json:"status"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	ExecutedAt  *time.Time  `json:"executed_at,omitempty"`
	// Applied counts the operations that committed before a failure.
	Applied int    `json:"applied"`
	Failure string `json:"failure,omitempty"`
}

// clone returns a copy sharing no slices or pointers with p.
func (p *Proposal) clone() *Proposal {
	out := *p
	out.Operations = slices.Clone(p.Operations)
	if p.ExecutedAt != nil {
		at := *p.ExecutedAt
		out.ExecutedAt = &at
	}
	return &out
}

// ScheduleRequest is the body of POST /governance/proposals.
type ScheduleRequest struct {
	Operations []Operation `json:"operations"`
}

func (r *ScheduleRequest) Normalize() {
	for i := range r.Operations {
		r.Operations[i].Target = strings.TrimSpace(r.Operations[i].Target)
		r.Operations[i].Identity = strings.TrimSpace(r.Operations[i].Identity)
	}
}

func (r *ScheduleRequest) Validate() error {
	if len(r.Operations) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one operation is required")
	}
	for i, op := range r.Operations {
		if err := op.validate(); err != nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("operation %d: %s", i, err))
		}
	}
	return nil
}
