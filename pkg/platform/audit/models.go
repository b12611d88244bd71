package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryGovernance covers changes to who may mutate a registry or
	// relation. These are kept the longest.
	CategoryGovernance EventCategory = "governance"
	// CategorySecurity covers calls rejected for lack of authorization.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers membership and link changes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted after every registry or relation call that reaches the
// core, whether it committed or was rejected.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Target is the registry or relation name.
	Target string
	// Key is the registry key, or the A side of a link.
	Key string
	// Counterpart is the B side of a link, or the identity an access change
	// is about.
	Counterpart string
	Caller      string
	RequestID   string
	Outcome     string
	Reason      string
}

type AuditEvent string

const (
	EventKeyAdded             AuditEvent = "key_added"
	EventKeyRemoved           AuditEvent = "key_removed"
	EventLinked               AuditEvent = "linked"
	EventUnlinked             AuditEvent = "unlinked"
	EventOwnershipTransferred AuditEvent = "ownership_transferred"
	EventCallerAllowed        AuditEvent = "caller_allowed"
	EventCallerDisallowed     AuditEvent = "caller_disallowed"
	EventHandedOver           AuditEvent = "handed_over"
	EventProposalExecuted     AuditEvent = "proposal_executed"
)

// Outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventOwnershipTransferred: CategoryGovernance,
	EventCallerAllowed:        CategoryGovernance,
	EventCallerDisallowed:     CategoryGovernance,
	EventHandedOver:           CategoryGovernance,
	EventProposalExecuted:     CategoryGovernance,

	EventKeyAdded:   CategoryOperations,
	EventKeyRemoved: CategoryOperations,
	EventLinked:     CategoryOperations,
	EventUnlinked:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted audit events, most recent first.
type Reader interface {
	ListByTarget(ctx context.Context, target string, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
