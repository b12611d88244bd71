package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	audit "apeguard/pkg/platform/audit"
)

// Schema creates the audit table. Event IDs are unique so replays from the
// Kafka stream or a retrying worker are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           UUID PRIMARY KEY,
	category     TEXT NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	action       TEXT NOT NULL,
	target       TEXT NOT NULL,
	key          TEXT NOT NULL DEFAULT '',
	counterpart  TEXT NOT NULL DEFAULT '',
	caller       TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_target_idx ON audit_events (target, occurred_at DESC);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts an event. Duplicate IDs are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, action, target, key, counterpart,
			caller, request_id, outcome, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.Action,
		event.Target,
		event.Key,
		event.Counterpart,
		event.Caller,
		event.RequestID,
		event.Outcome,
		event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `id, category, occurred_at, action, target, key, counterpart, caller, request_id, outcome, reason`

// ListByTarget returns up to limit events for target, most recent first.
func (s *Store) ListByTarget(ctx context.Context, target string, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_events WHERE target = $1 ORDER BY occurred_at DESC LIMIT $2`
	return s.list(ctx, query, target, normalizeLimit(limit))
}

// ListRecent returns up to limit events, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_events ORDER BY occurred_at DESC LIMIT $1`
	return s.list(ctx, query, normalizeLimit(limit))
}

// ListByActions returns up to limit events whose action is one of actions.
func (s *Store) ListByActions(ctx context.Context, actions []string, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_events WHERE action = ANY($1) ORDER BY occurred_at DESC LIMIT $2`
	return s.list(ctx, query, pq.Array(actions), normalizeLimit(limit))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var e audit.Event
		var category string
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &e.Action, &e.Target, &e.Key,
			&e.Counterpart, &e.Caller, &e.RequestID, &e.Outcome, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 1000
	}
	return limit
}
