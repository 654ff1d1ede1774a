package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "underwrite/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. Rows are append-only; there is
// deliberately no update or delete path.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	// Category derives from the action; the map in pkg/platform/audit is
	// the source of truth even when callers set it.
	category := audit.AuditEvent(event.Action).Category()

	query := `
		INSERT INTO audit_events
			(id, category, recorded_at, session_id, customer_ref, action, outcome, rule, reason, request_id, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.pool.Exec(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.SessionID,
		event.CustomerRef,
		event.Action,
		event.Outcome,
		event.Rule,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySession returns the audit trail for one session in recorded order.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]audit.Event, error) {
	query := `
		SELECT category, recorded_at, session_id, customer_ref, action, outcome, rule, reason, request_id, actor_id
		FROM audit_events
		WHERE session_id = $1
		ORDER BY recorded_at ASC
	`
	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		if err := rows.Scan(&category, &e.Timestamp, &e.SessionID, &e.CustomerRef, &e.Action, &e.Outcome, &e.Rule, &e.Reason, &e.RequestID, &e.ActorID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	return events, rows.Err()
}
