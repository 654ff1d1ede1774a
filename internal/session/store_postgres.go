package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	"underwrite/pkg/domain"
	"underwrite/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL. The state column carries
// the compare-and-swap; everything else rides in a JSONB payload so the
// schema does not chase the domain model. Per-session serialization comes
// from SELECT ... FOR UPDATE inside Mutate.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL this store expects. Applied by migrations in
// production and by ApplySchema in integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS underwriting_sessions (
	id           UUID PRIMARY KEY,
	customer_ref TEXT NOT NULL,
	state        TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_decisions (
	id         UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES underwriting_sessions(id),
	seq        INT NOT NULL,
	outcome    TEXT NOT NULL,
	rule       TEXT NOT NULL,
	decided_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL,
	UNIQUE (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_sessions_state_updated
	ON underwriting_sessions (state, updated_at);
`

// payload is the JSONB shape of everything outside the indexed columns.
type payload struct {
	Kind      IntakeKind                    `json:"kind"`
	Claim     *ClaimDetails                 `json:"claim,omitempty"`
	Device    string                        `json:"device,omitempty"`
	Answers   map[catalog.QuestionID]Answer `json:"answers,omitempty"`
	Documents []DocumentRecord              `json:"documents,omitempty"`
	Health    *HealthAssessment             `json:"health,omitempty"`
	Risk      *riskScoreJSON                `json:"risk,omitempty"`
	Fraud     *fraudSignalJSON              `json:"fraud,omitempty"`
}

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	body, err := marshalPayload(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO underwriting_sessions (id, customer_ref, state, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID.String(), sess.CustomerRef, string(sess.State), body, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.SessionID) (*Session, error) {
	return s.load(ctx, s.db, id, false)
}

func (s *PostgresStore) Mutate(ctx context.Context, id domain.SessionID, fn func(*Session) error) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sess, err := s.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) FinalizeDecision(ctx context.Context, id domain.SessionID, d *decision.Decision) (*decision.Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The swap: only one transaction can move READY_FOR_DECISION to
	// DECIDED. Everything after this statement runs only for the winner.
	res, err := tx.ExecContext(ctx, `
		UPDATE underwriting_sessions
		SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4
	`, string(StateDecided), time.Now().UTC(), id.String(), string(StateReadyForDecision))
	if err != nil {
		return nil, fmt.Errorf("finalize swap: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("finalize swap result: %w", err)
	}

	if affected == 0 {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM underwriting_sessions WHERE id = $1`, id.String(),
		).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("finalize state check: %w", err)
		}
		if State(state) != StateDecided {
			return nil, sentinel.ErrInvalidState
		}
		winner, err := s.latestDecision(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		return winner, sentinel.ErrConflict
	}

	if err := insertDecision(ctx, tx, id, d); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListIdle(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM underwriting_sessions
		WHERE state NOT IN ($1, $2) AND updated_at < $3
	`, string(StateDecided), string(StateAbandoned), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []domain.SessionID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan idle session id: %w", err)
		}
		id, err := domain.ParseSessionID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// querier abstracts *sql.DB and *sql.Tx for shared load/save paths.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) load(ctx context.Context, q querier, id domain.SessionID, forUpdate bool) (*Session, error) {
	query := `
		SELECT customer_ref, state, payload, created_at, updated_at
		FROM underwriting_sessions WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		customerRef string
		state       string
		body        []byte
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := q.QueryRowContext(ctx, query, id.String()).Scan(&customerRef, &state, &body, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess, err := unmarshalPayload(body)
	if err != nil {
		return nil, err
	}
	sess.ID = id
	sess.CustomerRef = customerRef
	sess.State = State(state)
	sess.CreatedAt = createdAt
	sess.UpdatedAt = updatedAt

	decisions, err := s.listDecisions(ctx, q, id)
	if err != nil {
		return nil, err
	}
	sess.Decisions = decisions
	return sess, nil
}

func (s *PostgresStore) save(ctx context.Context, q querier, sess *Session) error {
	body, err := marshalPayload(sess)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE underwriting_sessions
		SET customer_ref = $1, state = $2, payload = $3, updated_at = $4
		WHERE id = $5
	`, sess.CustomerRef, string(sess.State), body, sess.UpdatedAt, sess.ID.String())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session result: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	// Persist decisions appended by the mutation (override flow). seq is
	// the position in history; the unique constraint makes replays inert.
	for i := range sess.Decisions {
		if err := upsertDecision(ctx, q, sess.ID, i, &sess.Decisions[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertDecision(ctx context.Context, q querier, sessionID domain.SessionID, d *decision.Decision) error {
	return upsertDecision(ctx, q, sessionID, 0, d)
}

func upsertDecision(ctx context.Context, q querier, sessionID domain.SessionID, seq int, d *decision.Decision) error {
	body, err := json.Marshal(decisionJSONFrom(d))
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO session_decisions (id, session_id, seq, outcome, rule, decided_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, seq) DO NOTHING
	`, d.ID.String(), sessionID.String(), seq, string(d.Outcome), d.Rule, d.DecidedAt, body)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) listDecisions(ctx context.Context, q querier, id domain.SessionID) ([]decision.Decision, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT payload FROM session_decisions WHERE session_id = $1 ORDER BY seq ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []decision.Decision
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		var dj decisionJSON
		if err := json.Unmarshal(body, &dj); err != nil {
			return nil, fmt.Errorf("unmarshal decision: %w", err)
		}
		d, err := dj.toDecision()
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) latestDecision(ctx context.Context, q querier, id domain.SessionID) (*decision.Decision, error) {
	decisions, err := s.listDecisions(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &decisions[len(decisions)-1], nil
}

// isUniqueViolation matches Postgres error code 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
