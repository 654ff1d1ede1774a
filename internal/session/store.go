package session

import (
	"context"
	"time"

	"underwrite/internal/decision"
	"underwrite/pkg/domain"
)

// Store persists sessions. Implementations must serialize Mutate and
// FinalizeDecision per session: within one session, mutations queue rather
// than race. Stores return pkg/platform/sentinel errors; the service
// translates them into domain errors.
type Store interface {
	Create(ctx context.Context, s *Session) error

	// Get returns a snapshot of the session. Callers must not assume the
	// snapshot stays current.
	Get(ctx context.Context, id domain.SessionID) (*Session, error)

	// Mutate applies fn to the session under the session's own lock and
	// persists the result if fn returns nil. Any error from fn aborts the
	// mutation entirely: the operation fully applies or fully rejects.
	Mutate(ctx context.Context, id domain.SessionID, fn func(*Session) error) (*Session, error)

	// FinalizeDecision atomically swaps READY_FOR_DECISION to DECIDED and
	// appends d. It is the compare-and-swap that guarantees exactly one
	// finalized decision per session:
	//   - on a won swap, returns d
	//   - when already DECIDED, returns the existing current decision
	//     wrapped with sentinel.ErrConflict
	//   - in any other state, returns sentinel.ErrInvalidState
	FinalizeDecision(ctx context.Context, id domain.SessionID, d *decision.Decision) (*decision.Decision, error)

	// ListIdle returns sessions in non-terminal states whose last update
	// precedes cutoff, for the abandonment reaper.
	ListIdle(ctx context.Context, cutoff time.Time) ([]*Session, error)
}
