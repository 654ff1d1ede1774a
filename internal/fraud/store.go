package fraud

import (
	"context"
	"time"
)

// SignalStore is the port to the analytics collaborator that accumulates
// historical fraud signals. The engine itself never touches it; the session
// service fetches History through it before evaluation.
type SignalStore interface {
	// RecordApplication registers one application/claim event for an
	// identity, feeding the velocity rule.
	RecordApplication(ctx context.Context, customerRef string, at time.Time) error

	// CountRecent returns how many events the identity produced inside
	// the window ending at now.
	CountRecent(ctx context.Context, customerRef string, window time.Duration) (int, error)

	// RecordClaimAmount folds a settled claim amount into the rolling
	// average for its type.
	RecordClaimAmount(ctx context.Context, claimType string, amount float64, at time.Time) error

	// AverageClaimAmount returns the rolling average claim amount for the
	// type over the window, or zero when there is no history inside it.
	// The window is the staleness bound: amounts older than it do not
	// participate.
	AverageClaimAmount(ctx context.Context, claimType string, window time.Duration) (float64, error)
}
