package audit

import "context"

// Store persists audit events. Implementations must be append-only; audit
// records are never edited or deleted inside their retention window.
type Store interface {
	Append(ctx context.Context, event Event) error
}
