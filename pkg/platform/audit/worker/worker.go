package worker

import (
	"context"
	"log/slog"

	audit "underwrite/pkg/platform/audit"
)

// Worker consumes audit events from the publisher inbox and persists them.
// Store failures are logged and the worker keeps draining; one bad write
// must not stall the audit trail behind it.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "audit append failed",
						"action", event.Action,
						"session_id", event.SessionID,
						"error", err,
					)
				}
			}
		}
	}
}
