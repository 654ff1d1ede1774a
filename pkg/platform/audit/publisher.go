package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to the background worker without blocking domain
// logic. A full inbox drops operational events and logs the drop; compliance
// events block briefly instead, since losing them is a regulatory problem.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// complianceEnqueueTimeout bounds how long a compliance event may block the
// caller when the inbox is saturated.
const complianceEnqueueTimeout = 2 * time.Second

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Inbox exposes the consuming side for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit queues an event for persistence. The category is always derived from
// the action; callers cannot downgrade a compliance event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event.Category = AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.Category == CategoryCompliance {
		timer := time.NewTimer(complianceEnqueueTimeout)
		defer timer.Stop()
		select {
		case p.inbox <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "audit inbox saturated, compliance event delayed", "action", event.Action)
			}
			p.inbox <- event
			return nil
		}
	}

	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, dropping operations event", "action", event.Action)
		}
	}
	return nil
}
