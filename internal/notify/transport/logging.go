package transport

import (
	"context"
	"log/slog"

	"underwrite/internal/notify"
)

// Logging stands in for external gateways (email, SMS) whose real
// transports live outside this system. It records what would have been
// sent; deployments swap in the gateway adapter.
type Logging struct {
	channel notify.Channel
	logger  *slog.Logger
}

func NewLogging(channel notify.Channel, logger *slog.Logger) *Logging {
	return &Logging{channel: channel, logger: logger}
}

func (t *Logging) Send(ctx context.Context, notice notify.Notice) error {
	if t.logger != nil {
		t.logger.InfoContext(ctx, "decision notice dispatched",
			"channel", t.channel,
			"customer_ref", notice.CustomerRef,
			"decision_id", notice.DecisionID,
			"outcome", notice.Outcome,
		)
	}
	return nil
}
