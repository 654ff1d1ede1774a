package notify

import (
	"context"
	"log/slog"
)

// LogMonitor is the default Monitor: exhausted deliveries are logged at
// error level so alerting can key off them.
type LogMonitor struct {
	logger *slog.Logger
}

func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	return &LogMonitor{logger: logger}
}

func (m *LogMonitor) ReportFailure(ctx context.Context, rec DeliveryRecord, err error) {
	if m.logger == nil {
		return
	}
	m.logger.ErrorContext(ctx, "delivery exhausted retries",
		"delivery_id", rec.ID,
		"decision_id", rec.DecisionID,
		"session_id", rec.SessionID,
		"channel", rec.Channel,
		"attempts", rec.Attempts,
		"error", err,
	)
}
