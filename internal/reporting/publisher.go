// Package reporting streams finalized decisions to the divisional reporting
// pipeline over Kafka. Publishing is fire-and-forget: reporting lag must
// never slow down or fail a decision.
package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"underwrite/internal/decision"
)

// DecisionEvent is the wire shape published per finalized decision.
type DecisionEvent struct {
	DecisionID  string    `json:"decision_id"`
	SessionID   string    `json:"session_id"`
	CustomerRef string    `json:"customer_ref"`
	Outcome     string    `json:"outcome"`
	Rule        string    `json:"rule"`
	RiskScore   float64   `json:"risk_score"`
	FraudLevel  string    `json:"fraud_level"`
	Override    bool      `json:"override"`
	DecidedAt   time.Time `json:"decided_at"`
}

// Publisher produces decision events to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers. Returns nil with no error when no
// brokers are configured, so callers can treat reporting as optional.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// PublishDecision emits one event, keyed by session so a session's decision
// history stays ordered within a partition. Errors are logged, not returned;
// nil receivers no-op.
func (p *Publisher) PublishDecision(ctx context.Context, d *decision.Decision, customerRef string) {
	if p == nil {
		return
	}
	event := DecisionEvent{
		DecisionID:  d.ID.String(),
		SessionID:   d.SessionID.String(),
		CustomerRef: customerRef,
		Outcome:     string(d.Outcome),
		Rule:        d.Rule,
		RiskScore:   d.Risk.Value,
		FraudLevel:  d.Fraud.Severity.String(),
		Override:    d.IsOverride(),
		DecidedAt:   d.DecidedAt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.log(ctx, "failed to marshal decision event", "decision_id", d.ID, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(d.SessionID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.log(ctx, "failed to publish decision event", "decision_id", d.ID, "error", err)
		}
	})
}

// Close flushes pending produces and releases the client.
func (p *Publisher) Close(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.client.Flush(ctx); err != nil {
		p.log(ctx, "failed to flush reporting producer", "error", err)
	}
	p.client.Close()
}

func (p *Publisher) log(ctx context.Context, msg string, args ...any) {
	if p.logger != nil {
		p.logger.ErrorContext(ctx, msg, args...)
	}
}
