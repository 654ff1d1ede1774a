package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"underwrite/internal/notify/metrics"
	"underwrite/pkg/domain"
	dErrors "underwrite/pkg/domain-errors"
	"underwrite/pkg/platform/audit"
	"underwrite/pkg/platform/sentinel"
)

// Transport delivers one notice over one channel. Implementations talk to
// the actual gateway (email, SMS, signing service, portal); a returned error
// is retryable from the dispatcher's point of view.
type Transport interface {
	Send(ctx context.Context, notice Notice) error
}

// Monitor receives deliveries that exhausted their retries. Failures are
// surfaced, never dropped; the default monitor logs and counts them.
type Monitor interface {
	ReportFailure(ctx context.Context, rec DeliveryRecord, err error)
}

// AuditPublisher matches the audit pipeline's Emit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Settings tunes the worker pool and retry behavior.
type Settings struct {
	Workers     int
	MaxAttempts int
	BaseDelay   time.Duration
	QueueSize   int
}

func DefaultSettings() Settings {
	return Settings{Workers: 4, MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, QueueSize: 256}
}

type job struct {
	record DeliveryRecord
	notice Notice
}

// Dispatcher owns the delivery worker pool. Dispatch enqueues and returns
// immediately; workers drive each delivery through its retries.
//
// Idempotency is per (decision id, channel): a DELIVERED record makes
// re-dispatch a no-op that returns the existing record, a FAILED one may be
// dispatched again. Abandoning a session cancels its queued, not-yet-started
// deliveries best-effort; an attempt already running finishes normally.
type Dispatcher struct {
	store      DeliveryStore
	transports map[Channel]Transport
	settings   Settings

	logger         *slog.Logger
	monitor        Monitor
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	sleep          func(ctx context.Context, d time.Duration) error

	queue chan job
	wg    sync.WaitGroup

	// sendMu makes queue sends and the shutdown close mutually exclusive:
	// enqueuers hold it for reading across the send, Run takes it for
	// writing before closing the queue. Without this a Dispatch racing
	// shutdown could send on the closed channel.
	sendMu sync.RWMutex
	closed bool

	mu        sync.Mutex
	cancelled map[domain.SessionID]bool
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMonitor(m Monitor) Option {
	return func(d *Dispatcher) { d.monitor = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(d *Dispatcher) { d.auditPublisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New constructs a Dispatcher. Workers start on Run.
func New(store DeliveryStore, transports map[Channel]Transport, settings Settings, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("delivery store is required")
	}
	if len(transports) == 0 {
		return nil, errors.New("at least one transport is required")
	}
	defaults := DefaultSettings()
	if settings.Workers <= 0 {
		settings.Workers = defaults.Workers
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.BaseDelay <= 0 {
		settings.BaseDelay = defaults.BaseDelay
	}
	if settings.QueueSize <= 0 {
		settings.QueueSize = defaults.QueueSize
	}

	d := &Dispatcher{
		store:      store,
		transports: transports,
		settings:   settings,
		queue:      make(chan job, settings.QueueSize),
		cancelled:  make(map[domain.SessionID]bool),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run starts the worker pool and blocks until ctx is done and the queue has
// drained.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.settings.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	<-ctx.Done()

	// Waits for in-flight enqueues to land before the close; once the
	// write lock is held no new send can start.
	d.sendMu.Lock()
	d.closed = true
	d.sendMu.Unlock()
	close(d.queue)
	d.wg.Wait()
}

// Dispatch records and enqueues one delivery per channel, returning the
// record handles. The notice must belong to a durably persisted decision;
// callers enqueue only after the store write that recorded it.
func (d *Dispatcher) Dispatch(ctx context.Context, notice Notice, channels []Channel) ([]DeliveryRecord, error) {
	if len(channels) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one notification channel is required")
	}

	now := time.Now().UTC()
	out := make([]DeliveryRecord, 0, len(channels))
	for _, ch := range channels {
		if _, ok := d.transports[ch]; !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "no transport configured for channel %s", ch)
		}

		existing, err := d.store.Find(ctx, notice.DecisionID, ch)
		switch {
		case err == nil:
			// DELIVERED short-circuits; PENDING/SENT are already in
			// flight. Only FAILED goes around again.
			if existing.Status != StatusFailed {
				out = append(out, *existing)
				continue
			}
			existing.Status = StatusPending
			existing.LastError = ""
			existing.UpdatedAt = now
			if err := d.store.Save(ctx, existing); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset delivery record")
			}
			if err := d.enqueue(ctx, job{record: *existing, notice: notice}); err != nil {
				return nil, err
			}
			out = append(out, *existing)
		case errors.Is(err, sentinel.ErrNotFound):
			rec := DeliveryRecord{
				ID:          domain.NewDeliveryID(),
				DecisionID:  notice.DecisionID,
				SessionID:   notice.SessionID,
				CustomerRef: notice.CustomerRef,
				Channel:     ch,
				Status:      StatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := d.store.Save(ctx, &rec); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create delivery record")
			}
			if err := d.enqueue(ctx, job{record: rec, notice: notice}); err != nil {
				return nil, err
			}
			out = append(out, rec)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up delivery record")
		}
	}
	return out, nil
}

// CancelSession marks a session's queued deliveries as cancelled. Workers
// skip marked jobs before starting them; attempts already in flight are not
// interrupted.
func (d *Dispatcher) CancelSession(sessionID domain.SessionID) {
	d.mu.Lock()
	d.cancelled[sessionID] = true
	d.mu.Unlock()
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	d.sendMu.RLock()
	defer d.sendMu.RUnlock()
	if d.closed {
		return dErrors.New(dErrors.CodeInternal, "dispatcher is shutting down")
	}
	select {
	case d.queue <- j:
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "dispatch enqueue cancelled")
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for j := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		if d.isCancelled(j.record.SessionID) {
			d.metrics.ObserveCancelled()
			d.log(ctx, slog.LevelInfo, "dispatch skipped, session abandoned",
				"delivery_id", j.record.ID, "channel", j.record.Channel)
			continue
		}
		d.deliver(ctx, j)
	}
}

func (d *Dispatcher) isCancelled(sessionID domain.SessionID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled[sessionID]
}

// deliver drives one record through its attempts. Uses Background for store
// writes during shutdown so bookkeeping survives a cancelled run context.
func (d *Dispatcher) deliver(ctx context.Context, j job) {
	transport := d.transports[j.record.Channel]
	rec := j.record

	var lastErr error
	for attempt := 0; attempt < d.settings.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2x base, 4x base, ...
			delay := d.settings.BaseDelay << (attempt - 1)
			if err := d.sleep(ctx, delay); err != nil {
				// Shutdown interrupted the backoff. The record was not
				// exhausted, so it stays PENDING and the monitor is not
				// paged; FAILED is reserved for spent retries.
				rec.Status = StatusPending
				rec.UpdatedAt = time.Now().UTC()
				d.saveRecord(&rec)
				d.log(ctx, slog.LevelInfo, "delivery interrupted by shutdown",
					"delivery_id", rec.ID, "channel", rec.Channel, "attempts", rec.Attempts)
				return
			}
		}

		rec.Attempts++
		rec.Status = StatusSent
		rec.UpdatedAt = time.Now().UTC()
		d.saveRecord(&rec)
		d.metrics.ObserveAttempt(string(rec.Channel))

		lastErr = transport.Send(ctx, j.notice)
		if lastErr == nil {
			rec.Status = StatusDelivered
			rec.LastError = ""
			rec.UpdatedAt = time.Now().UTC()
			d.saveRecord(&rec)
			d.metrics.ObserveDelivered(string(rec.Channel))
			d.emitAudit(ctx, audit.EventDispatchDelivered, rec, "")
			return
		}

		rec.LastError = lastErr.Error()
		d.log(ctx, slog.LevelWarn, "delivery attempt failed",
			"delivery_id", rec.ID, "channel", rec.Channel, "attempt", rec.Attempts, "error", lastErr)
	}

	rec.Status = StatusFailed
	rec.UpdatedAt = time.Now().UTC()
	d.saveRecord(&rec)
	d.metrics.ObserveFailed(string(rec.Channel))
	d.log(ctx, slog.LevelError, "delivery failed after retries",
		"delivery_id", rec.ID, "channel", rec.Channel, "attempts", rec.Attempts, "error", lastErr)
	if d.monitor != nil {
		d.monitor.ReportFailure(ctx, rec, lastErr)
	}
	d.emitAudit(ctx, audit.EventDispatchFailed, rec, rec.LastError)
}

func (d *Dispatcher) saveRecord(rec *DeliveryRecord) {
	if err := d.store.Save(context.Background(), rec); err != nil {
		d.log(context.Background(), slog.LevelError, "failed to save delivery record",
			"delivery_id", rec.ID, "error", err)
	}
}

func (d *Dispatcher) emitAudit(ctx context.Context, action audit.AuditEvent, rec DeliveryRecord, reason string) {
	if d.auditPublisher == nil {
		return
	}
	_ = d.auditPublisher.Emit(ctx, audit.Event{
		SessionID:   rec.SessionID.String(),
		CustomerRef: rec.CustomerRef,
		Action:      string(action),
		Outcome:     string(rec.Status),
		Reason:      reason,
	})
}

func (d *Dispatcher) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if d.logger != nil {
		d.logger.Log(ctx, level, msg, args...)
	}
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
