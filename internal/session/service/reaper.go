package service

import (
	"context"
	"log/slog"
	"time"

	dErrors "underwrite/pkg/domain-errors"
)

// RunReaper periodically abandons sessions idle past timeout. Blocks until
// ctx is done. The sweep interval is a tenth of the timeout, capped at one
// minute, so short test timeouts still sweep promptly.
func (s *Service) RunReaper(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	interval := timeout / 10
	if interval > time.Minute || interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdle(ctx, timeout)
		}
	}
}

// sweepIdle abandons every session idle past timeout. Exposed to tests via
// the reaper loop only; races with concurrent finalization resolve in favor
// of the finalizer.
func (s *Service) sweepIdle(ctx context.Context, timeout time.Duration) {
	cutoff := s.now().UTC().Add(-timeout)
	idle, err := s.store.ListIdle(ctx, cutoff)
	if err != nil {
		s.log(ctx, slog.LevelError, "reaper failed to list idle sessions", "error", err)
		return
	}
	for _, sess := range idle {
		err := s.Abandon(ctx, sess.ID, "idle timeout")
		switch {
		case err == nil:
			s.sessionMetrics.ObserveReaped()
			s.log(ctx, slog.LevelInfo, "reaped idle session",
				"session_id", sess.ID, "idle_since", sess.UpdatedAt)
		case dErrors.HasCode(err, dErrors.CodeInvalidState):
			// Finalized or abandoned between the listing and the sweep.
		default:
			s.log(ctx, slog.LevelError, "reaper failed to abandon session",
				"session_id", sess.ID, "error", err)
		}
	}
}
