package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "underwrite/pkg/platform/audit"
	auditmemory "underwrite/pkg/platform/audit/store/memory"
)

type WorkerSuite struct {
	suite.Suite
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

// failingStore rejects the first n appends, then delegates to the memory
// store. Used to check the worker keeps draining past write failures.
type failingStore struct {
	*auditmemory.InMemoryStore
	failures int
}

func (s *failingStore) Append(ctx context.Context, event audit.Event) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("append rejected")
	}
	return s.InMemoryStore.Append(ctx, event)
}

func (s *WorkerSuite) TestRun() {
	s.Run("persists events until the context ends", func() {
		store := auditmemory.NewInMemoryStore()
		inbox := make(chan audit.Event, 4)
		w := NewWorker(store, inbox, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		inbox <- audit.Event{Action: string(audit.EventSessionStarted), SessionID: "sess-1"}
		inbox <- audit.Event{Action: string(audit.EventDecisionMade), SessionID: "sess-1"}

		s.Eventually(func() bool {
			events, err := store.ListBySession(context.Background(), "sess-1")
			return err == nil && len(events) == 2
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			s.Require().ErrorIs(err, context.Canceled)
		case <-time.After(2 * time.Second):
			s.FailNow("worker did not stop on cancellation")
		}
	})

	s.Run("a failed append does not stall later events", func() {
		store := &failingStore{InMemoryStore: auditmemory.NewInMemoryStore(), failures: 1}
		inbox := make(chan audit.Event, 4)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		w := NewWorker(store, inbox, logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		inbox <- audit.Event{Action: string(audit.EventSessionStarted), SessionID: "sess-2"}
		inbox <- audit.Event{Action: string(audit.EventSessionAbandoned), SessionID: "sess-2"}

		s.Eventually(func() bool {
			events, err := store.ListBySession(context.Background(), "sess-2")
			return err == nil && len(events) == 1 &&
				events[0].Action == string(audit.EventSessionAbandoned)
		}, 2*time.Second, 10*time.Millisecond)
	})
}
