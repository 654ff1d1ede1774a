package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"underwrite/internal/decision"
	"underwrite/pkg/domain"
	"underwrite/pkg/platform/sentinel"
)

// =============================================================================
// In-Memory Session Store Test Suite
// =============================================================================
// Justification for unit tests: the store carries the two concurrency
// guarantees the whole service leans on: all-or-nothing mutations and the
// finalize compare-and-swap. Both need direct, racing exercise.

type InMemorySessionStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemorySessionStoreSuite) newSession(state State) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          domain.NewSessionID(),
		CustomerRef: "cust-1",
		Kind:        KindUnderwriting,
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *InMemorySessionStoreSuite) TestCreateAndGet() {
	s.Run("round-trips a session", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))
		got, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(sess.ID, got.ID)
		s.Equal(StateCreated, got.State)
	})

	s.Run("duplicate id conflicts", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))
		s.ErrorIs(s.store.Create(s.ctx, sess), sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(s.ctx, domain.NewSessionID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("snapshots do not alias stored state", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))
		got, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		got.State = StateAbandoned

		again, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(StateCreated, again.State)
	})
}

func (s *InMemorySessionStoreSuite) TestMutate() {
	s.Run("persists the mutation and stamps updated at", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		got, err := s.store.Mutate(s.ctx, sess.ID, func(cur *Session) error {
			cur.State = StateAnswering
			return nil
		})
		s.Require().NoError(err)
		s.Equal(StateAnswering, got.State)
		s.True(got.UpdatedAt.After(sess.UpdatedAt) || got.UpdatedAt.Equal(sess.UpdatedAt))
	})

	s.Run("failed mutation leaves the session untouched", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		boom := errors.New("boom")
		_, err := s.store.Mutate(s.ctx, sess.ID, func(cur *Session) error {
			cur.State = StateAbandoned
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(StateCreated, got.State)
	})

	s.Run("concurrent mutations all apply", func() {
		sess := s.newSession(StateCreated)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Mutate(s.ctx, sess.ID, func(cur *Session) error {
					cur.Documents = append(cur.Documents, DocumentRecord{ID: domain.NewDocumentID()})
					return nil
				})
				s.NoError(err)
			}()
		}
		wg.Wait()

		got, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Len(got.Documents, 20)
	})
}

func (s *InMemorySessionStoreSuite) TestFinalizeDecision() {
	newDecision := func(sessionID domain.SessionID) *decision.Decision {
		return &decision.Decision{
			ID:        domain.NewDecisionID(),
			SessionID: sessionID,
			Outcome:   decision.OutcomeAutoApprove,
			Rule:      decision.RuleAutoApprove,
			DecidedAt: time.Now().UTC(),
		}
	}

	s.Run("swaps ready to decided and appends", func() {
		sess := s.newSession(StateReadyForDecision)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		d := newDecision(sess.ID)
		got, err := s.store.FinalizeDecision(s.ctx, sess.ID, d)
		s.Require().NoError(err)
		s.Equal(d.ID, got.ID)

		stored, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(StateDecided, stored.State)
		s.Len(stored.Decisions, 1)
	})

	s.Run("second finalize returns the winner with a conflict", func() {
		sess := s.newSession(StateReadyForDecision)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		winner := newDecision(sess.ID)
		_, err := s.store.FinalizeDecision(s.ctx, sess.ID, winner)
		s.Require().NoError(err)

		loser := newDecision(sess.ID)
		got, err := s.store.FinalizeDecision(s.ctx, sess.ID, loser)
		s.ErrorIs(err, sentinel.ErrConflict)
		s.Require().NotNil(got)
		s.Equal(winner.ID, got.ID)
	})

	s.Run("any other state is invalid", func() {
		sess := s.newSession(StateAnswering)
		s.Require().NoError(s.store.Create(s.ctx, sess))
		_, err := s.store.FinalizeDecision(s.ctx, sess.ID, newDecision(sess.ID))
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("racing finalizes produce exactly one winner", func() {
		sess := s.newSession(StateReadyForDecision)
		s.Require().NoError(s.store.Create(s.ctx, sess))

		const racers = 10
		var wg sync.WaitGroup
		wins := make(chan domain.DecisionID, racers)
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d := newDecision(sess.ID)
				got, err := s.store.FinalizeDecision(s.ctx, sess.ID, d)
				if err == nil {
					wins <- got.ID
					return
				}
				s.ErrorIs(err, sentinel.ErrConflict)
				s.NotNil(got)
			}()
		}
		wg.Wait()
		close(wins)

		var winners []domain.DecisionID
		for id := range wins {
			winners = append(winners, id)
		}
		s.Require().Len(winners, 1)

		stored, err := s.store.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Len(stored.Decisions, 1)
		s.Equal(winners[0], stored.Decisions[0].ID)
	})
}

func (s *InMemorySessionStoreSuite) TestListIdle() {
	s.Run("returns only stale non-terminal sessions", func() {
		stale := s.newSession(StateAnswering)
		s.Require().NoError(s.store.Create(s.ctx, stale))

		decided := s.newSession(StateDecided)
		s.Require().NoError(s.store.Create(s.ctx, decided))

		cutoff := time.Now().UTC().Add(time.Hour)
		idle, err := s.store.ListIdle(s.ctx, cutoff)
		s.Require().NoError(err)
		s.Require().Len(idle, 1)
		s.Equal(stale.ID, idle[0].ID)
	})

	s.Run("fresh sessions are left alone", func() {
		fresh := s.newSession(StateAnswering)
		s.Require().NoError(s.store.Create(s.ctx, fresh))

		cutoff := time.Now().UTC().Add(-time.Hour)
		idle, err := s.store.ListIdle(s.ctx, cutoff)
		s.Require().NoError(err)
		s.Empty(idle)
	})
}
