//go:build integration

package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	"underwrite/internal/session"
	"underwrite/pkg/domain"
	"underwrite/pkg/platform/sentinel"
	"underwrite/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *session.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.ApplySchema(context.Background(), session.Schema))
	s.store = session.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	err := s.postgres.TruncateTables(s.ctx, "session_decisions", "underwriting_sessions")
	s.Require().NoError(err)
}

func newStoredSession(state session.State) *session.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &session.Session{
		ID:          domain.NewSessionID(),
		CustomerRef: "cust-1",
		Kind:        session.KindUnderwriting,
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newStoredDecision(sessionID domain.SessionID) *decision.Decision {
	return &decision.Decision{
		ID:        domain.NewDecisionID(),
		SessionID: sessionID,
		Outcome:   decision.OutcomeAutoApprove,
		Rule:      "auto_approve",
		DecidedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	sess := newStoredSession(session.StateCreated)
	sess.Device = "Firefox on Linux"
	s.Require().NoError(s.store.Create(s.ctx, sess))

	got, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal("cust-1", got.CustomerRef)
	s.Equal(session.KindUnderwriting, got.Kind)
	s.Equal(session.StateCreated, got.State)
	s.Equal("Firefox on Linux", got.Device)
	s.WithinDuration(sess.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestCreateConflict() {
	sess := newStoredSession(session.StateCreated)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	err := s.store.Create(s.ctx, sess)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(s.ctx, domain.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMutatePersistsPayload() {
	sess := newStoredSession(session.StateCreated)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	submitted := time.Now().UTC().Truncate(time.Microsecond)
	_, err := s.store.Mutate(s.ctx, sess.ID, func(cur *session.Session) error {
		cur.State = session.StateAnswering
		if cur.Answers == nil {
			cur.Answers = make(map[catalog.QuestionID]session.Answer)
		}
		cur.Answers["smoker"] = session.Answer{
			QuestionID:  "smoker",
			Value:       catalog.BoolValue(false),
			SubmittedAt: submitted,
		}
		cur.Health = &session.HealthAssessment{ConditionLevel: 2, Conditions: []string{"asthma"}}
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(session.StateAnswering, got.State)
	s.Require().Contains(got.Answers, catalog.QuestionID("smoker"))
	s.Equal("false", got.Answers["smoker"].Value.Key())
	s.Require().NotNil(got.Health)
	s.Equal(2, got.Health.ConditionLevel)
	s.True(got.UpdatedAt.After(sess.UpdatedAt))
}

func (s *PostgresStoreSuite) TestMutateRollsBackOnError() {
	sess := newStoredSession(session.StateCreated)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	boom := errors.New("boom")
	_, err := s.store.Mutate(s.ctx, sess.ID, func(cur *session.Session) error {
		cur.State = session.StateAnswering
		return boom
	})
	s.Require().ErrorIs(err, boom)

	got, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(session.StateCreated, got.State)
}

func (s *PostgresStoreSuite) TestFinalizeDecision() {
	sess := newStoredSession(session.StateReadyForDecision)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	d := newStoredDecision(sess.ID)
	got, err := s.store.FinalizeDecision(s.ctx, sess.ID, d)
	s.Require().NoError(err)
	s.Equal(d.ID, got.ID)

	stored, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(session.StateDecided, stored.State)
	s.Require().Len(stored.Decisions, 1)
	s.Equal(d.ID, stored.Decisions[0].ID)
	s.Equal(decision.OutcomeAutoApprove, stored.Decisions[0].Outcome)
}

func (s *PostgresStoreSuite) TestFinalizeDecisionConflict() {
	sess := newStoredSession(session.StateReadyForDecision)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	winner := newStoredDecision(sess.ID)
	_, err := s.store.FinalizeDecision(s.ctx, sess.ID, winner)
	s.Require().NoError(err)

	loser := newStoredDecision(sess.ID)
	got, err := s.store.FinalizeDecision(s.ctx, sess.ID, loser)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Require().NotNil(got)
	s.Equal(winner.ID, got.ID)
}

func (s *PostgresStoreSuite) TestFinalizeDecisionInvalidState() {
	sess := newStoredSession(session.StateAnswering)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	_, err := s.store.FinalizeDecision(s.ctx, sess.ID, newStoredDecision(sess.ID))
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

// TestConcurrentFinalize races finalization from many goroutines and
// verifies exactly one decision wins, the rest observing it via the
// conflict path.
func (s *PostgresStoreSuite) TestConcurrentFinalize() {
	sess := newStoredSession(session.StateReadyForDecision)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	const racers = 10
	var wg sync.WaitGroup
	wins := make(chan domain.DecisionID, racers)
	losses := make(chan domain.DecisionID, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := newStoredDecision(sess.ID)
			got, err := s.store.FinalizeDecision(context.Background(), sess.ID, d)
			switch {
			case err == nil:
				wins <- got.ID
			case errors.Is(err, sentinel.ErrConflict):
				losses <- got.ID
			default:
				s.T().Errorf("unexpected finalize error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	s.Require().Len(wins, 1)
	winner := <-wins
	for id := range losses {
		s.Equal(winner, id)
	}

	stored, err := s.store.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Decisions, 1)
	s.Equal(winner, stored.Decisions[0].ID)
}

func (s *PostgresStoreSuite) TestListIdle() {
	stale := newStoredSession(session.StateAnswering)
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, stale))

	fresh := newStoredSession(session.StateAnswering)
	s.Require().NoError(s.store.Create(s.ctx, fresh))

	decided := newStoredSession(session.StateDecided)
	decided.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, decided))

	idle, err := s.store.ListIdle(s.ctx, time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(idle, 1)
	s.Equal(stale.ID, idle[0].ID)
}
