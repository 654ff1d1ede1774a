package session

import (
	"context"
	"sync"
	"time"

	"underwrite/internal/decision"
	"underwrite/pkg/domain"
	"underwrite/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process. Each session carries its own
// mutex, so mutations on one session queue while other sessions proceed in
// parallel.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[domain.SessionID]*sessionEntry)}
}

func (s *InMemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = &sessionEntry{session: sess.Clone()}
	return nil
}

func (s *InMemoryStore) entry(id domain.SessionID) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.SessionID) (*Session, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

func (s *InMemoryStore) Mutate(_ context.Context, id domain.SessionID, fn func(*Session) error) (*Session, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// fn works on a copy; a failed mutation leaves the stored session
	// untouched.
	working := e.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	e.session = working
	return working.Clone(), nil
}

func (s *InMemoryStore) FinalizeDecision(_ context.Context, id domain.SessionID, d *decision.Decision) (*decision.Decision, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.session.State {
	case StateReadyForDecision:
		working := e.session.Clone()
		working.State = StateDecided
		working.Risk = &d.Risk
		working.Fraud = &d.Fraud
		working.Decisions = append(working.Decisions, *d)
		working.UpdatedAt = time.Now().UTC()
		e.session = working
		return d, nil
	case StateDecided:
		return e.session.CurrentDecision(), sentinel.ErrConflict
	default:
		return nil, sentinel.ErrInvalidState
	}
}

func (s *InMemoryStore) ListIdle(_ context.Context, cutoff time.Time) ([]*Session, error) {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var idle []*Session
	for _, e := range entries {
		e.mu.Lock()
		if !e.session.State.Terminal() && e.session.UpdatedAt.Before(cutoff) {
			idle = append(idle, e.session.Clone())
		}
		e.mu.Unlock()
	}
	return idle, nil
}
