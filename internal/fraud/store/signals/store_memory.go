package signals

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore accumulates historical signals in process, for tests and
// single-node deployments.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[string][]time.Time
	claims       map[string][]claimSample
	now          func() time.Time
}

type claimSample struct {
	amount float64
	at     time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		applications: make(map[string][]time.Time),
		claims:       make(map[string][]claimSample),
		now:          time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) RecordApplication(_ context.Context, customerRef string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[customerRef] = append(s.applications[customerRef], at)
	return nil
}

func (s *InMemoryStore) CountRecent(_ context.Context, customerRef string, window time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-window)
	count := 0
	for _, at := range s.applications[customerRef] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) RecordClaimAmount(_ context.Context, claimType string, amount float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claimType] = append(s.claims[claimType], claimSample{amount: amount, at: at})
	return nil
}

func (s *InMemoryStore) AverageClaimAmount(_ context.Context, claimType string, window time.Duration) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-window)
	var sum float64
	var count int
	for _, sample := range s.claims[claimType] {
		if sample.at.After(cutoff) {
			sum += sample.amount
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}
