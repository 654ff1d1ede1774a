package notify

import (
	"context"
	"sync"

	"underwrite/pkg/domain"
	"underwrite/pkg/platform/sentinel"
)

// DeliveryStore persists delivery records. Keyed by (decision id, channel),
// which is the dispatcher's idempotency key.
type DeliveryStore interface {
	Save(ctx context.Context, rec *DeliveryRecord) error
	Find(ctx context.Context, decisionID domain.DecisionID, channel Channel) (*DeliveryRecord, error)
	ListBySession(ctx context.Context, sessionID domain.SessionID) ([]*DeliveryRecord, error)
}

type deliveryKey struct {
	decisionID domain.DecisionID
	channel    Channel
}

// InMemoryDeliveryStore keeps records in process memory.
type InMemoryDeliveryStore struct {
	mu      sync.RWMutex
	records map[deliveryKey]*DeliveryRecord
}

func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	return &InMemoryDeliveryStore{records: make(map[deliveryKey]*DeliveryRecord)}
}

func (s *InMemoryDeliveryStore) Save(_ context.Context, rec *DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[deliveryKey{rec.DecisionID, rec.Channel}] = &clone
	return nil
}

func (s *InMemoryDeliveryStore) Find(_ context.Context, decisionID domain.DecisionID, channel Channel) (*DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[deliveryKey{decisionID, channel}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *InMemoryDeliveryStore) ListBySession(_ context.Context, sessionID domain.SessionID) ([]*DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DeliveryRecord
	for _, rec := range s.records {
		if rec.SessionID == sessionID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}
