package transport

import (
	"context"
	"sync"
)

// InMemoryArchive retains signed notice documents per customer until the
// archival service integration takes over. Also used by tests to inspect
// issued documents.
type InMemoryArchive struct {
	mu   sync.RWMutex
	docs map[string][]string
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{docs: make(map[string][]string)}
}

func (a *InMemoryArchive) Store(_ context.Context, customerRef, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[customerRef] = append(a.docs[customerRef], token)
	return nil
}

// Documents returns the customer's signed documents, oldest first.
func (a *InMemoryArchive) Documents(customerRef string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.docs[customerRef]...)
}
