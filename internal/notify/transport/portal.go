package transport

import (
	"context"
	"sync"
	"time"

	"underwrite/internal/notify"
)

// PortalMessage is one entry in a customer's portal inbox.
type PortalMessage struct {
	DecisionID string    `json:"decision_id"`
	SessionID  string    `json:"session_id"`
	Outcome    string    `json:"outcome"`
	PostedAt   time.Time `json:"posted_at"`
}

// Portal posts decision notices to the customer portal inbox. The inbox is
// in-process; the portal surface reads it back per customer reference.
type Portal struct {
	mu      sync.RWMutex
	inboxes map[string][]PortalMessage
	now     func() time.Time
}

func NewPortal() *Portal {
	return &Portal{inboxes: make(map[string][]PortalMessage), now: time.Now}
}

func (p *Portal) Send(_ context.Context, notice notify.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inboxes[notice.CustomerRef] = append(p.inboxes[notice.CustomerRef], PortalMessage{
		DecisionID: notice.DecisionID.String(),
		SessionID:  notice.SessionID.String(),
		Outcome:    notice.Outcome,
		PostedAt:   p.now().UTC(),
	})
	return nil
}

// Inbox returns a copy of the customer's messages, oldest first.
func (p *Portal) Inbox(customerRef string) []PortalMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]PortalMessage(nil), p.inboxes[customerRef]...)
}
