// Package notify fans finalized decisions out to delivery channels on a
// bounded worker pool, decoupled from session processing. Channels are
// ports: the dispatcher owns retry, idempotency, and bookkeeping; the
// transports own the actual delivery.
package notify

import (
	"time"

	"underwrite/pkg/domain"
	dErrors "underwrite/pkg/domain-errors"
)

// Channel is one concrete delivery channel. The COMBINED pseudo-channel
// accepted at the API surface expands into this full set before reaching
// the dispatcher; the dispatcher only ever sees concrete channels.
type Channel string

const (
	ChannelEmail          Channel = "EMAIL"
	ChannelSMS            Channel = "SMS"
	ChannelSignedDocument Channel = "SIGNED_DOCUMENT"
	ChannelPortal         Channel = "PORTAL"
)

// channelCombined is the fan-out alias accepted from callers.
const channelCombined = "COMBINED"

// AllChannels returns every concrete channel.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelSignedDocument, ChannelPortal}
}

// ParseChannels validates and expands a caller-supplied channel list.
// COMBINED expands to all concrete channels; duplicates collapse.
func ParseChannels(names []string) ([]Channel, error) {
	seen := make(map[Channel]bool)
	var out []Channel
	add := func(c Channel) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, name := range names {
		switch Channel(name) {
		case ChannelEmail, ChannelSMS, ChannelSignedDocument, ChannelPortal:
			add(Channel(name))
		default:
			if name == channelCombined {
				for _, c := range AllChannels() {
					add(c)
				}
				continue
			}
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown notification channel %q", name)
		}
	}
	if len(out) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one notification channel is required")
	}
	return out, nil
}

// DeliveryStatus tracks one delivery attempt sequence.
// PENDING → SENT → DELIVERED | FAILED.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusSent      DeliveryStatus = "SENT"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusFailed    DeliveryStatus = "FAILED"
)

// Notice is the decision content handed to a transport. It carries only
// what a customer-facing notice needs; scores stay internal.
type Notice struct {
	DecisionID  domain.DecisionID
	SessionID   domain.SessionID
	CustomerRef string
	Outcome     string
	Rule        string
	DecidedAt   time.Time
}

// DeliveryRecord is the dispatcher's handle for one (decision, channel)
// delivery. Records are idempotency keys: a DELIVERED record short-circuits
// re-dispatch, a FAILED one may be retried by dispatching again.
type DeliveryRecord struct {
	ID          domain.DeliveryID
	DecisionID  domain.DecisionID
	SessionID   domain.SessionID
	CustomerRef string
	Channel     Channel
	Status      DeliveryStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
