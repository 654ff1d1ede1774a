// Package audit captures the regulatory trail for automated underwriting
// decisions. Every event that changes a session's risk posture is recorded
// here so any decision can be traced back to what produced it.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and routing: compliance events need tamper-proof storage
// and long retention, operations events can be sampled.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Transport and
// storage agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	SessionID   string
	CustomerRef string
	Action      string
	// Outcome holds the decision outcome or delivery status tied to the
	// action, when one exists.
	Outcome string
	// Rule names the decision rule that matched, for adverse-action
	// traceability.
	Rule      string
	Reason    string
	RequestID string
	// ActorID tracks who performed the action when it was not the system
	// itself, e.g. the underwriter recording an override.
	ActorID string
}

type AuditEvent string

const (
	EventSessionStarted    AuditEvent = "session_started"
	EventAnswerSubmitted   AuditEvent = "answer_submitted"
	EventHealthSubmitted   AuditEvent = "health_assessment_submitted"
	EventDocumentUploaded  AuditEvent = "document_uploaded"
	EventDocumentVerified  AuditEvent = "document_verified"
	EventDecisionMade      AuditEvent = "decision_made"
	EventDecisionOverride  AuditEvent = "decision_overridden"
	EventSessionAbandoned  AuditEvent = "session_abandoned"
	EventDispatchFailed    AuditEvent = "dispatch_failed"
	EventDispatchDelivered AuditEvent = "dispatch_delivered"
)

// eventCategories maps each audit event to its category. Decisions and
// overrides are compliance grade; routine intake activity is operational.
var eventCategories = map[AuditEvent]EventCategory{
	EventDecisionMade:     CategoryCompliance,
	EventDecisionOverride: CategoryCompliance,
	EventDocumentVerified: CategoryCompliance,
	EventDispatchFailed:   CategoryCompliance,

	EventSessionStarted:    CategoryOperations,
	EventAnswerSubmitted:   CategoryOperations,
	EventHealthSubmitted:   CategoryOperations,
	EventDocumentUploaded:  CategoryOperations,
	EventSessionAbandoned:  CategoryOperations,
	EventDispatchDelivered: CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
