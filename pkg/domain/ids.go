package domain

import (
	"github.com/google/uuid"

	dErrors "underwrite/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types keep a session id from ever being
// passed where a document or decision id is expected; the compiler enforces
// what code review would otherwise have to catch.
type (
	SessionID  uuid.UUID
	CustomerID uuid.UUID
	DocumentID uuid.UUID
	DecisionID uuid.UUID
	DeliveryID uuid.UUID
)

func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id CustomerID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id DecisionID) String() string { return uuid.UUID(id).String() }
func (id DeliveryID) String() string { return uuid.UUID(id).String() }

func (id SessionID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CustomerID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func NewSessionID() SessionID   { return SessionID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }
func NewDeliveryID() DeliveryID { return DeliveryID(uuid.New()) }

// parseUUID enforces the parsing invariant shared by all id types:
// ids must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return u, nil
}

func ParseSessionID(raw string) (SessionID, error) {
	u, err := parseUUID(raw, "session")
	return SessionID(u), err
}

func ParseCustomerID(raw string) (CustomerID, error) {
	u, err := parseUUID(raw, "customer")
	return CustomerID(u), err
}

func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID(raw, "document")
	return DocumentID(u), err
}

func ParseDecisionID(raw string) (DecisionID, error) {
	u, err := parseUUID(raw, "decision")
	return DecisionID(u), err
}
