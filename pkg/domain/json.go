package domain

import "github.com/google/uuid"

// Text marshalling so typed ids serialize as canonical UUID strings in JSON
// and map keys instead of raw byte arrays.

func (id SessionID) MarshalText() ([]byte, error)  { return []byte(uuid.UUID(id).String()), nil }
func (id CustomerID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }
func (id DecisionID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }
func (id DeliveryID) MarshalText() ([]byte, error) { return []byte(uuid.UUID(id).String()), nil }

func (id *SessionID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

func (id *CustomerID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = CustomerID(u)
	return nil
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = DocumentID(u)
	return nil
}

func (id *DecisionID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = DecisionID(u)
	return nil
}

func (id *DeliveryID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = DeliveryID(u)
	return nil
}
