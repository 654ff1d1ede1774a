// Package session owns the lifecycle of one underwriting or claim intake:
// the state machine, the collected answers and documents, and the decision
// history. Sessions only ever move forward through their states.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	"underwrite/internal/fraud"
	"underwrite/internal/risk"
	"underwrite/pkg/domain"
)

// State is the session lifecycle position.
type State string

const (
	StateCreated          State = "CREATED"
	StateAnswering        State = "ANSWERING"
	StateDocsPending      State = "DOCS_PENDING"
	StateReadyForDecision State = "READY_FOR_DECISION"
	StateDecided          State = "DECIDED"
	StateAbandoned        State = "ABANDONED"
)

// stateRank orders the forward progression. ABANDONED sits outside the
// ordering; it is reachable from any non-terminal state.
var stateRank = map[State]int{
	StateCreated:          0,
	StateAnswering:        1,
	StateDocsPending:      2,
	StateReadyForDecision: 3,
	StateDecided:          4,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDecided || s == StateAbandoned
}

// CanAdvanceTo reports whether moving to next respects the forward-only
// invariant.
func (s State) CanAdvanceTo(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateAbandoned {
		return true
	}
	from, okFrom := stateRank[s]
	to, okTo := stateRank[next]
	return okFrom && okTo && to > from
}

// AcceptsAnswers reports whether answer submission is allowed in this state.
func (s State) AcceptsAnswers() bool {
	return s == StateCreated || s == StateAnswering || s == StateDocsPending
}

// AcceptsDocuments reports whether document upload is allowed in this state.
// Uploads stop once the session is ready for decision: accepting one there
// would require moving backwards to wait for verification.
func (s State) AcceptsDocuments() bool {
	return s == StateCreated || s == StateAnswering || s == StateDocsPending
}

// IntakeKind distinguishes new-business underwriting from claims intake.
type IntakeKind string

const (
	KindUnderwriting IntakeKind = "underwriting"
	KindClaim        IntakeKind = "claim"
)

// ClaimDetails carries the claim-specific metadata the fraud rules inspect.
type ClaimDetails struct {
	Type            string    `json:"type"`
	Amount          float64   `json:"amount"`
	PolicyStartedAt time.Time `json:"policy_started_at"`
	FiledAt         time.Time `json:"filed_at"`
}

// Answer is one submitted questionnaire answer. One answer per question per
// session; resubmission overwrites.
type Answer struct {
	QuestionID  catalog.QuestionID
	Value       catalog.AnswerValue
	SubmittedAt time.Time
}

// answerJSON is the persisted shape; the value carries a type tag so the
// closed sum type survives store round-trips.
type answerJSON struct {
	QuestionID  string          `json:"question_id"`
	Value       json.RawMessage `json:"value"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	value, err := catalog.EncodeValue(a.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{
		QuestionID:  string(a.QuestionID),
		Value:       value,
		SubmittedAt: a.SubmittedAt,
	})
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := catalog.DecodeValue(raw.Value)
	if err != nil {
		return fmt.Errorf("answer %s: %w", raw.QuestionID, err)
	}
	a.QuestionID = catalog.QuestionID(raw.QuestionID)
	a.Value = value
	a.SubmittedAt = raw.SubmittedAt
	return nil
}

// HealthAssessment is the customer's health self-declaration. Supplied once,
// amendable until a decision is finalized.
type HealthAssessment struct {
	ConditionLevel int       `json:"condition_level"`
	Conditions     []string  `json:"conditions"`
	Medications    []string  `json:"medications"`
	Allergies      []string  `json:"allergies"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Session is one customer's in-progress intake. Owned exclusively by the
// session service; stores serialize all mutations per session.
type Session struct {
	ID          domain.SessionID
	CustomerRef string
	Kind        IntakeKind
	Claim       *ClaimDetails
	State       State

	// Device summarizes the submitting client, recorded at intake start
	// as fraud context.
	Device string

	Answers   map[catalog.QuestionID]Answer
	Documents []DocumentRecord
	Health    *HealthAssessment

	// Cached computation results. Invalidated together whenever an input
	// changes; always recomputed together before any decision.
	Risk  *risk.Score
	Fraud *fraud.Signal

	// Decisions is append-only history. The last entry is current; earlier
	// entries were superseded by overrides.
	Decisions []decision.Decision

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentDecision returns the latest decision, or nil before finalization.
func (s *Session) CurrentDecision() *decision.Decision {
	if len(s.Decisions) == 0 {
		return nil
	}
	return &s.Decisions[len(s.Decisions)-1]
}

// Document returns the record with the given id.
func (s *Session) Document(id domain.DocumentID) *DocumentRecord {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i]
		}
	}
	return nil
}

// Clone deep-copies the session so store snapshots never alias caller state.
func (s *Session) Clone() *Session {
	out := *s
	if s.Answers != nil {
		out.Answers = make(map[catalog.QuestionID]Answer, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	out.Documents = append([]DocumentRecord(nil), s.Documents...)
	out.Decisions = append([]decision.Decision(nil), s.Decisions...)
	if s.Claim != nil {
		claim := *s.Claim
		out.Claim = &claim
	}
	if s.Health != nil {
		health := *s.Health
		health.Conditions = append([]string(nil), s.Health.Conditions...)
		health.Medications = append([]string(nil), s.Health.Medications...)
		health.Allergies = append([]string(nil), s.Health.Allergies...)
		out.Health = &health
	}
	if s.Risk != nil {
		r := *s.Risk
		r.Factors = append([]risk.Factor(nil), s.Risk.Factors...)
		out.Risk = &r
	}
	if s.Fraud != nil {
		f := *s.Fraud
		f.Rules = append([]string(nil), s.Fraud.Rules...)
		out.Fraud = &f
	}
	return &out
}
