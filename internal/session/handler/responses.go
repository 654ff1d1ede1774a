package handler

import (
	"sort"
	"time"

	"underwrite/internal/decision"
	"underwrite/internal/notify"
	"underwrite/internal/session"
)

// SessionResponse is the external view of a session.
type SessionResponse struct {
	ID          string            `json:"id"`
	CustomerRef string            `json:"customer_ref"`
	Kind        string            `json:"kind"`
	State       string            `json:"state"`
	Device      string            `json:"device,omitempty"`
	Answers     []AnswerView      `json:"answers,omitempty"`
	Documents   []DocumentView    `json:"documents,omitempty"`
	Health      *HealthView       `json:"health,omitempty"`
	Risk        *RiskView         `json:"risk,omitempty"`
	Fraud       *FraudView        `json:"fraud,omitempty"`
	Decision    *DecisionResponse `json:"decision,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type AnswerView struct {
	QuestionID  string    `json:"question_id"`
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type DocumentView struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Checksum   string    `json:"checksum"`
	UploadedAt time.Time `json:"uploaded_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

type HealthView struct {
	ConditionLevel int      `json:"condition_level"`
	Conditions     []string `json:"conditions,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
}

type RiskView struct {
	Value   float64      `json:"value"`
	Factors []FactorView `json:"factors"`
}

type FactorView struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

type FraudView struct {
	Severity string   `json:"severity"`
	Rules    []string `json:"rules,omitempty"`
	Score    float64  `json:"score"`
}

// DecisionResponse is the external view of one decision record.
type DecisionResponse struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"session_id"`
	Outcome        string        `json:"outcome"`
	Rule           string        `json:"rule"`
	RiskScore      float64       `json:"risk_score"`
	FraudSeverity  string        `json:"fraud_severity"`
	DecidedAt      time.Time     `json:"decided_at"`
	AlreadyDecided bool          `json:"already_decided,omitempty"`
	Override       *OverrideView `json:"override,omitempty"`
}

type OverrideView struct {
	Original string    `json:"original"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// DeliveryResponse is the external view of one delivery record.
type DeliveryResponse struct {
	ID         string    `json:"id"`
	DecisionID string    `json:"decision_id"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromSession maps a session snapshot to its external view.
func FromSession(s *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		CustomerRef: s.CustomerRef,
		Kind:        string(s.Kind),
		State:       string(s.State),
		Device:      s.Device,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, a := range s.Answers {
		resp.Answers = append(resp.Answers, AnswerView{
			QuestionID:  string(a.QuestionID),
			Value:       a.Value.Key(),
			SubmittedAt: a.SubmittedAt,
		})
	}
	sort.Slice(resp.Answers, func(i, j int) bool {
		return resp.Answers[i].QuestionID < resp.Answers[j].QuestionID
	})
	for _, d := range s.Documents {
		resp.Documents = append(resp.Documents, DocumentView{
			ID:         d.ID.String(),
			Type:       string(d.Type),
			Status:     string(d.Status),
			Checksum:   d.Checksum,
			UploadedAt: d.UploadedAt,
			ExpiresAt:  d.ExpiresAt,
		})
	}
	if s.Health != nil {
		resp.Health = &HealthView{
			ConditionLevel: s.Health.ConditionLevel,
			Conditions:     s.Health.Conditions,
			Medications:    s.Health.Medications,
			Allergies:      s.Health.Allergies,
		}
	}
	if s.Risk != nil {
		view := RiskView{Value: s.Risk.Value}
		for _, f := range s.Risk.Factors {
			view.Factors = append(view.Factors, FactorView(f))
		}
		resp.Risk = &view
	}
	if s.Fraud != nil {
		resp.Fraud = &FraudView{
			Severity: s.Fraud.Severity.String(),
			Rules:    s.Fraud.Rules,
			Score:    s.Fraud.Score,
		}
	}
	if d := s.CurrentDecision(); d != nil {
		view := FromDecision(d, false)
		resp.Decision = &view
	}
	return resp
}

// FromDecision maps a decision record to its external view.
func FromDecision(d *decision.Decision, alreadyDecided bool) DecisionResponse {
	resp := DecisionResponse{
		ID:             d.ID.String(),
		SessionID:      d.SessionID.String(),
		Outcome:        string(d.Outcome),
		Rule:           d.Rule,
		RiskScore:      d.Risk.Value,
		FraudSeverity:  d.Fraud.Severity.String(),
		DecidedAt:      d.DecidedAt,
		AlreadyDecided: alreadyDecided,
	}
	if d.Override != nil {
		resp.Override = &OverrideView{
			Original: string(d.Override.Original),
			Actor:    d.Override.Actor,
			Reason:   d.Override.Reason,
			At:       d.Override.At,
		}
	}
	return resp
}

// FromDelivery maps a delivery record to its external view.
func FromDelivery(rec *notify.DeliveryRecord) DeliveryResponse {
	return DeliveryResponse{
		ID:         rec.ID.String(),
		DecisionID: rec.DecisionID.String(),
		Channel:    string(rec.Channel),
		Status:     string(rec.Status),
		Attempts:   rec.Attempts,
		LastError:  rec.LastError,
		UpdatedAt:  rec.UpdatedAt,
	}
}
