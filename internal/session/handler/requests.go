package handler

import (
	"strings"
	"time"

	"underwrite/internal/decision"
	"underwrite/internal/notify"
	"underwrite/internal/session"
	dErrors "underwrite/pkg/domain-errors"
)

// StartSessionRequest is the HTTP body for POST /sessions.
type StartSessionRequest struct {
	CustomerRef string        `json:"customer_ref"`
	Kind        string        `json:"kind"`
	Claim       *ClaimRequest `json:"claim,omitempty"`
}

// ClaimRequest carries claim intake metadata.
type ClaimRequest struct {
	Type            string    `json:"type"`
	Amount          float64   `json:"amount"`
	PolicyStartedAt time.Time `json:"policy_started_at"`
	FiledAt         time.Time `json:"filed_at"`
}

func (r *StartSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.CustomerRef = strings.TrimSpace(r.CustomerRef)
	if r.CustomerRef == "" {
		return dErrors.New(dErrors.CodeValidation, "customer_ref is required")
	}
	r.Kind = strings.TrimSpace(r.Kind)
	switch session.IntakeKind(r.Kind) {
	case "", session.KindUnderwriting:
	case session.KindClaim:
		if r.Claim == nil {
			return dErrors.New(dErrors.CodeValidation, "claim is required for claim intake")
		}
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown intake kind %q", r.Kind)
	}
	return nil
}

// SubmitAnswerRequest is the HTTP body for POST /sessions/{id}/answers.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Value      any    `json:"value"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.QuestionID = strings.TrimSpace(r.QuestionID)
	if r.QuestionID == "" {
		return dErrors.New(dErrors.CodeValidation, "question_id is required")
	}
	if r.Value == nil {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}

// HealthAssessmentRequest is the HTTP body for POST /sessions/{id}/health.
type HealthAssessmentRequest struct {
	ConditionLevel int      `json:"condition_level"`
	Conditions     []string `json:"conditions"`
	Medications    []string `json:"medications"`
	Allergies      []string `json:"allergies"`
}

func (r *HealthAssessmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ConditionLevel < 1 || r.ConditionLevel > 10 {
		return dErrors.New(dErrors.CodeValidation, "condition_level must be between 1 and 10")
	}
	return nil
}

// UploadDocumentRequest is the HTTP body for POST /sessions/{id}/documents.
// Content arrives base64 encoded per encoding/json's []byte convention.
type UploadDocumentRequest struct {
	Type      string    `json:"type"`
	Content   []byte    `json:"content"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *UploadDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	if !session.ValidDocumentType(r.Type) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown document type %q", r.Type)
	}
	if len(r.Content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

// VerifyDocumentRequest is the verifier callback body.
type VerifyDocumentRequest struct {
	Verified *bool `json:"verified"`
}

func (r *VerifyDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Verified == nil {
		return dErrors.New(dErrors.CodeValidation, "verified is required")
	}
	return nil
}

// RequestDecisionRequest selects the notification channels for the outcome.
// COMBINED expands to every concrete channel; an empty list means all.
type RequestDecisionRequest struct {
	Channels []string `json:"channels"`

	parsedChannels []notify.Channel
}

func (r *RequestDecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Channels) == 0 {
		r.parsedChannels = notify.AllChannels()
		return nil
	}
	channels, err := notify.ParseChannels(r.Channels)
	if err != nil {
		return err
	}
	r.parsedChannels = channels
	return nil
}

// ParsedChannels returns the validated channel list.
func (r *RequestDecisionRequest) ParsedChannels() []notify.Channel {
	return r.parsedChannels
}

// OverrideDecisionRequest is the HTTP body for the override endpoint.
type OverrideDecisionRequest struct {
	Outcome  string   `json:"outcome"`
	Actor    string   `json:"actor"`
	Reason   string   `json:"reason"`
	Channels []string `json:"channels"`

	parsedChannels []notify.Channel
}

func (r *OverrideDecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Outcome = strings.TrimSpace(r.Outcome)
	if !decision.ValidOutcome(r.Outcome) {
		return dErrors.Newf(dErrors.CodeValidation, "unknown outcome %q", r.Outcome)
	}
	r.Actor = strings.TrimSpace(r.Actor)
	if r.Actor == "" {
		return dErrors.New(dErrors.CodeValidation, "actor is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Channels) == 0 {
		r.parsedChannels = notify.AllChannels()
		return nil
	}
	channels, err := notify.ParseChannels(r.Channels)
	if err != nil {
		return err
	}
	r.parsedChannels = channels
	return nil
}

// ParsedChannels returns the validated channel list.
func (r *OverrideDecisionRequest) ParsedChannels() []notify.Channel {
	return r.parsedChannels
}
