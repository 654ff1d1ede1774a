package decision

import (
	"time"

	"underwrite/internal/fraud"
	"underwrite/internal/risk"
	"underwrite/pkg/domain"
)

// Thresholds are the tunable cut points of the rule chain. They come from
// configuration so policy tuning never requires a code change.
type Thresholds struct {
	// Approve is the minimum score for automatic approval.
	Approve float64
	// Reject is the maximum score for automatic rejection.
	Reject float64
	// ConditionalFloor is the minimum mid-band score for a conditional
	// approval when fraud severity is MEDIUM.
	ConditionalFloor float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Approve: 0.85, Reject: 0.15, ConditionalFloor: 0.5}
}

// Input is everything an evaluation depends on.
type Input struct {
	Risk  risk.Score
	Fraud fraud.Signal
	// DocumentsComplete reports whether every required document reached
	// VERIFIED.
	DocumentsComplete bool
}

// Rule names, recorded on every Decision.
const (
	RuleFraudReferral       = "fraud_referral"
	RuleIncompleteDocuments = "incomplete_documents"
	RuleAutoApprove         = "auto_approve"
	RuleAutoReject          = "auto_reject"
	RuleConditionalApproval = "conditional_approval"
	RuleDefaultReview       = "default_review"
	RuleManualOverride      = "manual_override"
)

// Engine evaluates the rule chain. Stateless; safe for concurrent use.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Evaluate applies the rules in strict priority order; the first match wins
// and the ordering is itself a contract under test.
//
//  1. Fraud HIGH or CRITICAL always refers, regardless of score.
//  2. Incomplete documents can never be auto-decided.
//  3. High score with clean fraud auto-approves.
//  4. Low score auto-rejects.
//  5. Mid-band with MEDIUM fraud is conditionally approved above the
//     conditional floor, otherwise reviewed.
//  6. Everything else goes to a human.
func (e *Engine) Evaluate(in Input) (Outcome, string) {
	if in.Fraud.Severity >= fraud.SeverityHigh {
		return OutcomeReferred, RuleFraudReferral
	}

	if !in.DocumentsComplete {
		return OutcomeHumanReview, RuleIncompleteDocuments
	}

	score := in.Risk.Value

	if score >= e.thresholds.Approve && in.Fraud.Severity <= fraud.SeverityLow {
		return OutcomeAutoApprove, RuleAutoApprove
	}

	if score <= e.thresholds.Reject {
		return OutcomeAutoReject, RuleAutoReject
	}

	if in.Fraud.Severity == fraud.SeverityMedium {
		if score >= e.thresholds.ConditionalFloor {
			return OutcomeApprovedWithConds, RuleConditionalApproval
		}
		return OutcomeHumanReview, RuleDefaultReview
	}

	return OutcomeHumanReview, RuleDefaultReview
}

// Decide evaluates the input and materializes the immutable Decision record.
func (e *Engine) Decide(sessionID domain.SessionID, in Input, at time.Time) *Decision {
	outcome, rule := e.Evaluate(in)
	return &Decision{
		ID:        domain.NewDecisionID(),
		SessionID: sessionID,
		Outcome:   outcome,
		Rule:      rule,
		Risk:      in.Risk,
		Fraud:     in.Fraud,
		DecidedAt: at.UTC(),
	}
}

// NewOverride builds the Decision appended by the override flow. The
// superseded Decision's scores carry over unchanged; only the outcome and
// the override record differ.
func NewOverride(prev *Decision, newOutcome Outcome, actor, reason string, at time.Time) *Decision {
	return &Decision{
		ID:        domain.NewDecisionID(),
		SessionID: prev.SessionID,
		Outcome:   newOutcome,
		Rule:      RuleManualOverride,
		Risk:      prev.Risk,
		Fraud:     prev.Fraud,
		DecidedAt: at.UTC(),
		Override: &Override{
			Original: prev.Outcome,
			Actor:    actor,
			Reason:   reason,
			At:       at.UTC(),
		},
	}
}
