// Package decision combines a risk score, a fraud signal, and document
// completeness into one immutable, auditable Decision. Rules live here,
// centralized and testable; thresholds arrive as configuration.
package decision

import (
	"time"

	"underwrite/internal/fraud"
	"underwrite/internal/risk"
	"underwrite/pkg/domain"
)

// Outcome is the final automated result of an evaluation.
type Outcome string

const (
	OutcomeAutoApprove       Outcome = "AUTO_APPROVE"
	OutcomeAutoReject        Outcome = "AUTO_REJECT"
	OutcomeApprovedWithConds Outcome = "APPROVED_WITH_CONDITIONS"
	OutcomeHumanReview       Outcome = "HUMAN_REVIEW"
	OutcomeReferred          Outcome = "REFERRED"
)

// ValidOutcome reports whether s names a known outcome.
func ValidOutcome(s string) bool {
	switch Outcome(s) {
	case OutcomeAutoApprove, OutcomeAutoReject, OutcomeApprovedWithConds, OutcomeHumanReview, OutcomeReferred:
		return true
	}
	return false
}

// Override records a manual correction to a finalized Decision. The original
// Decision is never edited; the override rides on the appended one.
type Override struct {
	Original Outcome
	Actor    string
	Reason   string
	At       time.Time
}

// Decision is append-only. A new Decision object is created for an override;
// an existing one is never edited.
type Decision struct {
	ID        domain.DecisionID
	SessionID domain.SessionID
	Outcome   Outcome
	// Rule names the matching rule, for explainability and adverse-action
	// notices.
	Rule      string
	Risk      risk.Score
	Fraud     fraud.Signal
	DecidedAt time.Time
	Override  *Override
}

// IsOverride reports whether this record was appended through the override
// flow rather than produced by the engine.
func (d *Decision) IsOverride() bool { return d.Override != nil }
