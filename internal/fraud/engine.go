// Package fraud evaluates application and claim metadata against a fixed
// rule set. Evaluation is pure: historical signals are fetched by the caller
// through the SignalStore port and passed in, so identical inputs always
// produce an identical Signal.
package fraud

import (
	"time"

	dErrors "underwrite/pkg/domain-errors"
)

// Severity grades suspected fraud. Ordered so escalation is an increment.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (s Severity) String() string {
	if s < SeverityNone || s > SeverityCritical {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// ParseSeverity is the inverse of String, used when signals come back from
// storage.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityNone, dErrors.Newf(dErrors.CodeInvalidInput, "unknown fraud severity %q", name)
}

// numeric converts a severity into its score contribution.
func (s Severity) numeric() float64 {
	return float64(s) / float64(SeverityCritical)
}

// Signal is one immutable evaluation result.
type Signal struct {
	Severity Severity
	// Rules names every triggered rule, in evaluation order.
	Rules []string
	// Score aggregates the numeric contributions of triggered rules,
	// capped at 1.
	Score      float64
	ComputedAt time.Time
}

// Rule names, recorded on the signal for explainability.
const (
	RuleRepeatIdentity   = "repeat_identity_velocity"
	RuleEarlyClaim       = "claim_shortly_after_policy_start"
	RuleExcessiveAmount  = "amount_exceeds_historical_average"
	RuleMissingDocuments = "missing_claim_documentation"
)

// Metadata is the application/claim context the rules inspect.
type Metadata struct {
	CustomerRef string
	// IsClaim distinguishes claim intake from new-business underwriting;
	// the claim-specific rules only apply when set.
	IsClaim         bool
	ClaimType       string
	ClaimAmount     float64
	PolicyStartedAt time.Time
	FiledAt         time.Time
	// DocumentationComplete reports whether every required document for
	// the intake reached VERIFIED.
	DocumentationComplete bool
}

// History carries the externally supplied historical signals.
type History struct {
	// RecentApplications counts applications or claims from the same
	// identity inside the configured velocity window.
	RecentApplications int
	// AverageClaimAmount is the historical average for the claim type over
	// the configured averaging window; zero means no history.
	AverageClaimAmount float64
}

// Config tunes the rule thresholds. AverageWindow documents the staleness
// bound of AverageClaimAmount; the SignalStore enforces it.
type Config struct {
	VelocityWindow    time.Duration
	VelocityThreshold int
	MinDaysAfterStart int
	AmountMultiple    float64
	AverageWindow     time.Duration
}

func DefaultConfig() Config {
	return Config{
		VelocityWindow:    24 * time.Hour,
		VelocityThreshold: 2,
		MinDaysAfterStart: 14,
		AmountMultiple:    3.0,
		AverageWindow:     90 * 24 * time.Hour,
	}
}

// Engine applies the rule set.
type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock overrides the timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Params returns the rule parameters in force. Callers use the windows to
// fetch matching history from the SignalStore.
func (e *Engine) Params() Config { return e.cfg }

// Evaluate runs every rule independently, takes the maximum contribution as
// the aggregate severity, and escalates one level when two or more rules
// trigger. Max-then-escalate keeps compounding risk visible without letting
// the aggregate inflate without bound.
func (e *Engine) Evaluate(meta Metadata, hist History) Signal {
	type contribution struct {
		rule     string
		severity Severity
	}
	var triggered []contribution

	if hist.RecentApplications >= e.cfg.VelocityThreshold {
		triggered = append(triggered, contribution{RuleRepeatIdentity, SeverityMedium})
	}

	if meta.IsClaim {
		if !meta.PolicyStartedAt.IsZero() {
			daysSinceStart := int(meta.FiledAt.Sub(meta.PolicyStartedAt).Hours() / 24)
			if daysSinceStart < e.cfg.MinDaysAfterStart {
				triggered = append(triggered, contribution{RuleEarlyClaim, SeverityMedium})
			}
		}
		if hist.AverageClaimAmount > 0 && meta.ClaimAmount >= e.cfg.AmountMultiple*hist.AverageClaimAmount {
			triggered = append(triggered, contribution{RuleExcessiveAmount, SeverityHigh})
		}
		if !meta.DocumentationComplete {
			triggered = append(triggered, contribution{RuleMissingDocuments, SeverityMedium})
		}
	}

	signal := Signal{ComputedAt: e.now().UTC()}
	var score float64
	for _, c := range triggered {
		signal.Rules = append(signal.Rules, c.rule)
		if c.severity > signal.Severity {
			signal.Severity = c.severity
		}
		score += c.severity.numeric()
	}

	// Two or more independent rules compound: escalate one level,
	// saturating at CRITICAL.
	if len(triggered) >= 2 && signal.Severity < SeverityCritical {
		signal.Severity++
	}

	if score > 1 {
		score = 1
	}
	signal.Score = score

	return signal
}
