// Package risk computes the insurability score for a session. The engine is
// a pure function of its input: identical inputs always yield an identical
// Score, which is what makes automated decisions defensible under audit.
package risk

import (
	"math"
	"time"

	"underwrite/internal/catalog"
)

// Factor is one named contribution to the final score. The full breakdown is
// retained so the decision record can show why the score came out as it did.
type Factor struct {
	Name string
	// Weight is the factor's share of the weighted average.
	Weight float64
	// Value is the factor's favorability in [0,1] before weighting.
	// Penalty factors carry the raw (negative) adjustment instead.
	Value float64
	// Contribution is the signed effect on the final score.
	Contribution float64
}

// Score is one immutable computation result. Recomputed, never mutated.
type Score struct {
	Value      float64
	Factors    []Factor
	ComputedAt time.Time
}

// Health is the engine's view of a session's health self-assessment.
type Health struct {
	ConditionLevel int
	Conditions     []string
	Medications    []string
}

// Input gathers everything a computation depends on.
type Input struct {
	Answers map[catalog.QuestionID]catalog.AnswerValue
	Health  *Health
	// MissingRequiredDocuments counts required documents not VERIFIED.
	MissingRequiredDocuments int
}

// Config tunes the non-questionnaire terms of the score.
type Config struct {
	// HealthWeight is the health-assessment factor's share in the average.
	HealthWeight float64
	// ItemPenalty is subtracted from the health factor per condition or
	// medication, up to ItemPenaltyCap.
	ItemPenalty    float64
	ItemPenaltyCap float64
	// DocumentPenalty is subtracted from the final score per missing
	// required document.
	DocumentPenalty float64
}

func DefaultConfig() Config {
	return Config{
		HealthWeight:    1.5,
		ItemPenalty:     0.05,
		ItemPenaltyCap:  0.3,
		DocumentPenalty: 0.15,
	}
}

// Engine scores sessions against a published catalog.
type Engine struct {
	catalog *catalog.Catalog
	cfg     Config
	// now is injectable for deterministic tests.
	now func() time.Time
}

func NewEngine(c *catalog.Catalog, cfg Config) *Engine {
	return &Engine{catalog: c, cfg: cfg, now: time.Now}
}

// WithClock overrides the timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Compute produces the score and its breakdown. Answers are iterated in
// catalog publication order, never map order, so the result is independent
// of submission order. Optional unanswered questions contribute nothing.
func (e *Engine) Compute(in Input) Score {
	var (
		factors     []Factor
		weightedSum float64
		totalWeight float64
	)

	for _, q := range e.catalog.QuestionSet("") {
		value, answered := in.Answers[q.ID]
		if !answered {
			continue
		}
		favorability := q.Weight(value)
		factors = append(factors, Factor{
			Name:   "answer:" + string(q.ID),
			Weight: q.Importance,
			Value:  favorability,
		})
		weightedSum += q.Importance * favorability
		totalWeight += q.Importance
	}

	if in.Health != nil {
		healthValue := e.healthFavorability(in.Health)
		factors = append(factors, Factor{
			Name:   "health_assessment",
			Weight: e.cfg.HealthWeight,
			Value:  healthValue,
		})
		weightedSum += e.cfg.HealthWeight * healthValue
		totalWeight += e.cfg.HealthWeight
	}

	score := 0.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	// Each averaged factor's contribution is its weighted share.
	for i := range factors {
		factors[i].Contribution = factors[i].Weight * factors[i].Value / totalWeight
	}

	if in.MissingRequiredDocuments > 0 {
		penalty := e.cfg.DocumentPenalty * float64(in.MissingRequiredDocuments)
		factors = append(factors, Factor{
			Name:         "incomplete_documents",
			Value:        -penalty,
			Contribution: -penalty,
		})
		score -= penalty
	}

	return Score{
		Value:      clamp01(score),
		Factors:    factors,
		ComputedAt: e.now().UTC(),
	}
}

// healthFavorability folds the self-assessed condition level and declared
// conditions/medications into one [0,1] term. Level 1 is perfect health; the
// risk contribution (level-1)/9 is subtracted from full favorability, and
// each declared condition or medication amplifies it by ItemPenalty, capped.
func (e *Engine) healthFavorability(h *Health) float64 {
	level := h.ConditionLevel
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	riskContribution := float64(level-1) / 9

	itemPenalty := e.cfg.ItemPenalty * float64(len(h.Conditions)+len(h.Medications))
	if itemPenalty > e.cfg.ItemPenaltyCap {
		itemPenalty = e.cfg.ItemPenaltyCap
	}

	return clamp01(1 - riskContribution - itemPenalty)
}

func clamp01(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}
