package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"underwrite/internal/catalog"
)

// =============================================================================
// Risk Engine Test Suite
// =============================================================================
// Justification for unit tests: scoring is a pure function whose determinism
// and order-independence are contractual. Feature tests see only the final
// number; these tests pin the factor breakdown and the penalty arithmetic.

type RiskEngineSuite struct {
	suite.Suite
	engine *Engine
}

func TestRiskEngineSuite(t *testing.T) {
	suite.Run(t, new(RiskEngineSuite))
}

func (s *RiskEngineSuite) SetupTest() {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.engine = NewEngine(catalog.Default(), DefaultConfig()).WithClock(func() time.Time { return fixed })
}

func healthyAnswers() map[catalog.QuestionID]catalog.AnswerValue {
	return map[catalog.QuestionID]catalog.AnswerValue{
		"smoker":                catalog.BoolValue(false),
		"chronic_conditions":    catalog.ChoiceValue("none"),
		"hospitalized_recently": catalog.BoolValue(false),
		"self_rating":           catalog.RatingValue(9),
		"alcohol":               catalog.ChoiceValue("never"),
		"hazardous_activity":    catalog.ChoiceValue("none"),
	}
}

func (s *RiskEngineSuite) TestCompute() {
	s.Run("healthy profile scores in the approval band", func() {
		score := s.engine.Compute(Input{Answers: healthyAnswers()})
		s.GreaterOrEqual(score.Value, 0.85)
		s.Less(score.Value, 1.0)
		s.Len(score.Factors, len(healthyAnswers()))
	})

	s.Run("identical input yields identical score", func() {
		a := s.engine.Compute(Input{Answers: healthyAnswers()})
		b := s.engine.Compute(Input{Answers: healthyAnswers()})
		s.Equal(a, b)
	})

	s.Run("smoking drags the score down", func() {
		answers := healthyAnswers()
		answers["smoker"] = catalog.BoolValue(true)
		healthy := s.engine.Compute(Input{Answers: healthyAnswers()})
		smoker := s.engine.Compute(Input{Answers: answers})
		s.Less(smoker.Value, healthy.Value)
	})

	s.Run("no answers scores zero", func() {
		score := s.engine.Compute(Input{})
		s.Zero(score.Value)
		s.Empty(score.Factors)
	})

	s.Run("factor contributions sum to the pre-penalty score", func() {
		score := s.engine.Compute(Input{Answers: healthyAnswers()})
		var sum float64
		for _, f := range score.Factors {
			sum += f.Contribution
		}
		s.InDelta(score.Value, sum, 1e-9)
	})

	s.Run("factors follow catalog publication order", func() {
		score := s.engine.Compute(Input{Answers: healthyAnswers()})
		s.Equal("answer:smoker", score.Factors[0].Name)
		s.Equal("answer:chronic_conditions", score.Factors[1].Name)
	})

	s.Run("computed at uses the injected clock", func() {
		score := s.engine.Compute(Input{Answers: healthyAnswers()})
		s.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), score.ComputedAt)
	})
}

// =============================================================================
// Health Assessment Factor Tests
// =============================================================================

func (s *RiskEngineSuite) TestHealthFactor() {
	s.Run("perfect health contributes full favorability", func() {
		score := s.engine.Compute(Input{
			Answers: healthyAnswers(),
			Health:  &Health{ConditionLevel: 1},
		})
		factor := s.findFactor(score, "health_assessment")
		s.Require().NotNil(factor)
		s.InDelta(1.0, factor.Value, 1e-9)
	})

	s.Run("worst health contributes nothing", func() {
		score := s.engine.Compute(Input{
			Answers: healthyAnswers(),
			Health:  &Health{ConditionLevel: 10},
		})
		factor := s.findFactor(score, "health_assessment")
		s.Require().NotNil(factor)
		s.InDelta(0.0, factor.Value, 1e-9)
	})

	s.Run("declared items erode favorability up to the cap", func() {
		two := s.engine.Compute(Input{
			Health: &Health{ConditionLevel: 1, Conditions: []string{"asthma"}, Medications: []string{"inhaler"}},
		})
		s.InDelta(0.9, s.findFactor(two, "health_assessment").Value, 1e-9)

		many := s.engine.Compute(Input{
			Health: &Health{ConditionLevel: 1, Conditions: make([]string, 20)},
		})
		s.InDelta(0.7, s.findFactor(many, "health_assessment").Value, 1e-9)
	})

	s.Run("condition level is clamped to the scale", func() {
		low := s.engine.Compute(Input{Health: &Health{ConditionLevel: -3}})
		high := s.engine.Compute(Input{Health: &Health{ConditionLevel: 40}})
		s.InDelta(1.0, s.findFactor(low, "health_assessment").Value, 1e-9)
		s.InDelta(0.0, s.findFactor(high, "health_assessment").Value, 1e-9)
	})
}

// =============================================================================
// Document Penalty Tests
// =============================================================================

func (s *RiskEngineSuite) TestDocumentPenalty() {
	s.Run("each missing document subtracts a fixed penalty", func() {
		complete := s.engine.Compute(Input{Answers: healthyAnswers()})
		missing := s.engine.Compute(Input{Answers: healthyAnswers(), MissingRequiredDocuments: 1})
		s.InDelta(complete.Value-0.15, missing.Value, 1e-9)

		penalty := s.findFactor(missing, "incomplete_documents")
		s.Require().NotNil(penalty)
		s.InDelta(-0.15, penalty.Contribution, 1e-9)
	})

	s.Run("score never goes below zero", func() {
		score := s.engine.Compute(Input{Answers: healthyAnswers(), MissingRequiredDocuments: 10})
		s.Zero(score.Value)
	})
}

func (s *RiskEngineSuite) findFactor(score Score, name string) *Factor {
	for i := range score.Factors {
		if score.Factors[i].Name == name {
			return &score.Factors[i]
		}
	}
	return nil
}
