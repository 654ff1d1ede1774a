package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "underwrite/pkg/domain-errors"
)

// =============================================================================
// Catalog Test Suite
// =============================================================================
// Justification for unit tests: The catalog is the validation boundary for
// every answer that enters a session. Tests verify construction invariants,
// per-type validation rules, and the weight resolution the scoring engine
// depends on.

type CatalogSuite struct {
	suite.Suite
	catalog *Catalog
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.catalog = Default()
}

// =============================================================================
// Construction Tests (Invariant Enforcement)
// =============================================================================

func (s *CatalogSuite) TestNew() {
	s.Run("empty question id returns error", func() {
		_, err := New(Question{Type: TypeBoolean})
		s.Error(err)
		s.Contains(err.Error(), "empty id")
	})

	s.Run("duplicate question id returns error", func() {
		_, err := New(
			Question{ID: "q1", Type: TypeBoolean},
			Question{ID: "q1", Type: TypeText},
		)
		s.Error(err)
		s.Contains(err.Error(), "duplicate question id")
	})

	s.Run("weight outside unit interval returns error", func() {
		_, err := New(Question{
			ID:      "q1",
			Type:    TypeBoolean,
			Weights: map[string]float64{"true": 1.2},
		})
		s.Error(err)
	})

	s.Run("non-positive importance defaults to one", func() {
		c, err := New(Question{ID: "q1", Type: TypeBoolean})
		s.Require().NoError(err)
		q, ok := c.Question("q1")
		s.Require().True(ok)
		s.Equal(1.0, q.Importance)
	})

	s.Run("publication order is preserved", func() {
		c, err := New(
			Question{ID: "b", Type: TypeBoolean},
			Question{ID: "a", Type: TypeBoolean},
			Question{ID: "c", Type: TypeBoolean},
		)
		s.Require().NoError(err)
		s.Equal([]QuestionID{"b", "a", "c"}, c.Order())
	})
}

func (s *CatalogSuite) TestDefaultCatalog() {
	s.Run("publishes all categories", func() {
		s.NotEmpty(s.catalog.QuestionSet(CategoryHealth))
		s.NotEmpty(s.catalog.QuestionSet(CategoryLifestyle))
		s.NotEmpty(s.catalog.QuestionSet(CategoryValidation))
	})

	s.Run("required subset is stable", func() {
		var ids []QuestionID
		for _, q := range s.catalog.Required() {
			ids = append(ids, q.ID)
		}
		s.Equal([]QuestionID{"smoker", "chronic_conditions", "hospitalized_recently", "self_rating", "date_of_birth"}, ids)
	})
}

// =============================================================================
// Validation Tests (Per Question Type)
// =============================================================================

func (s *CatalogSuite) TestValidateBoolean() {
	q, _ := s.catalog.Question("smoker")

	s.Run("accepts a boolean", func() {
		v, err := s.catalog.Validate(q, false)
		s.Require().NoError(err)
		s.Equal(BoolValue(false), v)
	})

	s.Run("rejects a string", func() {
		_, err := s.catalog.Validate(q, "false")
		s.requireValidation(err)
	})

	s.Run("rejects nil", func() {
		_, err := s.catalog.Validate(q, nil)
		s.requireValidation(err)
	})
}

func (s *CatalogSuite) TestValidateChoice() {
	q, _ := s.catalog.Question("chronic_conditions")

	s.Run("accepts a listed choice", func() {
		v, err := s.catalog.Validate(q, "managed")
		s.Require().NoError(err)
		s.Equal(ChoiceValue("managed"), v)
	})

	s.Run("trims surrounding whitespace", func() {
		v, err := s.catalog.Validate(q, "  none ")
		s.Require().NoError(err)
		s.Equal(ChoiceValue("none"), v)
	})

	s.Run("rejects an unlisted choice", func() {
		_, err := s.catalog.Validate(q, "sometimes")
		s.requireValidation(err)
	})
}

func (s *CatalogSuite) TestValidateNumeric() {
	q, _ := s.catalog.Question("weekly_exercise_hours")

	s.Run("accepts a number in range", func() {
		v, err := s.catalog.Validate(q, 4.5)
		s.Require().NoError(err)
		s.Equal(NumericValue(4.5), v)
	})

	s.Run("rejects below minimum", func() {
		_, err := s.catalog.Validate(q, -1.0)
		s.requireValidation(err)
	})

	s.Run("rejects above maximum", func() {
		_, err := s.catalog.Validate(q, 101.0)
		s.requireValidation(err)
	})

	s.Run("rejects non-finite values", func() {
		_, err := s.catalog.Validate(q, math.NaN())
		s.requireValidation(err)
	})
}

func (s *CatalogSuite) TestValidateText() {
	q, _ := s.catalog.Question("occupation")

	s.Run("accepts non-empty text", func() {
		v, err := s.catalog.Validate(q, "actuary")
		s.Require().NoError(err)
		s.Equal(TextValue("actuary"), v)
	})

	s.Run("rejects whitespace-only text", func() {
		_, err := s.catalog.Validate(q, "   ")
		s.requireValidation(err)
	})

	s.Run("rejects oversized text", func() {
		long := make([]byte, 2001)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.catalog.Validate(q, string(long))
		s.requireValidation(err)
	})
}

func (s *CatalogSuite) TestValidateDate() {
	q, _ := s.catalog.Question("date_of_birth")

	s.Run("accepts ISO dates", func() {
		v, err := s.catalog.Validate(q, "1984-06-21")
		s.Require().NoError(err)
		dv, ok := v.(DateValue)
		s.Require().True(ok)
		s.Equal(1984, time.Time(dv).Year())
	})

	s.Run("accepts RFC3339 timestamps", func() {
		_, err := s.catalog.Validate(q, "1984-06-21T00:00:00Z")
		s.NoError(err)
	})

	s.Run("rejects unparseable dates", func() {
		_, err := s.catalog.Validate(q, "21/06/1984")
		s.requireValidation(err)
	})
}

func (s *CatalogSuite) TestValidateRating() {
	q, _ := s.catalog.Question("self_rating")

	s.Run("accepts integral ratings", func() {
		v, err := s.catalog.Validate(q, float64(7))
		s.Require().NoError(err)
		s.Equal(RatingValue(7), v)
	})

	s.Run("rejects fractional ratings", func() {
		_, err := s.catalog.Validate(q, 6.5)
		s.requireValidation(err)
	})

	s.Run("rejects ratings outside the scale", func() {
		_, err := s.catalog.Validate(q, float64(11))
		s.requireValidation(err)
		_, err = s.catalog.Validate(q, float64(0))
		s.requireValidation(err)
	})
}

// =============================================================================
// Weight Resolution Tests
// =============================================================================

func (s *CatalogSuite) TestWeight() {
	s.Run("mapped answer resolves its weight", func() {
		q, _ := s.catalog.Question("smoker")
		s.InDelta(0.2, q.Weight(BoolValue(true)), 1e-9)
		s.InDelta(0.95, q.Weight(BoolValue(false)), 1e-9)
	})

	s.Run("rating weight derives from the value", func() {
		q, _ := s.catalog.Question("self_rating")
		s.InDelta(0.0, q.Weight(RatingValue(1)), 1e-9)
		s.InDelta(1.0, q.Weight(RatingValue(10)), 1e-9)
		s.InDelta(4.0/9.0, q.Weight(RatingValue(5)), 1e-9)
	})

	s.Run("unmapped answer falls back to the default", func() {
		q, _ := s.catalog.Question("occupation")
		s.InDelta(0.7, q.Weight(TextValue("pilot")), 1e-9)
	})
}

// =============================================================================
// Value Codec Tests
// =============================================================================

func (s *CatalogSuite) TestValueCodec() {
	s.Run("round-trips every variant", func() {
		values := []AnswerValue{
			BoolValue(true),
			ChoiceValue("managed"),
			NumericValue(12.5),
			TextValue("actuary"),
			DateValue(time.Date(1984, 6, 21, 0, 0, 0, 0, time.UTC)),
			RatingValue(7),
		}
		for _, v := range values {
			data, err := EncodeValue(v)
			s.Require().NoError(err)
			got, err := DecodeValue(data)
			s.Require().NoError(err)
			s.Equal(v.Key(), got.Key())
		}
	})

	s.Run("rejects unknown type tags", func() {
		_, err := DecodeValue([]byte(`{"type":"telepathy","value":"x"}`))
		s.Error(err)
	})
}

func (s *CatalogSuite) requireValidation(err error) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}
