package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"

	dErrors "underwrite/pkg/domain-errors"
)

// Catalog is an immutable, ordered set of published questions.
type Catalog struct {
	questions map[QuestionID]Question
	order     []QuestionID
}

// New builds a catalog from published questions. Duplicate ids and malformed
// weight tables are construction errors, not runtime surprises.
func New(questions ...Question) (*Catalog, error) {
	c := &Catalog{questions: make(map[QuestionID]Question, len(questions))}
	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("catalog: question with empty id")
		}
		if _, dup := c.questions[q.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate question id %q", q.ID)
		}
		if q.Importance <= 0 {
			q.Importance = 1
		}
		for key, w := range q.Weights {
			if w < 0 || w > 1 {
				return nil, fmt.Errorf("catalog: question %q weight for %q out of [0,1]", q.ID, key)
			}
		}
		if q.DefaultWeight < 0 || q.DefaultWeight > 1 {
			return nil, fmt.Errorf("catalog: question %q default weight out of [0,1]", q.ID)
		}
		c.questions[q.ID] = q
		c.order = append(c.order, q.ID)
	}
	return c, nil
}

// MustNew is New for statically declared catalogs.
func MustNew(questions ...Question) *Catalog {
	c, err := New(questions...)
	if err != nil {
		panic(err)
	}
	return c
}

// Question looks up a published question by id.
func (c *Catalog) Question(id QuestionID) (Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

// QuestionSet returns the ordered questions for a category, or all questions
// when category is empty.
func (c *Catalog) QuestionSet(category Category) []Question {
	out := make([]Question, 0, len(c.order))
	for _, id := range c.order {
		q := c.questions[id]
		if category == "" || q.Category == category {
			out = append(out, q)
		}
	}
	return out
}

// Required returns the ordered required questions.
func (c *Catalog) Required() []Question {
	out := make([]Question, 0, len(c.order))
	for _, id := range c.order {
		if q := c.questions[id]; q.Required {
			out = append(out, q)
		}
	}
	return out
}

// Order returns the publication order of all question ids.
func (c *Catalog) Order() []QuestionID {
	return append([]QuestionID{}, c.order...)
}

// Validate checks a raw answer against a question's type and constraints,
// returning the typed value. The switch is exhaustive over QuestionType.
func (c *Catalog) Validate(q Question, raw any) (AnswerValue, error) {
	if raw == nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: answer value is required", q.ID)
	}

	switch q.Type {
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected a boolean", q.ID)
		}
		return BoolValue(b), nil

	case TypeChoice:
		s, ok := raw.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected a choice string", q.ID)
		}
		s = strings.TrimSpace(s)
		for _, choice := range q.Choices {
			if s == choice {
				return ChoiceValue(s), nil
			}
		}
		return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: %q is not one of the allowed choices", q.ID, s)

	case TypeNumeric:
		f, ok := raw.(float64)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected a number", q.ID)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: number is not finite", q.ID)
		}
		if q.MinSet && f < q.Min {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: value below minimum %v", q.ID, q.Min)
		}
		if q.MaxSet && f > q.Max {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: value above maximum %v", q.ID, q.Max)
		}
		return NumericValue(f), nil

	case TypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected text", q.ID)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: text answer must not be empty", q.ID)
		}
		if len(s) > 2000 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: text answer exceeds 2000 characters", q.ID)
		}
		return TextValue(s), nil

	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected a date string", q.ID)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return DateValue(t), nil
			}
		}
		return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: %q is not a valid date", q.ID, s)

	case TypeRating:
		f, ok := raw.(float64)
		if !ok {
			if n, isInt := raw.(int); isInt {
				f, ok = float64(n), true
			}
		}
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: expected a rating number", q.ID)
		}
		n, err := coerceInt(f)
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: rating must be an integer", q.ID)
		}
		if n < RatingMin || n > RatingMax {
			return nil, dErrors.Newf(dErrors.CodeValidation, "question %s: rating must be between %d and %d", q.ID, RatingMin, RatingMax)
		}
		return RatingValue(n), nil
	}

	return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "question %s: unknown question type %q", q.ID, q.Type)
}
