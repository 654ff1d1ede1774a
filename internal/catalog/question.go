// Package catalog holds the published questionnaire: typed questions, their
// validators, and the per-answer risk weights the scoring engine consumes.
// Questions are immutable once published; there are no side effects here.
package catalog

// Category groups questions by what they assess. Health questions carry more
// importance in scoring than lifestyle ones.
type Category string

const (
	CategoryHealth     Category = "health"
	CategoryLifestyle  Category = "lifestyle"
	CategoryValidation Category = "validation"
)

// QuestionType is the closed set of answer shapes a question can take.
type QuestionType string

const (
	TypeBoolean QuestionType = "boolean"
	TypeChoice  QuestionType = "choice"
	TypeNumeric QuestionType = "numeric"
	TypeText    QuestionType = "text"
	TypeDate    QuestionType = "date"
	TypeRating  QuestionType = "rating"
)

// Rating answers are integers in [RatingMin, RatingMax].
const (
	RatingMin = 1
	RatingMax = 10
)

// QuestionID is the stable identifier of a published question.
type QuestionID string

// Question is one published questionnaire entry.
type Question struct {
	ID       QuestionID
	Category Category
	Type     QuestionType
	Prompt   string
	Required bool

	// Importance is the question's weight in the scoring average. Health
	// questions ship with higher importance than lifestyle ones.
	Importance float64

	// Choices enumerates the legal values for TypeChoice questions.
	Choices []string

	// Min and Max bound TypeNumeric answers when MaxSet/MinSet hold.
	Min, Max       float64
	MinSet, MaxSet bool

	// Weights maps an answer's canonical key to its favorability weight in
	// [0,1]; higher means more insurable. Answers without an entry fall
	// back to DefaultWeight, except ratings which derive their weight from
	// the rating value itself.
	Weights       map[string]float64
	DefaultWeight float64
}

// Weight resolves the favorability weight for a validated answer value.
func (q Question) Weight(v AnswerValue) float64 {
	if w, ok := q.Weights[v.Key()]; ok {
		return w
	}
	if r, ok := v.(RatingValue); ok && q.Type == TypeRating {
		return float64(int(r)-RatingMin) / float64(RatingMax-RatingMin)
	}
	return q.DefaultWeight
}
