package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "underwrite/pkg/domain-errors"
)

// AnswerValue is a closed sum type: exactly one variant per question type.
// The unexported marker keeps the set closed so validators and codecs can
// switch exhaustively.
type AnswerValue interface {
	isAnswerValue()
	// Key is the canonical form used for risk-weight lookup.
	Key() string
}

type (
	BoolValue    bool
	ChoiceValue  string
	NumericValue float64
	TextValue    string
	DateValue    time.Time
	RatingValue  int
)

func (BoolValue) isAnswerValue()    {}
func (ChoiceValue) isAnswerValue()  {}
func (NumericValue) isAnswerValue() {}
func (TextValue) isAnswerValue()    {}
func (DateValue) isAnswerValue()    {}
func (RatingValue) isAnswerValue()  {}

func (v BoolValue) Key() string    { return strconv.FormatBool(bool(v)) }
func (v ChoiceValue) Key() string  { return string(v) }
func (v NumericValue) Key() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v TextValue) Key() string    { return strings.ToLower(string(v)) }
func (v DateValue) Key() string    { return time.Time(v).Format("2006-01-02") }
func (v RatingValue) Key() string  { return strconv.Itoa(int(v)) }

// dateLayouts are the accepted wire formats for date answers.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// typeOf returns the QuestionType a value belongs to.
func typeOf(v AnswerValue) QuestionType {
	switch v.(type) {
	case BoolValue:
		return TypeBoolean
	case ChoiceValue:
		return TypeChoice
	case NumericValue:
		return TypeNumeric
	case TextValue:
		return TypeText
	case DateValue:
		return TypeDate
	case RatingValue:
		return TypeRating
	}
	return ""
}

// encodedValue is the persisted form of an AnswerValue. The type tag makes
// decoding unambiguous across store round-trips.
type encodedValue struct {
	Type  QuestionType `json:"type"`
	Value string       `json:"value"`
}

// EncodeValue serializes an AnswerValue for storage.
func EncodeValue(v AnswerValue) ([]byte, error) {
	var raw string
	switch val := v.(type) {
	case BoolValue:
		raw = strconv.FormatBool(bool(val))
	case ChoiceValue:
		raw = string(val)
	case NumericValue:
		raw = strconv.FormatFloat(float64(val), 'f', -1, 64)
	case TextValue:
		raw = string(val)
	case DateValue:
		raw = time.Time(val).Format(time.RFC3339)
	case RatingValue:
		raw = strconv.Itoa(int(val))
	default:
		return nil, fmt.Errorf("encode answer value: unknown variant %T", v)
	}
	return json.Marshal(encodedValue{Type: typeOf(v), Value: raw})
}

// DecodeValue deserializes an AnswerValue produced by EncodeValue.
func DecodeValue(data []byte) (AnswerValue, error) {
	var enc encodedValue
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("decode answer value: %w", err)
	}
	switch enc.Type {
	case TypeBoolean:
		b, err := strconv.ParseBool(enc.Value)
		if err != nil {
			return nil, fmt.Errorf("decode boolean answer: %w", err)
		}
		return BoolValue(b), nil
	case TypeChoice:
		return ChoiceValue(enc.Value), nil
	case TypeNumeric:
		f, err := strconv.ParseFloat(enc.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("decode numeric answer: %w", err)
		}
		return NumericValue(f), nil
	case TypeText:
		return TextValue(enc.Value), nil
	case TypeDate:
		t, err := time.Parse(time.RFC3339, enc.Value)
		if err != nil {
			return nil, fmt.Errorf("decode date answer: %w", err)
		}
		return DateValue(t), nil
	case TypeRating:
		n, err := strconv.Atoi(enc.Value)
		if err != nil {
			return nil, fmt.Errorf("decode rating answer: %w", err)
		}
		return RatingValue(n), nil
	}
	return nil, fmt.Errorf("decode answer value: unknown type %q", enc.Type)
}

// coerceInt extracts an integral value from JSON numbers, which arrive as
// float64, rejecting fractional input.
func coerceInt(raw float64) (int, error) {
	n := int(raw)
	if float64(n) != raw {
		return 0, dErrors.New(dErrors.CodeValidation, "value must be an integer")
	}
	return n, nil
}
