package grading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"quiz-delivery-service/internal/domain"
)

type mcqStrategy struct{}

// Grade applies the single-choice rule (exactly one selection, and it is a
// correct option) or exact set equality for multi-select. No partial credit.
func (mcqStrategy) Grade(q domain.Question, answer any) Outcome {
	selected, ok := toStringSlice(answer)
	if !ok {
		return incorrect()
	}
	key := toSet(q.CorrectAnswer)
	picked := toSet(selected)

	if q.MCQSingleChoice {
		if len(picked) == 1 && subset(picked, key) {
			return correct(q.Score)
		}
		return incorrect()
	}
	if setEqual(picked, key) {
		return correct(q.Score)
	}
	return incorrect()
}

type shortTextStrategy struct{}

func (shortTextStrategy) Grade(q domain.Question, answer any) Outcome {
	if q.ShortAnswerReviewMode != domain.ReviewAuto {
		return Outcome{Awarded: decimal.Zero, NeedsManualReview: true}
	}
	text, ok := answer.(string)
	if !ok {
		return incorrect()
	}
	if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(q.ShortAnswerCorrectText)) {
		return correct(q.Score)
	}
	return incorrect()
}

// toStringSlice accepts the shapes a decoded JSON array can take. Non-string
// elements are rendered so numeric option ids still compare.
func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			switch s := x.(type) {
			case string:
				out = append(out, s)
			case float64, int, int64, bool:
				out = append(out, fmt.Sprint(s))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func setEqual(a, b map[string]struct{}) bool {
	return len(a) == len(b) && subset(a, b)
}
