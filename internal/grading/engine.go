// Package grading scores submitted answers against stored answer keys.
package grading

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"quiz-delivery-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Outcome is the result of grading one answered question. Correct is nil when
// correctness is deferred to a reviewer.
type Outcome struct {
	Correct           *bool
	Awarded           decimal.Decimal
	NeedsManualReview bool
}

// Strategy grades a single question type. Implementations must degrade a
// malformed answer to an incorrect outcome instead of failing.
type Strategy interface {
	Grade(q domain.Question, answer any) Outcome
}

// Result aggregates a whole submission.
type Result struct {
	ScoreAchieved    decimal.Decimal
	MaxPossibleScore decimal.Decimal
	Percentage       decimal.Decimal
	Passed           bool
	Threshold        decimal.Decimal
	Details          []domain.GradedDetail
}

// Engine routes each question to the strategy for its type. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	strategies map[domain.QuestionType]Strategy
	log        zerolog.Logger
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(t domain.QuestionType, s Strategy) Option {
	return func(e *Engine) { e.strategies[t] = s }
}

// NewEngine installs the built-in MCQ and short-text strategies.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategies: map[domain.QuestionType]Strategy{
			domain.QuestionMCQ:       mcqStrategy{},
			domain.QuestionShortText: shortTextStrategy{},
		},
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Grade scores answers against questions, which must be the canonical stored
// records in quiz order. Every question counts toward the maximum, answered
// or not, and details follow the order of questions.
func (e *Engine) Grade(cfg domain.QuizConfig, questions []domain.Question, answers map[string]any) Result {
	res := Result{
		ScoreAchieved:    decimal.Zero,
		MaxPossibleScore: decimal.Zero,
		Threshold:        cfg.PassScore,
		Details:          make([]domain.GradedDetail, 0, len(questions)),
	}

	for _, q := range questions {
		res.MaxPossibleScore = res.MaxPossibleScore.Add(q.Score)

		detail := domain.GradedDetail{QuestionID: q.ID, ScoreAwarded: decimal.Zero}
		answer, ok := answers[q.ID]
		if !ok || answer == nil {
			res.Details = append(res.Details, detail)
			continue
		}

		var out Outcome
		if s, ok := e.strategies[q.Type]; ok {
			out = s.Grade(q, answer)
		} else {
			e.log.Warn().Str("question_id", q.ID).Str("type", string(q.Type)).Msg("no grading strategy for question type")
			out = incorrect()
		}

		detail.IsCorrect = out.Correct
		detail.ScoreAwarded = out.Awarded
		detail.NeedsManualReview = out.NeedsManualReview
		res.ScoreAchieved = res.ScoreAchieved.Add(out.Awarded)
		res.Details = append(res.Details, detail)
	}

	res.Percentage = Percentage(res.ScoreAchieved, res.MaxPossibleScore)
	res.Passed = res.Percentage.GreaterThanOrEqual(cfg.PassScore)
	return res
}

// Percentage returns achieved/max*100 rounded half-up to two places, or zero
// when max is not positive.
func Percentage(achieved, max decimal.Decimal) decimal.Decimal {
	if !max.IsPositive() {
		return decimal.Zero
	}
	// DivRound rounds half away from zero, which is half-up for scores.
	return achieved.Mul(hundred).DivRound(max, 2)
}

func correct(score decimal.Decimal) Outcome {
	t := true
	return Outcome{Correct: &t, Awarded: score}
}

func incorrect() Outcome {
	f := false
	return Outcome{Correct: &f, Awarded: decimal.Zero}
}
