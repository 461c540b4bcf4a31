package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttemptSummary is the listing view of an attempt.
type AttemptSummary struct {
	AttemptID             string          `json:"attempt_id"`
	QuizID                string          `json:"quiz_id"`
	Students              []Student       `json:"students"`
	ScoreAchieved         decimal.Decimal `json:"score_achieved"`
	MaxPossibleScore      decimal.Decimal `json:"max_possible_score"`
	Percentage            decimal.Decimal `json:"percentage"`
	Passed                bool            `json:"passed"`
	SubmittedAt           time.Time       `json:"submitted_at"`
	SubmittedDueToTimeout bool            `json:"submitted_due_to_timeout"`
	NeedsManualReview     bool            `json:"needs_manual_review"`
}

func (a Attempt) Summary() AttemptSummary {
	return AttemptSummary{
		AttemptID:             a.AttemptID,
		QuizID:                a.QuizID,
		Students:              a.Students,
		ScoreAchieved:         a.ScoreAchieved,
		MaxPossibleScore:      a.MaxPossibleScore,
		Percentage:            a.Percentage,
		Passed:                a.Passed,
		SubmittedAt:           a.SubmittedAt,
		SubmittedDueToTimeout: a.SubmittedDueToTimeout,
		NeedsManualReview:     a.NeedsManualReview(),
	}
}
