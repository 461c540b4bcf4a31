package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Scores travel as plain JSON numbers, matching the stored document.
	decimal.MarshalJSONWithoutQuotes = true
}

// QuestionType tags the grading rules a question follows.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "MCQ"
	QuestionShortText QuestionType = "SHORT_TEXT"
)

// ReviewMode decides whether short answers are graded automatically.
type ReviewMode string

const (
	ReviewManual ReviewMode = "manual"
	ReviewAuto   ReviewMode = "auto"
)

// PresentationMode controls how the client pages through questions.
type PresentationMode string

const (
	PresentAll      PresentationMode = "all"
	PresentOneByOne PresentationMode = "one-by-one"
)

// Option is a selectable MCQ choice.
type Option struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

// Question is a single gradable item together with its answer key.
type Question struct {
	ID                     string          `json:"id"`
	Text                   string          `json:"text"`
	Type                   QuestionType    `json:"type"`
	Score                  decimal.Decimal `json:"score"`
	Difficulty             string          `json:"difficulty,omitempty"`
	Category               string          `json:"category,omitempty"`
	MediaURL               string          `json:"media_url,omitempty"`
	QuizIDs                []string        `json:"quiz_ids"`
	Options                []Option        `json:"options"`
	CorrectAnswer          []string        `json:"correct_answer"`
	MCQSingleChoice        bool            `json:"mcq_is_single_choice"`
	ShortAnswerReviewMode  ReviewMode      `json:"short_answer_review_mode,omitempty"`
	ShortAnswerCorrectText string          `json:"short_answer_correct_text,omitempty"`
}

// QuizConfig holds delivery and grading settings of a quiz.
type QuizConfig struct {
	// Duration is the time limit in minutes; nil means untimed.
	Duration           *int             `json:"duration"`
	PassScore          decimal.Decimal  `json:"pass_score"`
	PresentationMode   PresentationMode `json:"presentation_mode"`
	AllowBack          bool             `json:"allow_back"`
	RandomizeQuestions bool             `json:"randomize_questions"`
	ShuffleAnswers     bool             `json:"shuffle_answers"`
}

// Quiz is a named collection of question ids with delivery configuration.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []string   `json:"questions"`
	Config      QuizConfig `json:"config"`
	AccessKey   string     `json:"access_key"`
	Archived    bool       `json:"archived"`
}

// Student identifies one member of a (possibly group) submission.
type Student struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	ID    string `json:"id"`
}

// GradedDetail is the per-question grading outcome. IsCorrect is nil when the
// question was left unanswered or awaits manual review.
type GradedDetail struct {
	QuestionID        string          `json:"question_id"`
	IsCorrect         *bool           `json:"is_correct"`
	ScoreAwarded      decimal.Decimal `json:"score_awarded"`
	NeedsManualReview bool            `json:"needs_manual_review"`
}

// Attempt is an immutable record of one graded submission.
type Attempt struct {
	AttemptID             string          `json:"attempt_id"`
	QuizID                string          `json:"quiz_id"`
	QuizTitle             string          `json:"quiz_title_at_submission"`
	Students              []Student       `json:"students"`
	Answers               map[string]any  `json:"answers"`
	ScoreAchieved         decimal.Decimal `json:"score_achieved"`
	MaxPossibleScore      decimal.Decimal `json:"max_possible_score"`
	Percentage            decimal.Decimal `json:"percentage"`
	Passed                bool            `json:"passed"`
	PassScoreThreshold    decimal.Decimal `json:"pass_score_threshold"`
	StartTime             *time.Time      `json:"start_time"`
	EndTime               *time.Time      `json:"end_time"`
	SubmittedAt           time.Time       `json:"submitted_at"`
	SubmittedDueToTimeout bool            `json:"submitted_due_to_timeout"`
	GradedDetails         []GradedDetail  `json:"graded_details"`
}

// NeedsManualReview reports whether any detail still awaits a reviewer.
func (a Attempt) NeedsManualReview() bool {
	for _, d := range a.GradedDetails {
		if d.NeedsManualReview {
			return true
		}
	}
	return false
}

// Document is the whole persisted state.
type Document struct {
	Quizzes   []Quiz     `json:"quizzes"`
	Questions []Question `json:"questions"`
	Attempts  []Attempt  `json:"attempts"`
}

// QuizByID returns the index of the quiz with the given id, or -1.
func (d *Document) QuizByID(id string) int {
	for i := range d.Quizzes {
		if d.Quizzes[i].ID == id {
			return i
		}
	}
	return -1
}
