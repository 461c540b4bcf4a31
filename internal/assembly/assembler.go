// Package assembly builds the student-facing view of a quiz.
package assembly

import (
	"fmt"
	"math/rand"

	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"

	"quiz-delivery-service/internal/domain"
)

// ConfigView is the part of the quiz config a client may see.
type ConfigView struct {
	Duration         *int                    `json:"duration"`
	PresentationMode domain.PresentationMode `json:"presentation_mode"`
	AllowBack        bool                    `json:"allow_back"`
}

type PresentedOption struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

// PresentedQuestion carries no answer key.
type PresentedQuestion struct {
	ID              string              `json:"id"`
	Text            string              `json:"text"`
	Type            domain.QuestionType `json:"type"`
	Score           decimal.Decimal     `json:"score"`
	MediaURL        string              `json:"media_url,omitempty"`
	MCQSingleChoice bool                `json:"mcq_is_single_choice"`
	Options         []PresentedOption   `json:"options,omitempty"`
}

// Payload is what a student session receives.
type Payload struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Config      ConfigView          `json:"config"`
	Questions   []PresentedQuestion `json:"questions"`
}

// Shuffler permutes n elements through swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

type Assembler struct {
	shuffle Shuffler
}

type Option func(*Assembler)

// WithShuffler replaces the process-wide random source.
func WithShuffler(s Shuffler) Option { return func(a *Assembler) { a.shuffle = s } }

func New(opts ...Option) *Assembler {
	a := &Assembler{shuffle: rand.Shuffle}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble maps the resolved questions of quiz into a payload, applying the
// quiz's randomization settings to copies only. It fails with
// domain.ErrEmptyQuiz when no questions resolved.
func (a *Assembler) Assemble(quiz domain.Quiz, questions []domain.Question) (Payload, error) {
	if len(questions) == 0 {
		return Payload{}, domain.ErrEmptyQuiz
	}

	presented := make([]PresentedQuestion, 0, len(questions))
	for _, q := range questions {
		var pq PresentedQuestion
		if err := copier.Copy(&pq, &q); err != nil {
			return Payload{}, domain.Internal(fmt.Errorf("present question %s: %w", q.ID, err))
		}
		if q.Type != domain.QuestionMCQ {
			pq.Options = nil
		} else if quiz.Config.ShuffleAnswers && len(pq.Options) > 1 {
			opts := pq.Options
			a.shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		}
		presented = append(presented, pq)
	}

	if quiz.Config.RandomizeQuestions && len(presented) > 1 {
		a.shuffle(len(presented), func(i, j int) { presented[i], presented[j] = presented[j], presented[i] })
	}

	return Payload{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Config: ConfigView{
			Duration:         quiz.Config.Duration,
			PresentationMode: quiz.Config.PresentationMode,
			AllowBack:        quiz.Config.AllowBack,
		},
		Questions: presented,
	}, nil
}
