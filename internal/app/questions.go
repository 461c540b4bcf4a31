package app

import (
	"strings"

	"quiz-delivery-service/internal/domain"
)

// QuestionRepository is a read-only index over a document's questions.
type QuestionRepository struct {
	byID map[string]domain.Question
}

func NewQuestionRepository(doc domain.Document) QuestionRepository {
	byID := make(map[string]domain.Question, len(doc.Questions))
	for _, q := range doc.Questions {
		byID[q.ID] = q
	}
	return QuestionRepository{byID: byID}
}

func (r QuestionRepository) ByID(id string) (domain.Question, bool) {
	q, ok := r.byID[id]
	return q, ok
}

// ForQuiz resolves quiz.Questions in stored order, skipping dangling ids.
func (r QuestionRepository) ForQuiz(quiz domain.Quiz) []domain.Question {
	out := make([]domain.Question, 0, len(quiz.Questions))
	for _, id := range quiz.Questions {
		if q, ok := r.ByID(id); ok {
			out = append(out, q)
		}
	}
	return out
}

// ResolveByKey finds the quiz whose access key matches case-insensitively.
// The first match wins; archived matches are forbidden rather than missing.
func ResolveByKey(doc domain.Document, key string) (domain.Quiz, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Quiz{}, domain.ErrMissingAccessKey
	}
	for _, quiz := range doc.Quizzes {
		if quiz.AccessKey != "" && strings.EqualFold(quiz.AccessKey, key) {
			if quiz.Archived {
				return domain.Quiz{}, domain.ErrQuizInactive
			}
			return quiz, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// activeQuiz looks a quiz up by id and rejects archived ones.
func activeQuiz(doc *domain.Document, quizID string) (*domain.Quiz, error) {
	idx := doc.QuizByID(quizID)
	if idx < 0 {
		return nil, domain.ErrQuizNotFound
	}
	if doc.Quizzes[idx].Archived {
		return nil, domain.ErrQuizInactive
	}
	return &doc.Quizzes[idx], nil
}
