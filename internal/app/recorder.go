package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quiz-delivery-service/internal/domain"
)

// AttemptRecorder appends graded attempts to the document. Attempts are never
// updated or deleted here.
type AttemptRecorder struct {
	docs  *Documents
	now   func() time.Time
	newID func() string
}

func NewAttemptRecorder(docs *Documents, now func() time.Time, newID func() string) *AttemptRecorder {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &AttemptRecorder{docs: docs, now: now, newID: newID}
}

// Record runs build against the freshest document, stamps the attempt with a
// new id and submission time, and commits. Nothing is saved if build fails.
func (r *AttemptRecorder) Record(ctx context.Context, build func(doc *domain.Document) (domain.Attempt, error)) (domain.Attempt, error) {
	var recorded domain.Attempt
	err := r.docs.Update(ctx, func(doc *domain.Document) error {
		attempt, err := build(doc)
		if err != nil {
			return err
		}
		attempt.AttemptID = r.newID()
		attempt.SubmittedAt = r.now().UTC()
		doc.Attempts = append(doc.Attempts, attempt)
		recorded = attempt
		return nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return recorded, nil
}
