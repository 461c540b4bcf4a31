package memory

import (
	"context"
	"sync"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/domain"
)

// FeedRegistry is an in-memory implementation of app.FeedRegistry. Joining,
// leaving and publishing all hold the registry lock, so a feed is only
// dropped when it really has no subscribers.
type FeedRegistry struct {
	mu    sync.Mutex
	feeds map[string]*app.Feed
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{
		feeds: make(map[string]*app.Feed),
	}
}

func (r *FeedRegistry) Subscribe(_ context.Context, quizID string) (<-chan domain.AttemptSummary, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	feed, ok := r.feeds[quizID]
	if !ok {
		feed = app.NewFeed()
		r.feeds[quizID] = feed
	}
	ch, unsubscribe := feed.Subscribe()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			unsubscribe()
			if r.feeds[quizID] == feed && feed.IsIdle() {
				delete(r.feeds, quizID)
			}
		})
	}
	return ch, cancel, nil
}

func (r *FeedRegistry) Publish(_ context.Context, summary domain.AttemptSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if feed, ok := r.feeds[summary.QuizID]; ok {
		feed.Publish(summary)
	}
	return nil
}

// Watched reports whether quizID currently has a feed with subscribers.
func (r *FeedRegistry) Watched(quizID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.feeds[quizID]
	return ok
}
