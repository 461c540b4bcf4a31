package app

import (
	"context"
	"sync"

	"quiz-delivery-service/internal/domain"
)

// FeedRegistry tracks live attempt feeds (in-memory, Redis, etc).
// Subscribe creates the quiz's feed if needed and registers the subscriber in
// one step; the returned cancel leaves and drops the feed once nobody is left.
// Publish delivers a summary to every current subscriber of its quiz.
type FeedRegistry interface {
	Subscribe(ctx context.Context, quizID string) (<-chan domain.AttemptSummary, func(), error)
	Publish(ctx context.Context, summary domain.AttemptSummary) error
}

// Feed fans out summaries of newly recorded attempts for one quiz.
type Feed struct {
	mu          sync.Mutex
	published   int
	subscribers map[chan domain.AttemptSummary]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan domain.AttemptSummary]struct{})}
}

// Published reports how many summaries went through this feed.
func (f *Feed) Published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

// IsIdle reports whether nobody is listening.
func (f *Feed) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}

// Subscribe adds a buffered listener. Registries call it while holding their
// own lock so joining cannot interleave with another listener leaving.
func (f *Feed) Subscribe() (<-chan domain.AttemptSummary, func()) {
	ch := make(chan domain.AttemptSummary, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers summary to every subscriber without blocking. A full
// subscriber loses its oldest pending summary.
func (f *Feed) Publish(summary domain.AttemptSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published++
	for ch := range f.subscribers {
		select {
		case ch <- summary:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- summary
		}
	}
}
