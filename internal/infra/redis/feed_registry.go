package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/domain"
)

const feedChannelPrefix = "quiz:feed:"

// FeedRegistry carries attempt summaries between instances over Redis
// Pub/Sub. Publish sends to the quiz channel; each instance holds one channel
// subscription per watched quiz and fans incoming summaries out locally, its
// own publishes included.
type FeedRegistry struct {
	client *redis.Client
	log    zerolog.Logger
	mu     sync.Mutex
	feeds  map[string]*channelFeed
}

// channelFeed is the local fan-out for one quiz and the subscription feeding it.
type channelFeed struct {
	feed   *app.Feed
	pubsub *redis.PubSub
}

func NewFeedRegistry(client *redis.Client, log zerolog.Logger) *FeedRegistry {
	return &FeedRegistry{
		client: client,
		log:    log,
		feeds:  make(map[string]*channelFeed),
	}
}

func (r *FeedRegistry) Subscribe(ctx context.Context, quizID string) (<-chan domain.AttemptSummary, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cf, ok := r.feeds[quizID]
	if !ok {
		var err error
		if cf, err = r.listen(ctx, quizID); err != nil {
			return nil, nil, err
		}
		r.feeds[quizID] = cf
	}
	ch, unsubscribe := cf.feed.Subscribe()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			unsubscribe()
			if r.feeds[quizID] == cf && cf.feed.IsIdle() {
				delete(r.feeds, quizID)
				_ = cf.pubsub.Close()
			}
		})
	}
	return ch, cancel, nil
}

// listen subscribes to the quiz channel and waits for Redis to confirm, so
// nothing published after Subscribe returns can be missed.
func (r *FeedRegistry) listen(ctx context.Context, quizID string) (*channelFeed, error) {
	channel := feedChannel(quizID)
	pubsub := r.client.Subscribe(context.Background(), channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	cf := &channelFeed{feed: app.NewFeed(), pubsub: pubsub}
	msgs := pubsub.Channel()
	go func() {
		// ends when the subscription is closed
		for msg := range msgs {
			var summary domain.AttemptSummary
			if err := json.Unmarshal([]byte(msg.Payload), &summary); err != nil {
				r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed attempt summary")
				continue
			}
			cf.feed.Publish(summary)
		}
	}()
	return cf, nil
}

func (r *FeedRegistry) Publish(ctx context.Context, summary domain.AttemptSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode attempt summary: %w", err)
	}
	channel := feedChannel(summary.QuizID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Watched reports whether this instance holds a subscription for quizID.
func (r *FeedRegistry) Watched(quizID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.feeds[quizID]
	return ok
}

func feedChannel(quizID string) string {
	return feedChannelPrefix + quizID
}
