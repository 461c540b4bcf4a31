package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/domain"
)

// DocumentStore abstracts where the whole document lives (file, memory, Redis, etc).
// Load returns a private copy plus its revision; Save must fail with
// domain.ErrRevisionConflict when the stored revision no longer equals expected.
type DocumentStore interface {
	Load(ctx context.Context) (domain.Document, uint64, error)
	Save(ctx context.Context, doc domain.Document, expected uint64) (uint64, error)
}

// Conflicts only come from other processes, and each one means another writer
// committed. Retries back off with jitter so competing instances spread out.
const (
	maxUpdateRetries       = 5
	updateRetryInterval    = 10 * time.Millisecond
	updateRetryMaxInterval = 250 * time.Millisecond
	updateRetryMaxElapsed  = 3 * time.Second
)

// Documents serializes writers in-process and retries a load-mutate-save cycle
// when another process won the race.
type Documents struct {
	store DocumentStore
	log   zerolog.Logger
	mu    sync.Mutex
}

func NewDocuments(store DocumentStore, log zerolog.Logger) *Documents {
	return &Documents{store: store, log: log}
}

// Read returns a snapshot of the current document.
func (d *Documents) Read(ctx context.Context) (domain.Document, error) {
	doc, _, err := d.store.Load(ctx)
	if err != nil {
		return domain.Document{}, domain.Internal(fmt.Errorf("load document: %w", err))
	}
	return doc, nil
}

// Update applies fn to a fresh copy and commits it. An error from fn aborts
// without saving and is returned unchanged. fn may run more than once.
func (d *Documents) Update(ctx context.Context, fn func(doc *domain.Document) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	attempts := 0
	commit := func() error {
		attempts++
		doc, rev, err := d.store.Load(ctx)
		if err != nil {
			return backoff.Permanent(domain.Internal(fmt.Errorf("load document: %w", err)))
		}
		if err := fn(&doc); err != nil {
			return backoff.Permanent(err)
		}
		_, err = d.store.Save(ctx, doc, rev)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrRevisionConflict):
			return err
		default:
			return backoff.Permanent(domain.Internal(fmt.Errorf("save document: %w", err)))
		}
	}
	onConflict := func(_ error, wait time.Duration) {
		d.log.Warn().Int("attempt", attempts).Dur("backoff", wait).Msg("document changed concurrently, retrying update")
	}

	err := backoff.RetryNotify(commit, backoff.WithContext(backoff.WithMaxRetries(retryPolicy(), maxUpdateRetries), ctx), onConflict)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRevisionConflict):
		return domain.Internal(fmt.Errorf("save document after %d attempts: %w", attempts, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Internal(fmt.Errorf("update document: %w", err))
	}
	return err
}

func retryPolicy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = updateRetryInterval
	b.MaxInterval = updateRetryMaxInterval
	b.MaxElapsedTime = updateRetryMaxElapsed
	b.Reset()
	return b
}
