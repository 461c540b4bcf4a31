package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

const cacheKey = "document"

// CachedStore caches the encoded document with a TTL to avoid repeated
// backend reads. Concurrent misses share a single backend load.
type CachedStore struct {
	backend app.DocumentStore
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.Mutex
	entry *cachedDocument
}

type cachedDocument struct {
	data      []byte
	rev       uint64
	expiresAt time.Time
}

func NewCachedStore(backend app.DocumentStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedStore) Load(ctx context.Context) (domain.Document, uint64, error) {
	if entry := c.fresh(c.clock()); entry != nil {
		return decodeEntry(entry)
	}

	result, err, _ := c.sf.Do(cacheKey, func() (interface{}, error) {
		if entry := c.fresh(c.clock()); entry != nil {
			return entry, nil
		}
		doc, rev, err := c.backend.Load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := document.Encode(doc)
		if err != nil {
			return nil, err
		}
		entry := c.store(data, rev)
		return entry, nil
	})
	if err != nil {
		return domain.Document{}, document.NoRevision, err
	}
	return decodeEntry(result.(*cachedDocument))
}

// Save writes through. Any failure drops the cache so the next Load sees
// what the backend holds.
func (c *CachedStore) Save(ctx context.Context, doc domain.Document, expected uint64) (uint64, error) {
	rev, err := c.backend.Save(ctx, doc, expected)
	if err != nil {
		c.Invalidate()
		return rev, err
	}
	data, err := document.Encode(doc)
	if err != nil {
		c.Invalidate()
		return rev, nil
	}
	c.store(data, rev)
	return rev, nil
}

func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func (c *CachedStore) fresh(now time.Time) *cachedDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry != nil && c.entry.expiresAt.After(now) {
		return c.entry
	}
	return nil
}

func (c *CachedStore) store(data []byte, rev uint64) *cachedDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &cachedDocument{data: data, rev: rev, expiresAt: c.clock().Add(c.ttlWithJitter())}
	return c.entry
}

func decodeEntry(entry *cachedDocument) (domain.Document, uint64, error) {
	doc, err := document.Decode(entry.data)
	if err != nil {
		return domain.Document{}, document.NoRevision, err
	}
	return doc, entry.rev, nil
}

// ttlWithJitter must be called with c.mu held.
func (c *CachedStore) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
