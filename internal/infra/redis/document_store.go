package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

const DefaultDocumentKey = "quiz:document"

// DocumentStore keeps the encoded document under a single key.
// Saves run inside WATCH/MULTI so a concurrent writer on any instance
// surfaces as domain.ErrRevisionConflict.
type DocumentStore struct {
	client *redis.Client
	key    string
}

func NewDocumentStore(client *redis.Client, key string) *DocumentStore {
	if key == "" {
		key = DefaultDocumentKey
	}
	return &DocumentStore{client: client, key: key}
}

func (s *DocumentStore) Load(ctx context.Context) (domain.Document, uint64, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EmptyDocument(), document.NoRevision, nil
	}
	if err != nil {
		return domain.Document{}, document.NoRevision, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return domain.Document{}, document.NoRevision, err
	}
	return doc, document.Revision(data), nil
}

func (s *DocumentStore) Save(ctx context.Context, doc domain.Document, expected uint64) (uint64, error) {
	data, rev, err := document.EncodeWithRevision(doc)
	if err != nil {
		return document.NoRevision, err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current := document.NoRevision
		stored, err := tx.Get(ctx, s.key).Bytes()
		switch {
		case err == nil:
			current = document.Revision(stored)
		case !errors.Is(err, redis.Nil):
			return err
		}
		if current != expected {
			return domain.ErrRevisionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}, s.key)

	switch {
	case err == nil:
		return rev, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, domain.ErrRevisionConflict):
		return document.NoRevision, domain.ErrRevisionConflict
	default:
		return document.NoRevision, fmt.Errorf("redis save %s: %w", s.key, err)
	}
}
