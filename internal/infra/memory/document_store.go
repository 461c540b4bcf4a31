package memory

import (
	"context"
	"sync"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

// DocumentStore keeps the encoded document in process memory. Useful for
// tests and demos; nothing survives a restart.
type DocumentStore struct {
	mu   sync.RWMutex
	data []byte
	rev  uint64
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// NewSeededDocumentStore starts from doc instead of an empty document.
func NewSeededDocumentStore(doc domain.Document) (*DocumentStore, error) {
	s := NewDocumentStore()
	if _, err := s.Save(context.Background(), doc, document.NoRevision); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStore) Load(_ context.Context) (domain.Document, uint64, error) {
	s.mu.RLock()
	data, rev := s.data, s.rev
	s.mu.RUnlock()

	doc, err := document.Decode(data)
	if err != nil {
		return domain.Document{}, document.NoRevision, err
	}
	return doc, rev, nil
}

func (s *DocumentStore) Save(_ context.Context, doc domain.Document, expected uint64) (uint64, error) {
	data, rev, err := document.EncodeWithRevision(doc)
	if err != nil {
		return document.NoRevision, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rev != expected {
		return s.rev, domain.ErrRevisionConflict
	}
	s.data, s.rev = data, rev
	return rev, nil
}
