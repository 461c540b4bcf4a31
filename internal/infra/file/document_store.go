// Package file stores the document as a single JSON file on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

const DefaultPath = "data/quiz_data.json"

// DocumentStore reads and rewrites one JSON file. Writes go to a temp file
// in the same directory and are renamed over the target, so readers never
// observe a partial document.
type DocumentStore struct {
	path string
	mu   sync.Mutex
}

func NewDocumentStore(path string) *DocumentStore {
	if path == "" {
		path = DefaultPath
	}
	return &DocumentStore{path: path}
}

func (s *DocumentStore) Path() string { return s.path }

func (s *DocumentStore) Load(_ context.Context) (domain.Document, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *DocumentStore) loadLocked() (domain.Document, uint64, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EmptyDocument(), document.NoRevision, nil
	}
	if err != nil {
		return domain.Document{}, document.NoRevision, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return domain.Document{}, document.NoRevision, fmt.Errorf("%s: %w", s.path, err)
	}
	return doc, document.Revision(data), nil
}

func (s *DocumentStore) Save(_ context.Context, doc domain.Document, expected uint64) (uint64, error) {
	data, rev, err := document.EncodeWithRevision(doc)
	if err != nil {
		return document.NoRevision, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := document.NoRevision
	stored, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		current = document.Revision(stored)
	case !errors.Is(err, fs.ErrNotExist):
		return document.NoRevision, fmt.Errorf("read %s: %w", s.path, err)
	}
	if current != expected {
		return current, domain.ErrRevisionConflict
	}

	if err := writeAtomic(s.path, data); err != nil {
		return document.NoRevision, err
	}
	return rev, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".quiz-data-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
