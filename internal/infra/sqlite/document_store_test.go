package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

func openTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "quiz.db") + "?_pragma=busy_timeout(5000)"
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDocumentStore(db, "")
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	doc, rev, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if rev != document.NoRevision || doc.Questions == nil {
		t.Fatalf("expected empty document, got rev %d", rev)
	}

	doc.Quizzes = append(doc.Quizzes, domain.Quiz{ID: "quiz-1", Title: "Stored"})
	newRev, err := store.Save(ctx, doc, rev)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, loadedRev, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loadedRev != newRev || loaded.Quizzes[0].Title != "Stored" {
		t.Fatalf("unexpected document rev %d/%d %+v", loadedRev, newRev, loaded)
	}
}

func TestDocumentStoreConflicts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	rev, err := store.Save(ctx, domain.EmptyDocument(), document.NoRevision)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Save(ctx, domain.EmptyDocument(), document.NoRevision); !errors.Is(err, domain.ErrRevisionConflict) {
		t.Fatalf("expected conflict on second insert, got %v", err)
	}

	changed := domain.EmptyDocument()
	changed.Quizzes = append(changed.Quizzes, domain.Quiz{ID: "quiz-1"})
	if _, err := store.Save(ctx, changed, rev); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.Save(ctx, domain.EmptyDocument(), rev); !errors.Is(err, domain.ErrRevisionConflict) {
		t.Fatalf("expected conflict on stale update, got %v", err)
	}
}
