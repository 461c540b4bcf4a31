package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
)

func TestMissingFileLoadsEmptyDocument(t *testing.T) {
	store := NewDocumentStore(filepath.Join(t.TempDir(), "nested", "quiz_data.json"))
	doc, rev, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rev != document.NoRevision || doc.Attempts == nil {
		t.Fatalf("expected empty document, got rev %d %+v", rev, doc)
	}
}

func TestSaveCreatesDirectoriesAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "quiz_data.json")
	store := NewDocumentStore(path)

	doc := domain.EmptyDocument()
	doc.Quizzes = append(doc.Quizzes, domain.Quiz{ID: "quiz-1", Title: "Saved"})
	rev, err := store.Save(ctx, doc, document.NoRevision)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, loadedRev, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loadedRev != rev || loaded.Quizzes[0].Title != "Saved" {
		t.Fatalf("unexpected document rev %d/%d %+v", loadedRev, rev, loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestSaveRejectsStaleRevision(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(filepath.Join(t.TempDir(), "quiz_data.json"))
	rev, err := store.Save(ctx, domain.EmptyDocument(), document.NoRevision)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	changed := domain.EmptyDocument()
	changed.Quizzes = append(changed.Quizzes, domain.Quiz{ID: "quiz-1"})
	if _, err := store.Save(ctx, changed, rev); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save(ctx, domain.EmptyDocument(), rev); !errors.Is(err, domain.ErrRevisionConflict) {
		t.Fatalf("expected revision conflict, got %v", err)
	}
}

func TestHandEditedFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz_data.json")
	raw := `{"quizzes":[{"id":"z","question_ids":["q"]}],"questions":[{"id":"q","type":"MCQ","correct_answer":"a"}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, rev, err := NewDocumentStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rev == document.NoRevision || doc.Attempts == nil {
		t.Fatalf("expected a revision and empty attempts")
	}
	if doc.Quizzes[0].Questions[0] != "q" || doc.Questions[0].CorrectAnswer[0] != "a" || doc.Questions[0].Score.String() != "1" {
		t.Fatalf("defaults not applied: %+v", doc)
	}
}

func TestCorruptFileFailsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz_data.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewDocumentStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected corrupt file to fail")
	}
}
