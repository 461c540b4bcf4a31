package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestQuestionDefaults(t *testing.T) {
	var q Question
	raw := `{"id":"q1","text":"Capital?","type":"short_text"}`
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.Type != QuestionShortText {
		t.Fatalf("expected SHORT_TEXT, got %q", q.Type)
	}
	if q.Score.String() != "1" {
		t.Fatalf("expected default score 1, got %s", q.Score)
	}
	if q.ShortAnswerReviewMode != ReviewManual {
		t.Fatalf("expected manual review by default, got %q", q.ShortAnswerReviewMode)
	}
	if q.CorrectAnswer == nil || q.QuizIDs == nil || q.Options == nil {
		t.Fatalf("expected empty slices, got %+v", q)
	}
}

func TestQuestionCorrectAnswerShapes(t *testing.T) {
	cases := map[string][]string{
		`"o1"`:       {"o1"},
		`["a","b"]`:  {"a", "b"},
		`null`:       {},
		`""`:         {},
		`[1, "two"]`: {"1", "two"},
	}
	for input, want := range cases {
		var q Question
		raw := fmt.Sprintf(`{"id":"q","type":"MCQ","score":2.5,"correct_answer":%s}`, input)
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			t.Fatalf("%s: unmarshal: %v", input, err)
		}
		if len(q.CorrectAnswer) != len(want) {
			t.Fatalf("%s: expected %v, got %v", input, want, q.CorrectAnswer)
		}
		for i := range want {
			if q.CorrectAnswer[i] != want[i] {
				t.Fatalf("%s: expected %v, got %v", input, want, q.CorrectAnswer)
			}
		}
		if q.Score.String() != "2.5" {
			t.Fatalf("expected score 2.5, got %s", q.Score)
		}
	}
}

func TestQuizDefaultsAndLegacyIDs(t *testing.T) {
	var q Quiz
	raw := `{"id":"z1","title":"T","question_ids":["q1","q2"],"config":{"pass_score":70,"duration":0}}`
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(q.Questions) != 2 || q.Questions[0] != "q1" {
		t.Fatalf("expected legacy ids to be used, got %v", q.Questions)
	}
	if q.Config.PresentationMode != PresentAll {
		t.Fatalf("expected presentation mode all, got %q", q.Config.PresentationMode)
	}
	if q.Config.Duration != nil {
		t.Fatalf("expected zero duration to be dropped, got %d", *q.Config.Duration)
	}
	if q.Config.PassScore.String() != "70" {
		t.Fatalf("expected pass score 70, got %s", q.Config.PassScore)
	}
	if q.Archived {
		t.Fatalf("archived should default to false")
	}
}

func TestQuizWithoutConfig(t *testing.T) {
	var q Quiz
	if err := json.Unmarshal([]byte(`{"id":"z"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.Questions == nil || q.Config.PresentationMode != PresentAll {
		t.Fatalf("expected defaults, got %+v", q)
	}
}

func TestDocumentCollectionsAlwaysPresent(t *testing.T) {
	var d Document
	if err := json.Unmarshal([]byte(`{"quizzes":[{"id":"z"}]}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Questions == nil || d.Attempts == nil || len(d.Quizzes) != 1 {
		t.Fatalf("expected all collections, got %+v", d)
	}
	out, err := json.Marshal(EmptyDocument())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"quizzes":[],"questions":[],"attempts":[]}` {
		t.Fatalf("unexpected empty document encoding %s", out)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("access: %w", ErrQuizInactive)
	if KindOf(wrapped) != KindForbidden {
		t.Fatalf("expected forbidden, got %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrQuizInactive) {
		t.Fatalf("expected errors.Is to match sentinel")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors should be internal")
	}
	internal := Internal(errors.New("disk on fire"))
	if MessageOf(internal) != "internal server error" {
		t.Fatalf("internal cause leaked: %q", MessageOf(internal))
	}
	if MessageOf(ErrEmptyQuiz) != "quiz has no questions" {
		t.Fatalf("unexpected message %q", MessageOf(ErrEmptyQuiz))
	}
}

func TestSyncQuestionRefs(t *testing.T) {
	doc := Document{
		Quizzes: []Quiz{
			{ID: "z1", Questions: []string{"q1", "q2", "ghost"}},
			{ID: "z2", Questions: []string{"q2"}},
		},
		Questions: []Question{
			{ID: "q1", QuizIDs: []string{"z1"}},
			{ID: "q2", QuizIDs: []string{"z9"}},
			{ID: "q3", QuizIDs: []string{"z1"}},
		},
	}
	changed := SyncQuestionRefs(&doc)
	if changed != 2 {
		t.Fatalf("expected 2 questions changed, got %d", changed)
	}
	if got := doc.Questions[1].QuizIDs; len(got) != 2 || got[0] != "z1" || got[1] != "z2" {
		t.Fatalf("unexpected refs for q2: %v", got)
	}
	if got := doc.Questions[2].QuizIDs; len(got) != 0 {
		t.Fatalf("expected q3 to be orphaned, got %v", got)
	}
	if SyncQuestionRefs(&doc) != 0 {
		t.Fatalf("second sync should be a no-op")
	}
}
