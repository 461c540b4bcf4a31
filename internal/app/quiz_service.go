package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"quiz-delivery-service/internal/assembly"
	"quiz-delivery-service/internal/domain"
	"quiz-delivery-service/internal/grading"
)

const maxKeyGenerationTries = 32

// Submission is a student's answer set for one quiz.
type Submission struct {
	QuizID   string
	Students []domain.Student
	// Answers must be a map keyed by question id; anything else is rejected.
	Answers               any
	StartTime             *time.Time
	EndTime               *time.Time
	SubmittedDueToTimeout bool
}

// SubmitResult is the outcome reported back to the student.
type SubmitResult struct {
	AttemptID     string          `json:"attempt_id"`
	Score         decimal.Decimal `json:"score"`
	Passed        bool            `json:"passed"`
	MaxScore      decimal.Decimal `json:"max_score"`
	AchievedScore decimal.Decimal `json:"achieved_score"`
}

// Overview summarizes the document for dashboards.
type Overview struct {
	ActiveQuizzes   int      `json:"active_quizzes"`
	ArchivedQuizzes int      `json:"archived_quizzes"`
	TotalQuestions  int      `json:"total_questions"`
	TotalAttempts   int      `json:"total_attempts"`
	Categories      []string `json:"categories"`
}

// QuizService contains the quiz delivery and grading use cases.
type QuizService struct {
	docs      *Documents
	recorder  *AttemptRecorder
	assembler *assembly.Assembler
	grader    *grading.Engine
	feeds     FeedRegistry
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
	newKey    func() (string, error)
}

type Option func(*QuizService)

func WithLogger(l zerolog.Logger) Option { return func(s *QuizService) { s.log = l } }

func WithAssembler(a *assembly.Assembler) Option { return func(s *QuizService) { s.assembler = a } }

func WithGrader(g *grading.Engine) Option { return func(s *QuizService) { s.grader = g } }

// WithClock is meant for tests that need deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(s *QuizService) { s.now = now } }

func WithIDGenerator(newID func() string) Option { return func(s *QuizService) { s.newID = newID } }

func WithKeyGenerator(newKey func() (string, error)) Option {
	return func(s *QuizService) { s.newKey = newKey }
}

func NewQuizService(store DocumentStore, feeds FeedRegistry, opts ...Option) *QuizService {
	s := &QuizService{
		feeds:     feeds,
		log:       zerolog.Nop(),
		assembler: assembly.New(),
		newKey:    generateAccessKey,
	}
	for _, o := range opts {
		o(s)
	}
	if s.grader == nil {
		s.grader = grading.NewEngine(grading.WithLogger(s.log))
	}
	s.docs = NewDocuments(store, s.log)
	s.recorder = NewAttemptRecorder(s.docs, s.now, s.newID)
	return s
}

// AccessQuiz resolves an access key to a presentation payload.
func (s *QuizService) AccessQuiz(ctx context.Context, key string) (assembly.Payload, error) {
	if strings.TrimSpace(key) == "" {
		return assembly.Payload{}, domain.ErrMissingAccessKey
	}
	doc, err := s.docs.Read(ctx)
	if err != nil {
		return assembly.Payload{}, err
	}
	quiz, err := ResolveByKey(doc, key)
	if err != nil {
		return assembly.Payload{}, err
	}

	questions := NewQuestionRepository(doc).ForQuiz(quiz)
	if dangling := len(quiz.Questions) - len(questions); dangling > 0 {
		s.log.Warn().Str("quiz_id", quiz.ID).Int("dangling", dangling).Msg("skipping unknown question ids")
	}
	payload, err := s.assembler.Assemble(quiz, questions)
	if err != nil {
		return assembly.Payload{}, err
	}
	s.log.Info().Str("quiz_id", quiz.ID).Int("questions", len(payload.Questions)).Msg("quiz accessed")
	return payload, nil
}

// SubmitQuiz grades a submission and records it as a new attempt. The result
// is only returned once the attempt has been committed.
func (s *QuizService) SubmitQuiz(ctx context.Context, sub Submission) (SubmitResult, error) {
	attempt, err := s.recorder.Record(ctx, func(doc *domain.Document) (domain.Attempt, error) {
		quiz, err := activeQuiz(doc, sub.QuizID)
		if err != nil {
			return domain.Attempt{}, err
		}
		students, err := normalizeStudents(sub.Students)
		if err != nil {
			return domain.Attempt{}, err
		}
		answers, ok := sub.Answers.(map[string]any)
		if !ok {
			return domain.Attempt{}, domain.ErrInvalidAnswers
		}

		questions := NewQuestionRepository(*doc).ForQuiz(*quiz)
		res := s.grader.Grade(quiz.Config, questions, answers)
		return domain.Attempt{
			QuizID:                quiz.ID,
			QuizTitle:             quiz.Title,
			Students:              students,
			Answers:               answers,
			ScoreAchieved:         res.ScoreAchieved,
			MaxPossibleScore:      res.MaxPossibleScore,
			Percentage:            res.Percentage,
			Passed:                res.Passed,
			PassScoreThreshold:    res.Threshold,
			StartTime:             sub.StartTime,
			EndTime:               sub.EndTime,
			SubmittedDueToTimeout: sub.SubmittedDueToTimeout,
			GradedDetails:         res.Details,
		}, nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			s.log.Error().Err(err).Str("quiz_id", sub.QuizID).Msg("failed to record attempt")
		}
		return SubmitResult{}, err
	}

	s.log.Info().
		Str("quiz_id", attempt.QuizID).
		Str("attempt_id", attempt.AttemptID).
		Str("percentage", attempt.Percentage.String()).
		Bool("passed", attempt.Passed).
		Msg("attempt recorded")

	// the attempt is committed; a feed failure only costs live viewers an update
	if err := s.feeds.Publish(context.WithoutCancel(ctx), attempt.Summary()); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", attempt.QuizID).Msg("failed to publish attempt summary")
	}

	return SubmitResult{
		AttemptID:     attempt.AttemptID,
		Score:         attempt.Percentage,
		Passed:        attempt.Passed,
		MaxScore:      attempt.MaxPossibleScore,
		AchievedScore: attempt.ScoreAchieved,
	}, nil
}

// ListAttempts returns summaries of a quiz's attempts, newest first.
func (s *QuizService) ListAttempts(ctx context.Context, quizID string) ([]domain.AttemptSummary, error) {
	doc, err := s.docs.Read(ctx)
	if err != nil {
		return nil, err
	}
	if doc.QuizByID(quizID) < 0 {
		return nil, domain.ErrQuizNotFound
	}

	out := make([]domain.AttemptSummary, 0)
	for _, a := range doc.Attempts {
		if a.QuizID == quizID {
			out = append(out, a.Summary())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// RegenerateAccessKey assigns a fresh key that no other active quiz uses.
func (s *QuizService) RegenerateAccessKey(ctx context.Context, quizID string) (string, error) {
	var key string
	err := s.docs.Update(ctx, func(doc *domain.Document) error {
		quiz, err := activeQuiz(doc, quizID)
		if err != nil {
			return err
		}
		for try := 0; try < maxKeyGenerationTries; try++ {
			candidate, err := s.newKey()
			if err != nil {
				return domain.Internal(fmt.Errorf("generate access key: %w", err))
			}
			if !keyInUse(doc, candidate, quizID) {
				quiz.AccessKey = candidate
				key = candidate
				return nil
			}
		}
		return domain.Internal(fmt.Errorf("no unique access key after %d tries", maxKeyGenerationTries))
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("quiz_id", quizID).Msg("access key regenerated")
	return key, nil
}

// Overview counts quizzes, questions and attempts and lists categories.
func (s *QuizService) Overview(ctx context.Context) (Overview, error) {
	doc, err := s.docs.Read(ctx)
	if err != nil {
		return Overview{}, err
	}
	ov := Overview{TotalQuestions: len(doc.Questions), TotalAttempts: len(doc.Attempts)}
	for _, q := range doc.Quizzes {
		if q.Archived {
			ov.ArchivedQuizzes++
		} else {
			ov.ActiveQuizzes++
		}
	}
	seen := make(map[string]struct{})
	for _, q := range doc.Questions {
		category := strings.TrimSpace(q.Category)
		if category == "" {
			category = "Uncategorized"
		}
		seen[category] = struct{}{}
	}
	ov.Categories = make([]string, 0, len(seen))
	for c := range seen {
		ov.Categories = append(ov.Categories, c)
	}
	sort.Strings(ov.Categories)
	return ov, nil
}

// Subscribe returns a channel of summaries for attempts recorded after the
// call. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quizID string) (<-chan domain.AttemptSummary, func(), error) {
	doc, err := s.docs.Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	if doc.QuizByID(quizID) < 0 {
		return nil, nil, domain.ErrQuizNotFound
	}
	ch, cancel, err := s.feeds.Subscribe(ctx, quizID)
	if err != nil {
		return nil, nil, domain.Internal(fmt.Errorf("subscribe to attempt feed: %w", err))
	}
	return ch, cancel, nil
}

// SyncQuestionRefs rebuilds question back-references and saves the result.
func (s *QuizService) SyncQuestionRefs(ctx context.Context) (int, error) {
	var changed int
	err := s.docs.Update(ctx, func(doc *domain.Document) error {
		changed = domain.SyncQuestionRefs(doc)
		return nil
	})
	return changed, err
}

func normalizeStudents(in []domain.Student) ([]domain.Student, error) {
	if len(in) == 0 {
		return nil, domain.ErrInvalidStudents
	}
	out := make([]domain.Student, 0, len(in))
	for _, st := range in {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			return nil, domain.ErrInvalidStudents
		}
		st.Class = strings.TrimSpace(st.Class)
		st.ID = strings.TrimSpace(st.ID)
		out = append(out, st)
	}
	return out, nil
}

func keyInUse(doc *domain.Document, key, exceptQuizID string) bool {
	for _, q := range doc.Quizzes {
		if q.ID != exceptQuizID && !q.Archived && strings.EqualFold(q.AccessKey, key) {
			return true
		}
	}
	return false
}

// generateAccessKey returns six uppercase hex characters.
func generateAccessKey() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
