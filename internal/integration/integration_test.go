package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/document"
	"quiz-delivery-service/internal/domain"
	"quiz-delivery-service/internal/infra/memory"
	pgstore "quiz-delivery-service/internal/infra/postgres"
	pgmigrations "quiz-delivery-service/internal/infra/postgres/migrations"
	infraredis "quiz-delivery-service/internal/infra/redis"
)

func TestSubmitQuizEndToEndPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewDocumentStore(pool, "")
	if _, err := store.Save(ctx, sampleDocument(), document.NoRevision); err != nil {
		t.Fatalf("seed: %v", err)
	}

	service := app.NewQuizService(store, memory.NewFeedRegistry())
	payload, err := service.AccessQuiz(ctx, "abc123")
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if payload.ID != "quiz-1" || len(payload.Questions) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	res, err := service.SubmitQuiz(ctx, app.Submission{
		QuizID:   "quiz-1",
		Students: []domain.Student{{Name: "Alice"}},
		Answers:  map[string]any{"q1": []any{"o2"}, "q2": "PARIS "},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Score.Equal(decimal.NewFromInt(100)) || !res.Passed {
		t.Fatalf("expected full marks, got %+v", res)
	}

	doc, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(doc.Attempts) != 1 || doc.Attempts[0].AttemptID != res.AttemptID {
		t.Fatalf("attempt not persisted: %+v", doc.Attempts)
	}
	if !doc.Attempts[0].MaxPossibleScore.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("decimal precision lost: %s", doc.Attempts[0].MaxPossibleScore)
	}
}

func TestConcurrentSubmissionsAcrossInstancesRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	seed := infraredis.NewDocumentStore(client, "")
	if _, err := seed.Save(ctx, sampleDocument(), document.NoRevision); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// two services share the key but not a process, so only WATCH protects the document
	services := []*app.QuizService{
		app.NewQuizService(infraredis.NewDocumentStore(client, ""), infraredis.NewFeedRegistry(client, zerolog.Nop())),
		app.NewQuizService(infraredis.NewDocumentStore(client, ""), infraredis.NewFeedRegistry(client, zerolog.Nop())),
	}

	// watch from the first instance only; attempts recorded on the second must still arrive
	updates, cancel, err := services[0].Subscribe(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	const perService = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i, svc := range services {
		for n := 0; n < perService; n++ {
			wg.Add(1)
			go func(svc *app.QuizService, name string) {
				defer wg.Done()
				_, err := svc.SubmitQuiz(ctx, app.Submission{
					QuizID:   "quiz-1",
					Students: []domain.Student{{Name: name}},
					Answers:  map[string]any{"q1": []any{"o2"}},
				})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}(svc, fmt.Sprintf("student-%d-%d", i, n))
		}
	}
	wg.Wait()

	doc, _, err := seed.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	// each instance serializes its own writers, so every conflict one of them
	// sees is a commit by the other; perService losses at most, all accepted
	if accepted != len(services)*perService {
		t.Fatalf("expected every submission accepted, got %d", accepted)
	}
	if len(doc.Attempts) != accepted {
		t.Fatalf("expected %d persisted attempts, got %d", accepted, len(doc.Attempts))
	}

	seen := make(map[string]bool)
	timeout := time.After(5 * time.Second)
	for len(seen) < accepted {
		select {
		case summary := <-updates:
			seen[summary.AttemptID] = true
		case <-timeout:
			t.Fatalf("feed delivered %d of %d attempts", len(seen), accepted)
		}
	}
}

func sampleDocument() domain.Document {
	doc := domain.EmptyDocument()
	doc.Quizzes = []domain.Quiz{{
		ID:        "quiz-1",
		Title:     "Capitals",
		Questions: []string{"q1", "q2"},
		Config:    domain.QuizConfig{PassScore: decimal.NewFromInt(60), PresentationMode: domain.PresentAll},
		AccessKey: "ABC123",
	}}
	doc.Questions = []domain.Question{
		{
			ID:            "q1",
			Text:          "Which of these is a capital?",
			Type:          domain.QuestionMCQ,
			Score:         decimal.RequireFromString("1.5"),
			Options:       []domain.Option{{ID: "o1", Text: "Lyon"}, {ID: "o2", Text: "Paris"}},
			CorrectAnswer: []string{"o2"},
		},
		{
			ID:                     "q2",
			Text:                   "Capital of France?",
			Type:                   domain.QuestionShortText,
			Score:                  decimal.NewFromInt(1),
			ShortAnswerReviewMode:  domain.ReviewAuto,
			ShortAnswerCorrectText: "Paris",
		},
	}
	return doc
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
