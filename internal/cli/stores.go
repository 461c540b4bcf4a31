package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/app"
	"quiz-delivery-service/internal/config"
	"quiz-delivery-service/internal/infra/file"
	"quiz-delivery-service/internal/infra/memory"
	pgstore "quiz-delivery-service/internal/infra/postgres"
	redisstore "quiz-delivery-service/internal/infra/redis"
	"quiz-delivery-service/internal/infra/sqlite"
)

// backend is the storage selected by config plus whatever must be closed on exit.
type backend struct {
	store  app.DocumentStore
	feeds  app.FeedRegistry
	closer []func()
}

func (b *backend) Close() {
	for i := len(b.closer) - 1; i >= 0; i-- {
		b.closer[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backend, error) {
	b := &backend{feeds: memory.NewFeedRegistry()}

	var client *redis.Client
	if cfg.Redis.Addr != "" || cfg.Store.Driver == config.DriverRedis {
		c, err := openRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client = c
		b.closer = append(b.closer, func() { _ = client.Close() })
		// attempt feeds go through Redis whenever it is configured, whatever stores the document
		b.feeds = redisstore.NewFeedRegistry(client, log)
	}

	switch cfg.Store.Driver {
	case config.DriverFile, "":
		b.store = file.NewDocumentStore(cfg.Store.Path)
	case config.DriverMemory:
		b.store = memory.NewDocumentStore()
	case config.DriverRedis:
		b.store = redisstore.NewDocumentStore(client, cfg.Redis.Key)
	case config.DriverPostgres:
		if err := runMigrations(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closer = append(b.closer, pool.Close)
		b.store = pgstore.NewDocumentStore(pool, "")
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closer = append(b.closer, func() { _ = db.Close() })
		b.store = sqlite.NewDocumentStore(db, "")
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if ttl := config.TTLDuration(cfg.Store.CacheTTL, 0); ttl > 0 {
		b.store = memory.NewCachedStore(b.store, ttl)
	}

	log.Info().
		Str("driver", cfg.Store.Driver).
		Bool("redis_feeds", client != nil).
		Str("cache_ttl", cfg.Store.CacheTTL).
		Msg("storage ready")
	return b, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
