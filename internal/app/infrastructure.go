package app

import (
	"context"
	"time"

	"github.com/turtacn/QuestionBank/internal/application/events"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/redis"
	"github.com/turtacn/QuestionBank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/internal/infrastructure/storage/minio"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/handlers"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Infrastructure owns the external connections. PostgreSQL is required;
// Redis, MinIO and Kafka are opened only when enabled in the configuration.
type Infrastructure struct {
	Postgres *postgres.Connection
	Redis    *redis.Client
	MinIO    *minio.Client
	Producer *kafka.Producer
	Metrics  *prometheus.QBankMetrics

	repo   repositories.QuestionRepository
	logger logging.Logger
}

// Open connects to every configured backend. On failure the connections
// already made are closed.
func Open(ctx context.Context, cfg *config.Config, metrics *prometheus.QBankMetrics, logger logging.Logger) (*Infrastructure, error) {
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	infra := &Infrastructure{Metrics: metrics, logger: logger}

	pg, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "postgres")
	}
	infra.Postgres = pg
	infra.repo = repositories.NewPostgresQuestionRepo(pg, logger)

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Redis = rc
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.MinIO = mc
	}

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Producer = p
	}

	logger.Info("infrastructure initialized",
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("minio", infra.MinIO != nil),
		logging.Bool("kafka", infra.Producer != nil))
	return infra, nil
}

// Repository is the PostgreSQL question store.
func (i *Infrastructure) Repository() repositories.QuestionRepository { return i.repo }

// GroupCache wraps the store with the Redis group cache, or returns nil
// when Redis is disabled.
func (i *Infrastructure) GroupCache() *redis.GroupCache {
	if i.Redis == nil {
		return nil
	}
	return redis.NewGroupCache(i.Redis, i.repo, i.logger, redis.WithObserver(i.Metrics))
}

// Locks returns the paper lock factory, or nil when Redis is disabled.
func (i *Infrastructure) Locks() *redis.LockFactory {
	if i.Redis == nil {
		return nil
	}
	return redis.NewLockFactory(i.Redis, i.logger)
}

// Sources returns the source PDF store, or nil when MinIO is disabled.
func (i *Infrastructure) Sources() *minio.SourceStore {
	if i.MinIO == nil {
		return nil
	}
	return minio.NewSourceStore(i.MinIO, i.logger)
}

// Events returns the event publisher. Without Kafka, or with publishing
// switched off, events are dropped.
func (i *Infrastructure) Events(publish bool) events.Publisher {
	if i.Producer == nil || !publish {
		return events.Nop()
	}
	return events.Instrumented(kafka.NewEventPublisher(i.Producer, i.logger), i.Metrics)
}

// HealthCheckers lists one readiness check per open backend.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	out := []handlers.HealthChecker{checker{"postgres", i.Postgres.HealthCheck}}
	if i.Redis != nil {
		out = append(out, checker{"redis", i.Redis.Ping})
	}
	if i.MinIO != nil {
		out = append(out, checker{"minio", i.MinIO.HealthCheck})
	}
	return out
}

// ObservePool samples the PostgreSQL pool into the metrics every interval
// until ctx is done.
func (i *Infrastructure) ObservePool(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		i.Metrics.ObservePool(i.Postgres.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases every open connection in reverse order.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		if err := i.MinIO.Close(); err != nil {
			i.logger.Warn("minio close failed", logging.Err(err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			i.logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}

type checker struct {
	name  string
	check func(context.Context) error
}

func (c checker) Name() string                    { return c.name }
func (c checker) Check(ctx context.Context) error { return c.check(ctx) }

//Personal.AI order the ending
