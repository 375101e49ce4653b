package config

import (
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "qbank"
	DefaultDBMaxConns = 10

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker        = "localhost:9092"
	DefaultKafkaGroupID       = "qbank-worker"
	DefaultKafkaProposalTopic = "qbank.classification.proposed"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "qbank-sources"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"

	DefaultTaxonomyPath = "configs/taxonomy.yaml"

	DefaultPipelineConcurrency = 4

	DefaultWorkerConcurrency = 4
	DefaultWorkerBatchSize   = 32

	KeyNumberingCanonical = "canonical"
	KeyNumberingPrinted   = "printed"
)

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// already set are kept.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 20 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 32 << 20
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(math.Ceil(cfg.Server.RateLimit * 2))
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "qbank:"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = "qbank"
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.Kafka.ProposalTopic == "" {
		cfg.Kafka.ProposalTopic = DefaultKafkaProposalTopic
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "qbank"
	}

	// ── Domain ────────────────────────────────────────────────────────────────
	if cfg.Taxonomy.Path == "" {
		cfg.Taxonomy.Path = DefaultTaxonomyPath
	}
	if cfg.Taxonomy.FuzzyThreshold == 0 {
		cfg.Taxonomy.FuzzyThreshold = taxonomy.DefaultThreshold
	}
	if cfg.Taxonomy.Similarity == "" {
		cfg.Taxonomy.Similarity = string(taxonomy.DefaultMetric)
	}
	// A zero review threshold is a valid explicit value, so only a wholly
	// empty classification section is defaulted.
	if cfg.Classification == (classification.Config{}) {
		cfg.Classification = classification.DefaultConfig()
	}
	if cfg.Classification.MaxTopics == 0 {
		cfg.Classification.MaxTopics = classification.DefaultMaxTopics
	}
	if cfg.Classification.MaxHeuristics == 0 {
		cfg.Classification.MaxHeuristics = classification.DefaultMaxHeuristics
	}

	// ── Pipeline / Worker ─────────────────────────────────────────────────────
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultPipelineConcurrency
	}
	if cfg.Pipeline.KeyNumbering == "" {
		cfg.Pipeline.KeyNumbering = KeyNumberingCanonical
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = DefaultWorkerBatchSize
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = 30 * time.Second
	}
}

// envKeys are registered with viper so QBANK_* variables override them even
// when the file does not mention the key.
var envKeys = []string{
	"server.host", "server.port", "server.rate_limit", "server.rate_burst",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.migration_path",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.key_prefix",
	"kafka.enabled", "kafka.brokers", "kafka.group_id", "kafka.proposal_topic",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket", "minio.use_ssl",
	"log.level", "log.format",
	"metrics.enabled", "metrics.path",
	"taxonomy.path", "taxonomy.fuzzy_threshold", "taxonomy.similarity",
	"classification.review_threshold", "classification.max_topics", "classification.max_heuristics",
	"pipeline.concurrency", "pipeline.overwrite_answers", "pipeline.key_numbering", "pipeline.publish_events",
	"worker.concurrency", "worker.batch_size", "worker.handler_timeout",
}

func bindEnv(v *viper.Viper) {
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
}

//Personal.AI order the ending
