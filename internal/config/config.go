// Package config defines the configuration of the QuestionBank binaries.
// No I/O lives here, only plain data types, conversion and validation.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// RateLimit is requests per second per client on /api/v1; 0 disables.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// URL renders the connection string understood by pgx and golang-migrate.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig holds Redis connection parameters. The cache is optional.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds producer and consumer parameters. Events are optional.
type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	GroupID       string        `mapstructure:"group_id"`
	ClientID      string        `mapstructure:"client_id"`
	BatchSize     int           `mapstructure:"batch_size"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	ProposalTopic string        `mapstructure:"proposal_topic"`
}

// MinIOConfig holds object-storage parameters for source PDFs.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TaxonomyConfig points at the vocabulary file and tunes fuzzy matching.
type TaxonomyConfig struct {
	Path           string  `mapstructure:"path"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	Similarity     string  `mapstructure:"similarity"`
}

// NumberingRuleConfig is the file form of numbering.Rule. Mapping keys are
// strings because YAML map keys arrive as strings through viper.
type NumberingRuleConfig struct {
	School  string         `mapstructure:"school"`
	Section string         `mapstructure:"section"`
	Offset  int            `mapstructure:"offset"`
	Mapping map[string]int `mapstructure:"mapping"`
}

// NumberingConfig lists per-school numbering rules. Section defaults derived
// from the paper structures apply where no rule is configured.
type NumberingConfig struct {
	Rules []NumberingRuleConfig `mapstructure:"rules"`
}

// PapersConfig overrides the built-in paper structures when non-empty.
type PapersConfig struct {
	Sections []paper.Structure `mapstructure:"sections"`
}

// PipelineConfig tunes ingestion.
type PipelineConfig struct {
	Concurrency      int    `mapstructure:"concurrency"`
	OverwriteAnswers bool   `mapstructure:"overwrite_answers"`
	KeyNumbering     string `mapstructure:"key_numbering"` // "canonical" | "printed"
	PublishEvents    bool   `mapstructure:"publish_events"`
}

// WorkerConfig holds classification-worker parameters.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	BatchSize      int           `mapstructure:"batch_size"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration shared by qbank, apiserver and worker.
type Config struct {
	Server         ServerConfig          `mapstructure:"server"`
	Database       DatabaseConfig        `mapstructure:"database"`
	Redis          RedisConfig           `mapstructure:"redis"`
	Kafka          KafkaConfig           `mapstructure:"kafka"`
	MinIO          MinIOConfig           `mapstructure:"minio"`
	Log            logging.LogConfig     `mapstructure:"log"`
	Metrics        MetricsConfig         `mapstructure:"metrics"`
	Taxonomy       TaxonomyConfig        `mapstructure:"taxonomy"`
	Numbering      NumberingConfig       `mapstructure:"numbering"`
	Classification classification.Config `mapstructure:"classification"`
	Papers         PapersConfig          `mapstructure:"papers"`
	Pipeline       PipelineConfig        `mapstructure:"pipeline"`
	Worker         WorkerConfig          `mapstructure:"worker"`
}

// NumberingRules converts the configured rules.
func (c *Config) NumberingRules() ([]numbering.Rule, error) {
	rules := make([]numbering.Rule, 0, len(c.Numbering.Rules))
	for i, rc := range c.Numbering.Rules {
		r := numbering.Rule{School: rc.School, Section: rc.Section, Offset: rc.Offset}
		if len(rc.Mapping) > 0 {
			r.Mapping = make(map[int]int, len(rc.Mapping))
			for raw, canonical := range rc.Mapping {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("config: numbering.rules[%d].mapping key %q is not a number", i, raw)
				}
				r.Mapping[n] = canonical
			}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must be >= 0, got %g", c.Server.RateLimit)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("config: minio.endpoint and minio.bucket are required when minio is enabled")
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Taxonomy.Path == "" {
		return fmt.Errorf("config: taxonomy.path is required")
	}
	if c.Taxonomy.FuzzyThreshold <= 0 || c.Taxonomy.FuzzyThreshold > 1 {
		return fmt.Errorf("config: taxonomy.fuzzy_threshold %g must be in (0, 1]", c.Taxonomy.FuzzyThreshold)
	}
	if _, err := taxonomy.ParseSimilarityMetric(c.Taxonomy.Similarity); err != nil {
		return fmt.Errorf("config: taxonomy.similarity: %w", err)
	}

	if err := c.Classification.Validate(); err != nil {
		return fmt.Errorf("config: classification: %w", err)
	}
	if _, err := c.NumberingRules(); err != nil {
		return err
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	switch c.Pipeline.KeyNumbering {
	case KeyNumberingCanonical, KeyNumberingPrinted:
	default:
		return fmt.Errorf("config: pipeline.key_numbering %q is invalid; expected canonical|printed", c.Pipeline.KeyNumbering)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("config: worker.batch_size must be >= 1, got %d", c.Worker.BatchSize)
	}
	return nil
}

//Personal.AI order the ending
