// Package config defines all configuration structures for the retrosynthesis
// pipeline.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds the PostgreSQL connection parameters for the Reaction
// Store's optional durable mirror (internal/store/pgstore).
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
	Enabled         bool          `mapstructure:"enabled"`
}

// RedisConfig holds the connection parameters for the distributed tier of
// the AO/NR memoization cache (internal/cache.RedisStore).
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	Enabled      bool          `mapstructure:"enabled"`
}

// KafkaConfig holds the Expansion Controller's optional event-bus
// parameters (internal/expansion.KafkaEventBus). A NoopBus runs when
// Enabled is false.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	ClientID          string   `mapstructure:"client_id"`
	ProducerRetries   int      `mapstructure:"producer_retries"`
	BatchSize         int      `mapstructure:"batch_size"`
	AutoCreateTopics  bool     `mapstructure:"auto_create_topics"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	NumPartitions     int      `mapstructure:"num_partitions"`
	Enabled           bool     `mapstructure:"enabled"`
}

// MinIOConfig holds the connection parameters for the document corpus
// store (internal/store/docstore), mirroring acquired PDFs and rendered
// text alongside the local res_pi/ filesystem layout.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	Enabled       bool          `mapstructure:"enabled"`
}

// MetricsConfig controls the Prometheus metrics HTTP surface exposed by
// cmd/worker.
type MetricsConfig struct {
	Addr    string `mapstructure:"addr"` // e.g. ":9090"
	Path    string `mapstructure:"path"` // e.g. "/metrics"
	Enabled bool   `mapstructure:"enabled"`
}

// LogConfig controls the zap-backed structured logger.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// PipelineConfig holds the Pipeline Driver's run-level defaults — the same
// knobs the CLI exposes as flags, used when a flag is left unset.
type PipelineConfig struct {
	NumResults              int           `mapstructure:"num_results"`
	RetrievalMode           string        `mapstructure:"retrieval_mode"` // "patent-patent" | "paper-paper" | "both-both"
	MaxIterations           int           `mapstructure:"max_iterations"`
	DocsPerSubstance        int           `mapstructure:"docs_per_substance"`
	MaxAttemptsPerSubstance int           `mapstructure:"max_attempts_per_substance"`
	Concurrency             int           `mapstructure:"concurrency"`
	MaxDepth                int           `mapstructure:"max_depth"`
	MaxExpansions           int           `mapstructure:"max_expansions"`
	BatchSaveEvery          int           `mapstructure:"batch_save_every"`
	WorkDir                 string        `mapstructure:"work_dir"`
	CacheDir                string        `mapstructure:"cache_dir"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`

	// MaterialLockTTL bounds how long a worker can hold a material's
	// distributed run lock (internal/infrastructure/database/redis's
	// MaterialLock) before a crashed holder's lock expires and another
	// replica can pick the material back up. Only consulted when
	// RedisConfig.Enabled is true.
	MaterialLockTTL time.Duration `mapstructure:"material_lock_ttl"`
}

// ResolverConfig holds the endpoints for the external Name Resolver and
// Availability Oracle registry collaborators, and the LLM endpoint shared
// by the Entity Aligner and the reaction/pathway filters.
type ResolverConfig struct {
	RegistryBaseURL string        `mapstructure:"registry_base_url"`
	RegistryAPIKey  string        `mapstructure:"registry_api_key"`
	LLMBaseURL      string        `mapstructure:"llm_base_url"`
	LLMAPIKey       string        `mapstructure:"llm_api_key"`
	LLMModel        string        `mapstructure:"llm_model"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// SourcesConfig holds the optional dedicated document-source endpoints:
// the patent database lookup and the academic paper search. When either is
// set the pipeline splits each document budget across the two sources per
// the retrieval mode; otherwise the shared collaborator endpoint
// (ResolverConfig.LLMBaseURL) serves all document fetches.
type SourcesConfig struct {
	PatentBaseURL string        `mapstructure:"patent_base_url"`
	PatentAPIKey  string        `mapstructure:"patent_api_key"`
	PaperBaseURL  string        `mapstructure:"paper_base_url"`
	PaperAPIKey   string        `mapstructure:"paper_api_key"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
}

// WorkerConfig holds worker-pool settings. They are defaulted and validated
// here; cmd/worker does not read them and runs no worker pool.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	QueueDepth        int           `mapstructure:"queue_depth"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the retrosynthesis
// pipeline. Every infrastructure component and application service reads
// its settings from the relevant sub-struct.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config. It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required when database.enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required when database.enabled")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis.enabled")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address when kafka.enabled")
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio.enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio.enabled")
		}
	}

	switch c.Pipeline.RetrievalMode {
	case "patent-patent", "paper-paper", "both-both":
	default:
		return fmt.Errorf("config: pipeline.retrieval_mode %q is invalid; expected patent-patent|paper-paper|both-both", c.Pipeline.RetrievalMode)
	}
	if c.Pipeline.NumResults < 1 {
		return fmt.Errorf("config: pipeline.num_results must be ≥ 1, got %d", c.Pipeline.NumResults)
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("config: pipeline.max_iterations must be ≥ 1, got %d", c.Pipeline.MaxIterations)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be ≥ 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.WorkDir == "" {
		return fmt.Errorf("config: pipeline.work_dir is required")
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
