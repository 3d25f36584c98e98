// Package config provides configuration loading, defaults, and validation for
// the retrosynthesis pipeline.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "retrosynth"
	DefaultDBMaxConns = 10

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "retrosynth-expansion"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "retrosynth-corpus"

	DefaultMetricsAddr = ":9090"
	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultNumResults              = 10
	DefaultRetrievalMode           = "both-both"
	DefaultMaxIterations           = 10
	DefaultDocsPerSubstance        = 3
	DefaultMaxAttemptsPerSubstance = 3
	DefaultConcurrency             = 3
	DefaultMaxDepth                = 8
	DefaultMaxExpansions           = 64
	DefaultBatchSaveEvery          = 5

	DefaultWorkerConcurrency = 3
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the pipeline
// default. Fields that have already been set by the caller (non-zero
// values) are left unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
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

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0". We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.NumResults == 0 {
		cfg.Pipeline.NumResults = DefaultNumResults
	}
	if cfg.Pipeline.RetrievalMode == "" {
		cfg.Pipeline.RetrievalMode = DefaultRetrievalMode
	}
	if cfg.Pipeline.MaxIterations == 0 {
		cfg.Pipeline.MaxIterations = DefaultMaxIterations
	}
	if cfg.Pipeline.DocsPerSubstance == 0 {
		cfg.Pipeline.DocsPerSubstance = DefaultDocsPerSubstance
	}
	if cfg.Pipeline.MaxAttemptsPerSubstance == 0 {
		cfg.Pipeline.MaxAttemptsPerSubstance = DefaultMaxAttemptsPerSubstance
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultConcurrency
	}
	if cfg.Pipeline.MaxDepth == 0 {
		cfg.Pipeline.MaxDepth = DefaultMaxDepth
	}
	if cfg.Pipeline.MaxExpansions == 0 {
		cfg.Pipeline.MaxExpansions = DefaultMaxExpansions
	}
	if cfg.Pipeline.BatchSaveEvery == 0 {
		cfg.Pipeline.BatchSaveEvery = DefaultBatchSaveEvery
	}
	// WorkDir is the parent of res_pi/ and tree_pi/, not res_pi/ itself.
	if cfg.Pipeline.WorkDir == "" {
		cfg.Pipeline.WorkDir = "."
	}
	if cfg.Pipeline.CacheDir == "" {
		cfg.Pipeline.CacheDir = "./cache"
	}
	if cfg.Pipeline.RequestTimeout == 0 {
		cfg.Pipeline.RequestTimeout = 30 * time.Second
	}

	// ── Resolver ──────────────────────────────────────────────────────────────
	if cfg.Resolver.RetryBaseDelay == 0 {
		cfg.Resolver.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Resolver.MaxRetries == 0 {
		cfg.Resolver.MaxRetries = 3
	}

	// ── Sources ───────────────────────────────────────────────────────────────
	if cfg.Sources.SearchTimeout == 0 {
		cfg.Sources.SearchTimeout = 60 * time.Second
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HeartbeatInterval == 0 {
		cfg.Worker.HeartbeatInterval = 15 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
