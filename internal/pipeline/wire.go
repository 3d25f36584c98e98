package pipeline

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/align"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/cache"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/collaborator"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	redisinfra "github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/database/redis"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/messaging/kafka"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/oracle"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/platform/metrics"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/resolve"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/docstore"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/pgstore"
)

// Wired bundles a fully constructed Driver with the close functions its
// collaborators need on shutdown.
type Wired struct {
	Driver *Driver

	// MetricsHandler serves /metrics when cfg.Metrics.Enabled; nil
	// otherwise.
	MetricsHandler http.Handler

	Close func()
}

// Wire constructs a Driver from a fully-loaded Config: the memoization
// caches (JSON file, or Redis when cfg.Redis.Enabled), the Name Resolver
// and Availability Oracle, the Entity Aligner, the HTTP collaborator
// adapters for the registry/LLM endpoints (internal/collaborator), the
// optional Kafka event bus, and the optional Prometheus metrics set. Both
// cmd/retrosynth and
// cmd/worker share this constructor so the two entrypoints can never drift
// in how they assemble a pipeline run.
func Wire(ctx context.Context, cfg *config.Config, log logging.Logger) (*Wired, error) {
	if log == nil {
		log = logging.Default()
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	availCache, err := openCache(cfg, "availability", log)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { _ = availCache.Close() })

	resolveCache, err := openCache(cfg, "resolve", log)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, func() { _ = resolveCache.Close() })

	alignCache, err := openCache(cfg, "align", log)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, func() { _ = alignCache.Close() })

	var registryClient *collaborator.Client
	if cfg.Resolver.RegistryBaseURL != "" {
		registryClient = collaborator.New(collaborator.Config{
			BaseURL: cfg.Resolver.RegistryBaseURL,
			APIKey:  cfg.Resolver.RegistryAPIKey,
			Timeout: cfg.Pipeline.RequestTimeout,
		})
	}

	var llmClient *collaborator.Client
	if cfg.Resolver.LLMBaseURL != "" {
		llmClient = collaborator.New(collaborator.Config{
			BaseURL: cfg.Resolver.LLMBaseURL,
			APIKey:  cfg.Resolver.LLMAPIKey,
			Timeout: cfg.Pipeline.RequestTimeout,
		})
	}

	var resolver resolve.Resolver
	if registryClient != nil {
		resolver = registryClient
	}
	nr := resolve.New(resolver, nil, resolveCache)

	var registry oracle.Registry
	if registryClient != nil {
		registry = registryClient
	}
	ao := oracle.New(oracle.DefaultInventory(), registry, nr, availCache)
	ao.RetryBaseDelay = cfg.Resolver.RetryBaseDelay

	var eaLLM align.LLM
	if llmClient != nil {
		eaLLM = llmClient
	}
	ea := align.New(nr, eaLLM, alignCache)

	var fetcher expansion.Fetcher
	var renderer expansion.Renderer
	var extractor expansion.Extractor
	if llmClient != nil {
		fetcher = llmClient
		renderer = llmClient
		extractor = llmClient
	}
	if src := openSources(cfg); src != nil {
		fetcher = src
	}

	docIndexPath := filepath.Join(cfg.Pipeline.WorkDir, "doc_index.json")
	docIndex, err := expansion.NewJSONDocumentIndex(docIndexPath)
	if err != nil {
		closeAll()
		return nil, err
	}

	bus, busCloser, err := openEventBus(ctx, cfg, log)
	if err != nil {
		closeAll()
		return nil, err
	}
	if busCloser != nil {
		closers = append(closers, busCloser)
	}

	var filterLLM align.LLM
	if llmClient != nil {
		filterLLM = llmClient
	}

	driver := New(reaction.NewStore(), ao, ea, fetcher, renderer, extractor, docIndex, bus, filterLLM, alignCache, log)

	if cfg.MinIO.Enabled {
		corpus, err := docstore.Open(ctx, cfg.MinIO, log)
		if err != nil {
			log.Warn("document corpus store unavailable, continuing without mirroring", logging.Err(err))
		} else {
			driver.DocStore = corpus
			closers = append(closers, func() { _ = corpus.Close() })
		}
	}

	if cfg.Database.Enabled {
		dbCfg := cfg.Database
		driver.OpenMirror = func(mctx context.Context, material string) (*pgstore.Mirror, error) {
			return pgstore.Open(mctx, dbCfg, material, log)
		}
	}

	if cfg.Redis.Enabled {
		lockClient, err := redisinfra.NewClient(&redisinfra.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, log)
		if err != nil {
			log.Warn("material lock unavailable, running unguarded against concurrent workers", logging.Err(err))
		} else {
			driver.Locker = redisinfra.NewMaterialLock(lockClient, cfg.Pipeline.MaterialLockTTL)
			closers = append(closers, func() { _ = lockClient.Close() })
		}
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		p, collector, err := metrics.New(log)
		if err != nil {
			log.Warn("metrics registration failed, continuing without instrumentation", logging.Err(err))
		} else {
			driver.Metrics = p
			metricsHandler = collector.Handler()
		}
	}

	return &Wired{Driver: driver, MetricsHandler: metricsHandler, Close: closeAll}, nil
}

func openCache(cfg *config.Config, name string, log logging.Logger) (cache.Store, error) {
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(&redisinfra.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		rc := redisinfra.NewRedisCache(client, log)
		return cache.NewRedisStore(rc, cfg.Redis.KeyPrefix+name+":"), nil
	}
	path := filepath.Join(cfg.Pipeline.CacheDir, name+".json")
	return cache.NewJSONFileStore(path)
}

// openSources builds a CompositeFetcher over the dedicated patent/paper
// document endpoints when either is configured, splitting each document
// budget per the run's retrieval mode. The paper search carries its own
// per-call timeout and degrades to an empty result on expiry so the
// pipeline continues with whatever the patent source returned. Returns nil
// when neither endpoint is set.
func openSources(cfg *config.Config) expansion.Fetcher {
	if cfg.Sources.PatentBaseURL == "" && cfg.Sources.PaperBaseURL == "" {
		return nil
	}
	composite := &expansion.CompositeFetcher{}
	if cfg.Sources.PatentBaseURL != "" {
		client := collaborator.New(collaborator.Config{
			BaseURL: cfg.Sources.PatentBaseURL,
			APIKey:  cfg.Sources.PatentAPIKey,
			Timeout: cfg.Pipeline.RequestTimeout,
		})
		composite.Patent = collaborator.SingleSource{Client: client}
	}
	if cfg.Sources.PaperBaseURL != "" {
		client := collaborator.New(collaborator.Config{
			BaseURL: cfg.Sources.PaperBaseURL,
			APIKey:  cfg.Sources.PaperAPIKey,
			Timeout: cfg.Sources.SearchTimeout,
		})
		composite.Paper = &expansion.TimeoutFetcher{
			Source:  collaborator.SingleSource{Client: client},
			Timeout: cfg.Sources.SearchTimeout,
		}
	}
	return composite
}

func openEventBus(ctx context.Context, cfg *config.Config, log logging.Logger) (expansion.EventBus, func(), error) {
	if !cfg.Kafka.Enabled {
		return expansion.NoopBus{}, nil, nil
	}
	if cfg.Kafka.AutoCreateTopics {
		mgr, err := kafka.NewTopicManager(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warn("kafka topic manager unavailable, topics must already exist", logging.Err(err))
		} else {
			if err := mgr.EnsureDefaultTopics(ctx); err != nil {
				log.Warn("ensuring default kafka topics failed, continuing", logging.Err(err))
			}
			_ = mgr.Close()
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.ProducerRetries,
		BatchSize:    cfg.Kafka.BatchSize,
		RetryBackoff: 200 * time.Millisecond,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	bus := expansion.NewKafkaEventBus(producer, "retrosynth-pipeline")
	return bus, func() { _ = producer.Close() }, nil
}
