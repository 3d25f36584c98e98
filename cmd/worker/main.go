// Command worker runs retrosynth as a long-lived ops process: it wires
// the same pipeline.Driver the CLI uses, exposes /healthz and /metrics
// for Kubernetes probes and Prometheus scraping, and accepts pipeline
// runs over HTTP so a scheduler can submit materials without spawning a
// process per run.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/pipeline"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
)

const defaultShutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default: environment only)")
	addr := flag.String("addr", ":8081", "address the ops HTTP server listens on")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wired, err := pipeline.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire pipeline dependencies", logging.Err(err))
		os.Exit(1)
	}
	defer wired.Close()

	srv := &ops{wired: wired, cfg: cfg, log: logger}
	httpSrv := &http.Server{Addr: *addr, Handler: srv.router()}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("ops server listening", logging.String("addr", *addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", logging.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownGrace)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", logging.Err(err))
	}
	wg.Wait()
	logger.Info("worker stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

// ops hosts the worker's minimal HTTP surface: health, metrics, and a
// synchronous run endpoint. runMu serializes runs: the Driver's reaction
// store is per-run state, so two materials must never share it.
type ops struct {
	wired *pipeline.Wired
	cfg   *config.Config
	log   logging.Logger

	runMu sync.Mutex
}

func (o *ops) router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", o.handleHealthz)
	r.GET("/readyz", o.handleHealthz)
	if o.wired.MetricsHandler != nil {
		r.GET(o.cfg.Metrics.Path, gin.WrapH(o.wired.MetricsHandler))
	}
	r.POST("/run", o.handleRun)

	return r
}

func (o *ops) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runRequest mirrors the CLI's flag surface for programmatic submission.
type runRequest struct {
	Material      string `json:"material" binding:"required"`
	NumResults    int    `json:"num_results"`
	Alignment     *bool  `json:"alignment"`
	Expansion     *bool  `json:"expansion"`
	Filtration    *bool  `json:"filtration"`
	RetrievalMode string `json:"retrieval_mode"`
	OutputPath    string `json:"output"`
}

func (o *ops) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := pipeline.DefaultOptions()
	opts.Material = req.Material
	opts.OutputPath = req.OutputPath

	opts.NumResults = o.cfg.Pipeline.NumResults
	if req.NumResults > 0 {
		opts.NumResults = req.NumResults
	}
	opts.RetrievalMode = expansion.RetrievalMode(o.cfg.Pipeline.RetrievalMode)
	if req.RetrievalMode != "" {
		opts.RetrievalMode = expansion.RetrievalMode(req.RetrievalMode)
	}
	opts.WorkDir = o.cfg.Pipeline.WorkDir
	opts.Alignment = boolOr(req.Alignment, true)
	opts.Expansion = boolOr(req.Expansion, true)
	opts.Filtration = boolOr(req.Filtration, false)

	o.runMu.Lock()
	defer o.runMu.Unlock()
	o.wired.Driver.RS = reaction.NewStore()

	result, err := o.wired.Driver.Run(c.Request.Context(), opts)
	if err != nil {
		o.log.Error("pipeline run failed", logging.Err(err), logging.String("material", req.Material))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
