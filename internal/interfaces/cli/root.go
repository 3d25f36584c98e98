// Package cli implements the retrosynth command-line surface: a single
// "run" command exposing the pipeline flags, global
// config/logging initialization, and the stderr+output-path error
// reporting contract.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/pipeline"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds every CLI flag.
type RootOptions struct {
	ConfigPath    string
	Material      string
	NumResults    int
	Alignment     bool
	Expansion     bool
	Filtration    bool
	RetrievalMode string
	OutputPath    string
	LogLevel      string
	Verbose       bool
	WorkDir       string
	Timeout       time.Duration
}

// NewRootCommand builds the retrosynth root command: one RunE that wires
// config, logger, and a pipeline.Driver, then executes a single run.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "retrosynth",
		Short:   "Retrosynthetic pathway discovery over a literature and patent corpus",
		Long:    "retrosynth discovers retrosynthetic pathways for a target material by\nacquiring patent and paper documents, extracting reactions, aligning\nnames across sources, and expanding the tree until every leaf is either\navailable or unexpandable.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.Flags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.Material, "material", "", "target chemical name or structural string (required)")
	pf.IntVar(&opts.NumResults, "num_results", 0, "number of documents to acquire in the initial stage (default from config)")
	pf.BoolVar(&opts.Alignment, "alignment", true, "run entity alignment passes 1 and 2")
	pf.BoolVar(&opts.Expansion, "expansion", true, "run the expansion controller")
	pf.BoolVar(&opts.Filtration, "filtration", false, "run the optional filtration stage")
	pf.StringVar(&opts.RetrievalMode, "retrieval_mode", "", "patent-patent | paper-paper | both-both (default from config)")
	pf.StringVar(&opts.OutputPath, "output", "", "JSON output path (optional)")
	pf.StringVar(&opts.WorkDir, "work_dir", "", "working directory for res_pi/ and tree_pi/ (default from config)")
	pf.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose (debug) logging")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "overall run timeout (0 disables)")

	return cmd
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	return rootCmd.Execute()
}

// run loads configuration, builds the logger and Driver, executes one
// pipeline run, and on any fatal error writes the
// `{ "error": "...", <echoed-args> }` envelope before returning it.
func run(cmd *cobra.Command, opts *RootOptions) error {
	if strings.TrimSpace(opts.Material) == "" {
		return errEchoed(opts, fmt.Errorf("--material is required"))
	}
	switch opts.RetrievalMode {
	case "", "patent-patent", "paper-paper", "both-both":
	default:
		return errEchoed(opts, fmt.Errorf("--retrieval_mode %q is invalid; expected patent-patent|paper-paper|both-both", opts.RetrievalMode))
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return errEchoed(opts, err)
	}

	log, err := buildLogger(opts)
	if err != nil {
		return errEchoed(opts, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	wired, err := pipeline.Wire(ctx, cfg, log)
	if err != nil {
		log.Error("failed to wire pipeline dependencies", logging.Err(err))
		return errEchoed(opts, err)
	}
	defer wired.Close()

	runOpts := pipelineOptions(cfg, opts)

	result, err := wired.Driver.Run(ctx, runOpts)
	if err != nil {
		log.Error("pipeline run failed", logging.Err(err), logging.String("material", opts.Material))
		return errEchoed(opts, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	return config.LoadFromEnv()
}

func buildLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = "debug"
	}
	switch level {
	case "debug", "info", "warn", "error":
	default:
		level = "info"
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// pipelineOptions overlays explicitly-set CLI flags on top of config
// defaults onto pipeline.Options.
func pipelineOptions(cfg *config.Config, opts *RootOptions) pipeline.Options {
	po := pipeline.DefaultOptions()
	po.Material = opts.Material
	po.Alignment = opts.Alignment
	po.Expansion = opts.Expansion
	po.Filtration = opts.Filtration
	po.OutputPath = opts.OutputPath

	po.NumResults = cfg.Pipeline.NumResults
	if opts.NumResults > 0 {
		po.NumResults = opts.NumResults
	}

	po.RetrievalMode = expansion.RetrievalMode(cfg.Pipeline.RetrievalMode)
	if opts.RetrievalMode != "" {
		po.RetrievalMode = expansion.RetrievalMode(opts.RetrievalMode)
	}

	po.WorkDir = cfg.Pipeline.WorkDir
	if opts.WorkDir != "" {
		po.WorkDir = opts.WorkDir
	}

	po.BatchSaveEvery = cfg.Pipeline.BatchSaveEvery
	po.Tree.MaxDepth = cfg.Pipeline.MaxDepth
	po.Tree.MaxExpansions = cfg.Pipeline.MaxExpansions
	po.ExpansionOpts.MaxIterations = cfg.Pipeline.MaxIterations
	po.ExpansionOpts.DocsPerSubstance = cfg.Pipeline.DocsPerSubstance
	po.ExpansionOpts.MaxAttemptsPerSubstance = cfg.Pipeline.MaxAttemptsPerSubstance
	po.ExpansionOpts.Concurrency = cfg.Pipeline.Concurrency
	po.ExpansionOpts.Tree = po.Tree

	return po
}

// errEchoed writes the `{ "error": "...", <echoed-args> }` envelope to
// opts.OutputPath when one is set, then returns err so main()
// exits non-zero.
func errEchoed(opts *RootOptions, err error) error {
	if opts.OutputPath != "" {
		envelope := map[string]interface{}{
			"error":          err.Error(),
			"material":       opts.Material,
			"num_results":    opts.NumResults,
			"alignment":      opts.Alignment,
			"expansion":      opts.Expansion,
			"filtration":     opts.Filtration,
			"retrieval_mode": opts.RetrievalMode,
		}
		if data, mErr := json.MarshalIndent(envelope, "", "  "); mErr == nil {
			_ = writeFileBestEffort(opts.OutputPath, data)
		}
	}
	return err
}
