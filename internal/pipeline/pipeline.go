// Package pipeline implements the Pipeline Driver (PD): the orchestration
// that owns the Reaction Store, Availability Oracle, Name Resolver, and
// Entity Aligner for one run, and sequences them through acquisition,
// extraction, root alignment, tree construction, expansion, remainder
// alignment, filtration, and pathway enumeration.
package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/align"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/database/redis"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/pathway"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/platform/metrics"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/retrotree"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/docstore"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/graphexport"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/pgstore"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/store/treesnap"
)

// Options configures one pipeline run, mirroring the CLI flag surface.
type Options struct {
	Material      string
	NumResults    int
	RetrievalMode expansion.RetrievalMode
	Alignment     bool
	Expansion     bool
	Filtration    bool

	// WorkDir is the root directory under which res_pi/ and tree_pi/ are
	// written.
	WorkDir string

	// OutputPath is where the final JSON result envelope is written. Empty
	// skips output persistence (callers that only want the in-memory
	// Result, e.g. tests).
	OutputPath string

	// BatchSaveEvery flushes res_pi/llm_res*.json every K processed
	// documents rather than only once at the end, bounding data loss on a
	// crash. <= 0 means flush once, at the end.
	BatchSaveEvery int

	Tree          retrotree.Options
	ExpansionOpts expansion.Options
}

// DefaultOptions returns recommended, non-correctness-affecting bounds.
func DefaultOptions() Options {
	return Options{
		RetrievalMode:  expansion.ModeBothBoth,
		NumResults:     10,
		BatchSaveEvery: 5,
		Tree:           retrotree.DefaultOptions(),
		ExpansionOpts:  expansion.DefaultOptions(),
	}
}

// Result is the pipeline's output envelope, written atomically to
// --output.
type Result struct {
	Material            string            `json:"material"`
	Pathways            [][]string        `json:"pathways,omitempty"`
	ReactionCount       int               `json:"reaction_count"`
	Converged           bool              `json:"converged"`
	ExpansionIterations int               `json:"expansion_iterations"`
	Unexpandable        []string          `json:"unexpandable,omitempty"`
	RawReactions        map[string]string `json:"raw_reactions,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// Driver is the Pipeline Driver: the sole owner of RS, AO, and EA for the
// duration of one Run.
type Driver struct {
	RS        *reaction.Store
	AO        retrotree.Availability
	EA        *align.EA
	Fetcher   expansion.Fetcher
	Renderer  expansion.Renderer
	Extractor expansion.Extractor
	DocIndex  expansion.DocumentIndex
	Bus       expansion.EventBus

	// FilterLLM and FilterCache back the optional filtration stage,
	// reusing the Entity Aligner's LLM/CacheStore shapes since both
	// are a single free-form completion call with synchronous persistence.
	FilterLLM   align.LLM
	FilterCache align.CacheStore

	// Metrics reports pipeline-stage Prometheus metrics when non-nil
	// (internal/platform/metrics, hosted by cmd/worker's /metrics
	// endpoint). A nil Metrics disables instrumentation entirely; each
	// call site checks for nil before reporting.
	Metrics *metrics.Pipeline

	// DocStore mirrors fetched documents and rendered text to MinIO when
	// non-nil (internal/store/docstore), alongside the local res_pi/
	// layout. Best-effort: a mirror failure is logged, never fatal.
	DocStore *docstore.Corpus

	// OpenMirror opens a per-material durable Postgres mirror of RS when
	// non-nil (internal/store/pgstore), letting a run resume previously
	// persisted reactions instead of re-extracting them.
	OpenMirror func(ctx context.Context, material string) (*pgstore.Mirror, error)

	// Locker guards a material against concurrent runs from other worker
	// replicas when non-nil (internal/infrastructure/database/redis's
	// MaterialLock). A nil Locker runs unguarded, appropriate for a
	// single-process cmd/retrosynth invocation.
	Locker MaterialLocker

	Log logging.Logger
}

// MaterialLocker acquires the run lock for one material. Held.Release gives
// it back; Acquire returns ErrMaterialLocked (redis package) when another
// worker already holds it.
type MaterialLocker interface {
	Acquire(ctx context.Context, material string) (*redis.Held, error)
}

// New constructs a Driver. Log defaults to logging.Default() when nil.
func New(rs *reaction.Store, ao retrotree.Availability, ea *align.EA, fetcher expansion.Fetcher, renderer expansion.Renderer, extractor expansion.Extractor, docIndex expansion.DocumentIndex, bus expansion.EventBus, filterLLM align.LLM, filterCache align.CacheStore, log logging.Logger) *Driver {
	if log == nil {
		log = logging.Default()
	}
	return &Driver{
		RS: rs, AO: ao, EA: ea,
		Fetcher: fetcher, Renderer: renderer, Extractor: extractor,
		DocIndex: docIndex, Bus: bus,
		FilterLLM: filterLLM, FilterCache: filterCache,
		Log: log,
	}
}

// Run executes the full pipeline for opts.Material: acquire, extract, align
// root, build tree, expand, align remainder, filter, enumerate. A non-nil
// error means a fatal failure (output unwritable, tree
// serialization failed); every other outcome, including an empty corpus or
// zero enumerated pathways, is reported in the returned Result.
func (d *Driver) Run(ctx context.Context, opts Options) (*Result, error) {
	material := strings.ToLower(strings.TrimSpace(opts.Material))
	resDir := filepath.Join(opts.WorkDir, "res_pi")
	treeDir := filepath.Join(opts.WorkDir, "tree_pi")

	if d.Locker != nil {
		held, err := d.Locker.Acquire(ctx, material)
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := held.Release(context.Background()); rerr != nil {
				d.Log.Warn("failed to release material lock", logging.Err(rerr))
			}
		}()
	}

	var mirror *pgstore.Mirror
	if d.OpenMirror != nil {
		m, err := d.OpenMirror(ctx, material)
		if err != nil {
			d.Log.Warn("durable reaction mirror unavailable, continuing without it", logging.Err(err))
		} else {
			mirror = m
			defer mirror.Close()
			if resumed, err := mirror.Load(ctx); err != nil {
				d.Log.Warn("failed to resume reactions from durable mirror", logging.Err(err))
			} else if len(resumed) > 0 {
				if err := d.RS.AddReactions(resumed); err != nil {
					d.Log.Warn("resumed reaction batch rejected", logging.Err(err))
				} else {
					d.Log.Info("resumed reactions from durable mirror", logging.Int("count", len(resumed)))
				}
			}
		}
	}

	docs, err := d.acquireDocuments(ctx, material, opts)
	if err != nil {
		return nil, err
	}
	if d.Metrics != nil && len(docs) > 0 {
		d.Metrics.DocumentsFetched.WithLabelValues(material, string(opts.RetrievalMode)).Add(float64(len(docs)))
	}
	if len(docs) == 0 {
		d.Log.Warn("empty corpus, no documents acquired", logging.String("material", material))
		result := &Result{Material: material, Error: "empty corpus: no documents acquired"}
		if werr := d.maybeWriteOutput(opts.OutputPath, result); werr != nil {
			return nil, werr
		}
		return result, nil
	}

	raw, modified := d.extractAndAlignRoot(ctx, material, docs, resDir, opts)
	if d.Metrics != nil {
		d.Metrics.ReactionsExtracted.WithLabelValues(material).Add(float64(d.RS.Len()))
	}
	d.persistMirror(ctx, mirror)

	tree := d.buildTree(ctx, material, opts)
	if err := treesnap.Save(treesnap.SnapshotPath(treeDir, material, false, false), tree); err != nil {
		return nil, err
	}

	iterations := 0
	expanded := false
	if opts.Expansion {
		tracker := &addedDocTracker{}
		var ecRenderer expansion.Renderer
		var ecExtractor expansion.Extractor
		if d.Renderer != nil && d.Extractor != nil {
			tp := &trackingPair{renderer: d.Renderer, extractor: d.Extractor, tracker: tracker}
			ecRenderer, ecExtractor = tp, tp
		}
		ecOpts := opts.ExpansionOpts
		if ecOpts.BatchSaveEvery <= 0 {
			ecOpts.BatchSaveEvery = opts.BatchSaveEvery
		}
		ec := expansion.New(d.RS, d.AO, d.Fetcher, ecRenderer, ecExtractor, d.DocIndex, d.Bus, ecOpts)
		ec.OnBatchSave = func(sctx context.Context) {
			d.persistAdded(resDir, tracker.docs)
			d.persistMirror(sctx, mirror)
		}

		ecResult, err := ec.Run(ctx, material, opts.RetrievalMode)
		if err != nil {
			return nil, err
		}
		tree = ecResult.Tree
		iterations = ecResult.Iterations
		expanded = true
		d.persistAdded(resDir, tracker.docs)
		d.persistMirror(ctx, mirror)
		if err := treesnap.Save(treesnap.SnapshotPath(treeDir, material, true, false), tree); err != nil {
			return nil, err
		}
	}

	if opts.Alignment && d.EA != nil {
		d.EA.StructuralPass(ctx, d.RS)
		if _, err := d.EA.SynonymPass(ctx, d.RS); err != nil {
			d.Log.Warn("synonym pass failed, remainder alignment skipped", logging.Err(err))
		}
		tree = d.buildTree(ctx, material, opts)
		if err := treesnap.Save(treesnap.SnapshotPath(treeDir, material, expanded, true), tree); err != nil {
			return nil, err
		}
	}

	if opts.Filtration {
		if allowed, err := d.reactionFilter(ctx, material, tree); err == nil && allowed != nil {
			d.RS = d.RS.Project(allowed)
			tree = d.buildTree(ctx, material, opts)
		}
	}

	pathways := pathway.Enumerate(tree.Root)
	if opts.Filtration && len(pathways) > 0 {
		if kept, err := d.pathwayFilter(ctx, material, pathways); err == nil && kept != nil {
			pathways = kept
		}
	}

	result := &Result{
		Material:            material,
		Pathways:            pathways,
		ReactionCount:       d.RS.Len(),
		Converged:           tree.RootExpanded() && len(tree.Unexpandable) == 0,
		ExpansionIterations: iterations,
		Unexpandable:        sortedKeys(tree.Unexpandable),
	}
	if d.Metrics != nil {
		d.Metrics.ExpansionIterations.WithLabelValues(material).Add(float64(iterations))
		d.Metrics.PathwaysFound.WithLabelValues(material).Set(float64(len(pathways)))
		d.Metrics.UnexpandableCount.WithLabelValues(material).Set(float64(len(tree.Unexpandable)))
	}
	if len(pathways) == 0 {
		// Empty tree or zero pathways is not fatal: emit the raw extracted
		// reactions so downstream tooling can still inspect them.
		result.RawReactions = modified
		if len(raw) > 0 && len(modified) == 0 {
			result.RawReactions = raw
		}
	}

	if err := graphexport.Save(filepath.Join(opts.WorkDir, material+"_graph.json"), graphexport.Build(d.RS)); err != nil {
		d.Log.Warn("reaction graph export failed, continuing", logging.Err(err))
	}

	if err := d.maybeWriteOutput(opts.OutputPath, result); err != nil {
		return nil, err
	}
	return result, nil
}

// buildTree wraps retrotree.Build with a tree-build-duration observation
// when d.Metrics is configured.
func (d *Driver) buildTree(ctx context.Context, material string, opts Options) *retrotree.Tree {
	if d.Metrics == nil {
		return retrotree.Build(ctx, material, d.AO, d.RS, opts.Tree)
	}
	start := time.Now()
	tree := retrotree.Build(ctx, material, d.AO, d.RS, opts.Tree)
	d.Metrics.TreeBuildSeconds.WithLabelValues(material).Observe(time.Since(start).Seconds())
	return tree
}

// persistMirror flushes RS to the durable Postgres mirror when one is
// configured. The mirror is a write-behind tier, never consulted mid-run.
// Best-effort: failures are logged, never fatal, since the in-memory RS
// remains authoritative.
func (d *Driver) persistMirror(ctx context.Context, mirror *pgstore.Mirror) {
	if mirror == nil {
		return
	}
	if err := mirror.Persist(ctx, d.RS); err != nil {
		d.Log.Warn("failed to persist reactions to durable mirror", logging.Err(err))
	}
}

func (d *Driver) maybeWriteOutput(path string, result *Result) error {
	if path == "" {
		return nil
	}
	return writeJSONAtomic(path, result)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
