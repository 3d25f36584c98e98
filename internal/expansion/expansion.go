// Package expansion implements the Expansion Controller (EC): the iterative
// loop that enlarges the Reaction Store by acquiring and extracting
// additional documents for unexpandable intermediates until the
// retrosynthesis tree closes or an iteration budget is exhausted.
package expansion

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/retrotree"
)

// RetrievalMode governs which document sources a Fetcher draws from,
// mirroring the CLI's --retrieval_mode flag.
type RetrievalMode string

const (
	ModePatentPatent RetrievalMode = "patent-patent"
	ModePaperPaper   RetrievalMode = "paper-paper"
	ModeBothBoth     RetrievalMode = "both-both"
)

// FetchedDoc is one raw document acquired for a substance, prior to
// PDF→text rendering.
type FetchedDoc struct {
	ID   string
	Data []byte
}

// Fetcher acquires up to n additional documents for substance under mode.
// Fetcher errors are never fatal to the controller — a failed fetch
// simply yields zero documents this attempt.
type Fetcher interface {
	Fetch(ctx context.Context, substance string, n int, mode RetrievalMode) ([]FetchedDoc, error)
}

// Renderer converts one fetched document's raw bytes to text (the PDF→text
// external collaborator).
type Renderer interface {
	Render(ctx context.Context, doc FetchedDoc) (string, error)
}

// Extractor extracts a reaction-extraction blob from rendered text for
// the given target substance, delegating to the LLM.
type Extractor interface {
	ExtractReactions(ctx context.Context, text, target string) (string, error)
}

// DocumentIndex tracks how many documents have already been acquired for a
// substance, persisted so that a re-run on the same disk state performs no
// further fetches for a substance already at its document budget.
type DocumentIndex interface {
	Count(ctx context.Context, substance string) (int, error)
	Record(ctx context.Context, substance string, docs []FetchedDoc) error
}

// EventBus publishes EC observability events.
// Optional: NoopBus is used when no broker is configured so the pipeline
// runs standalone by default.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// NoopBus is an EventBus that discards every event.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, string, interface{}) error { return nil }

// Options bounds the iterative expansion loop.
type Options struct {
	// MaxIterations caps the number of build/expand cycles. Must be > 0;
	// Run clamps values <= 0 to 1.
	MaxIterations int

	// DocsPerSubstance is the target document count per unexpandable
	// substance before the controller stops fetching more for it this run.
	DocsPerSubstance int

	// MaxAttemptsPerSubstance bounds fetch attempts per substance per
	// iteration.
	MaxAttemptsPerSubstance int

	// Concurrency bounds how many unexpandable substances have documents
	// fetched for them in parallel within one expandOnce pass. <= 1
	// fetches sequentially. Extraction is always sequential.
	Concurrency int

	// BatchSaveEvery invokes the Controller's OnBatchSave hook after every
	// K documents during an iteration's sequential extraction stage,
	// bounding how much extracted work a crash can lose. <= 0 disables
	// periodic saves.
	BatchSaveEvery int

	Tree retrotree.Options
}

// DefaultOptions returns the standard bounds (3 documents, 3 attempts, 3
// concurrent fetches) plus retrotree's recommended tree-shape defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:           10,
		DocsPerSubstance:        3,
		MaxAttemptsPerSubstance: 3,
		Concurrency:             3,
		BatchSaveEvery:          5,
		Tree:                    retrotree.DefaultOptions(),
	}
}

// Controller is the Expansion Controller.
type Controller struct {
	RS        *reaction.Store
	AO        retrotree.Availability
	Fetcher   Fetcher
	Renderer  Renderer
	Extractor Extractor
	Index     DocumentIndex
	Bus       EventBus
	Opts      Options

	// OnBatchSave, when non-nil, is called after every Opts.BatchSaveEvery
	// documents extracted within an iteration so the owner can flush
	// partial progress (artifact files, the durable mirror) to disk.
	OnBatchSave func(ctx context.Context)
}

// New constructs a Controller. Bus defaults to NoopBus when nil.
func New(rs *reaction.Store, ao retrotree.Availability, fetcher Fetcher, renderer Renderer, extractor Extractor, index DocumentIndex, bus EventBus, opts Options) *Controller {
	if bus == nil {
		bus = NoopBus{}
	}
	return &Controller{RS: rs, AO: ao, Fetcher: fetcher, Renderer: renderer, Extractor: extractor, Index: index, Bus: bus, Opts: opts}
}

// Result is the outcome of a Run: the final tree and whether the loop
// converged (root expanded and the unexpandable set emptied) before the
// iteration budget was exhausted.
type Result struct {
	Tree       *retrotree.Tree
	Iterations int
	Converged  bool
}

// Run executes the expansion loop against target under mode, mutating
// c.RS as new reactions are extracted and merged. It terminates when the
// tree closes, the iteration budget is exhausted, no new documents were
// added in an iteration, or ctx is cancelled (checked cooperatively
// between iterations).
func (c *Controller) Run(ctx context.Context, target string, mode RetrievalMode) (*Result, error) {
	maxIter := c.Opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	var tree *retrotree.Tree
	iterations := 0
	for iterations < maxIter {
		select {
		case <-ctx.Done():
			tree = retrotree.Build(ctx, target, c.AO, c.RS, c.Opts.Tree)
			return &Result{Tree: tree, Iterations: iterations, Converged: false}, nil
		default:
		}

		tree = retrotree.Build(ctx, target, c.AO, c.RS, c.Opts.Tree)
		if tree.RootExpanded() && len(tree.Unexpandable) == 0 {
			return &Result{Tree: tree, Iterations: iterations, Converged: true}, nil
		}

		iterations++
		fetchedAny, err := c.expandOnce(ctx, tree, target, mode)
		if err != nil {
			return nil, err
		}
		_ = c.Bus.Publish(ctx, "iteration.completed", iterationCompletedPayload{
			Iteration:    iterations,
			RemainingU:   len(tree.Unexpandable),
			RootExpanded: tree.RootExpanded(),
		})
		if !fetchedAny {
			break
		}
	}

	tree = retrotree.Build(ctx, target, c.AO, c.RS, c.Opts.Tree)
	return &Result{
		Tree:       tree,
		Iterations: iterations,
		Converged:  tree.RootExpanded() && len(tree.Unexpandable) == 0,
	}, nil
}

type iterationCompletedPayload struct {
	Iteration    int
	RemainingU   int
	RootExpanded bool
}

// expandOnce runs one pass over the current unexpandable set in two
// stages. Document download fans out over a worker pool of
// Opts.Concurrency substances in flight at once; extraction (render, LLM
// call, merge into RS) then runs sequentially over everything fetched,
// invoking OnBatchSave every Opts.BatchSaveEvery documents so a crash
// mid-iteration loses at most one batch of extracted reactions. It reports
// whether any new document was fetched this iteration — the loop's
// continuation signal is document growth, not extraction yield, so a
// substance still below its document budget keeps the loop alive even
// when this iteration's documents produced no reactions.
func (c *Controller) expandOnce(ctx context.Context, tree *retrotree.Tree, target string, mode RetrievalMode) (bool, error) {
	substances := make([]string, 0, len(tree.Unexpandable))
	for s := range tree.Unexpandable {
		substances = append(substances, s)
	}
	sort.Strings(substances) // deterministic worklist order across runs

	limit := c.Opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	fetched := make([][]FetchedDoc, len(substances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, s := range substances {
		i, s := i, s
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			docs, err := c.ensureDocuments(gctx, s, mode)
			if err != nil {
				return nil // transient fetch failure: skip this substance
			}
			fetched[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	fetchedAny := false
	for i := range substances {
		if len(fetched[i]) > 0 {
			fetchedAny = true
			break
		}
	}

	processed := 0
	for i, s := range substances {
		for _, d := range fetched[i] {
			select {
			case <-ctx.Done():
				return fetchedAny, nil
			default:
			}

			c.processDocument(ctx, s, d)
			processed++
			if c.OnBatchSave != nil && c.Opts.BatchSaveEvery > 0 && processed%c.Opts.BatchSaveEvery == 0 {
				c.OnBatchSave(ctx)
			}
		}
	}
	return fetchedAny, nil
}

// ensureDocuments fetches documents for substance until it reaches
// DocsPerSubstance or exhausts MaxAttemptsPerSubstance, requesting
// attempt+1 documents on each successive attempt and returning only the
// documents newly fetched this call.
func (c *Controller) ensureDocuments(ctx context.Context, substance string, mode RetrievalMode) ([]FetchedDoc, error) {
	existing, err := c.Index.Count(ctx, substance)
	if err != nil {
		existing = 0
	}

	var fetched []FetchedDoc
	attempts := 0
	for existing < c.Opts.DocsPerSubstance && attempts < c.Opts.MaxAttemptsPerSubstance {
		n := attempts + 1
		docs, err := c.Fetcher.Fetch(ctx, substance, n, mode)
		attempts++
		if err != nil || len(docs) == 0 {
			continue
		}
		if err := c.Index.Record(ctx, substance, docs); err != nil {
			continue
		}
		for _, d := range docs {
			_ = c.Bus.Publish(ctx, "document.fetched", documentFetchedPayload{Substance: substance, DocumentID: d.ID, Attempt: attempts})
		}
		fetched = append(fetched, docs...)
		existing += len(docs)
	}
	return fetched, nil
}

type documentFetchedPayload struct {
	Substance  string
	DocumentID string
	Attempt    int
}

// processDocument renders and extracts reactions from one newly fetched
// document and merges the result into RS, returning true iff at least one
// reaction was added. Parse failures drop the offending reaction but not
// the whole document.
func (c *Controller) processDocument(ctx context.Context, target string, doc FetchedDoc) bool {
	if c.Renderer == nil || c.Extractor == nil {
		return false
	}
	text, err := c.Renderer.Render(ctx, doc)
	if err != nil {
		return false
	}

	block, err := c.Extractor.ExtractReactions(ctx, text, target)
	if err != nil {
		return false
	}

	result := reaction.ParseText(block, doc.ID)
	if len(result.Reactions) == 0 {
		return false
	}
	if err := c.RS.AddReactions(result.Reactions); err != nil {
		return false
	}
	_ = c.Bus.Publish(ctx, "reaction.extracted", reactionExtractedPayload{
		Substance:     target,
		DocumentID:    doc.ID,
		ReactionCount: len(result.Reactions),
		Dropped:       result.Dropped,
	})
	return true
}

type reactionExtractedPayload struct {
	Substance     string
	DocumentID    string
	ReactionCount int
	Dropped       int
}
