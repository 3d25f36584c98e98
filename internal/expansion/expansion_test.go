package expansion

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
)

// stubAvailability treats only the named substances as available.
type stubAvailability struct {
	available map[string]bool
}

func (s *stubAvailability) IsAvailable(_ context.Context, substance string) bool {
	return s.available[substance]
}

// memIndex is an in-memory DocumentIndex for tests that don't need the
// on-disk persistence JSONDocumentIndex provides. Safe for concurrent use
// since expandOnce processes substances through a bounded worker pool.
type memIndex struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemIndex() *memIndex { return &memIndex{counts: make(map[string]int)} }

func (m *memIndex) Count(_ context.Context, substance string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[substance], nil
}

func (m *memIndex) Record(_ context.Context, substance string, docs []FetchedDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[substance] += len(docs)
	return nil
}

// scriptedFetcher returns one document per call up to maxCalls, after which
// it returns nothing (simulating a source that has run out of results).
type scriptedFetcher struct {
	calls    int
	maxCalls int
}

func (f *scriptedFetcher) Fetch(_ context.Context, substance string, n int, _ RetrievalMode) ([]FetchedDoc, error) {
	if f.calls >= f.maxCalls {
		return nil, nil
	}
	f.calls++
	return []FetchedDoc{{ID: fmt.Sprintf("%s-doc-%d", substance, f.calls), Data: []byte("pdf")}}, nil
}

type identityRenderer struct{}

func (identityRenderer) Render(_ context.Context, doc FetchedDoc) (string, error) {
	return string(doc.Data), nil
}

// fixedExtractor always returns a single reaction turning "b" into target.
type fixedExtractor struct {
	reactant string
}

func (e fixedExtractor) ExtractReactions(_ context.Context, _ string, target string) (string, error) {
	return fmt.Sprintf("Reaction idx: r-%s\nReactants: %s\nProducts: %s\nConditions: heat\n", target, e.reactant, target), nil
}

func TestControllerRun_ConvergesWhenRootAlreadyAvailable(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{"acetone": true}}
	c := New(rs, ao, &scriptedFetcher{maxCalls: 0}, identityRenderer{}, fixedExtractor{reactant: "b"}, newMemIndex(), nil, DefaultOptions())

	result, err := c.Run(context.Background(), "acetone", ModeBothBoth)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Equal(t, 0, result.Iterations)
}

func TestControllerRun_ExpandsUntilRootCloses(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{"b": true}}
	fetcher := &scriptedFetcher{maxCalls: 3}
	c := New(rs, ao, fetcher, identityRenderer{}, fixedExtractor{reactant: "b"}, newMemIndex(), nil, DefaultOptions())

	result, err := c.Run(context.Background(), "target", ModeBothBoth)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.GreaterOrEqual(t, result.Iterations, 1)
	assert.Greater(t, rs.Len(), 0)
}

// emptyExtractor never yields a reaction block, simulating a bad render or
// an LLM miss on every document.
type emptyExtractor struct{}

func (emptyExtractor) ExtractReactions(context.Context, string, string) (string, error) {
	return "", nil
}

func TestControllerRun_KeepsFetchingWhileBelowDocumentBudget(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{}}
	fetcher := &scriptedFetcher{maxCalls: 100}

	// One fetch attempt per iteration, so reaching the three-document
	// budget takes three iterations. Zero extracted reactions must not
	// end the loop while the substance is still below that budget.
	opts := DefaultOptions()
	opts.MaxAttemptsPerSubstance = 1
	c := New(rs, ao, fetcher, identityRenderer{}, emptyExtractor{}, newMemIndex(), nil, opts)

	result, err := c.Run(context.Background(), "target", ModeBothBoth)
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, 3, fetcher.calls, "fetching continues across iterations until the document budget is met")
	assert.Equal(t, 4, result.Iterations)
}

func TestControllerRun_StopsWhenNoNewDocuments(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{}}
	fetcher := &scriptedFetcher{maxCalls: 0} // never returns a document
	c := New(rs, ao, fetcher, identityRenderer{}, fixedExtractor{reactant: "b"}, newMemIndex(), nil, DefaultOptions())

	result, err := c.Run(context.Background(), "target", ModeBothBoth)
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, 1, result.Iterations)
}

func TestControllerRun_PeriodicBatchSaveDuringExtraction(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{"b": true}}
	fetcher := &scriptedFetcher{maxCalls: 3}

	opts := DefaultOptions()
	opts.BatchSaveEvery = 1
	c := New(rs, ao, fetcher, identityRenderer{}, fixedExtractor{reactant: "b"}, newMemIndex(), nil, opts)

	saves := 0
	c.OnBatchSave = func(context.Context) { saves++ }

	result, err := c.Run(context.Background(), "target", ModeBothBoth)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.GreaterOrEqual(t, saves, 1, "extraction must flush partial progress between documents")
}

func TestControllerRun_IdempotentWhenDocumentBudgetAlreadyMet(t *testing.T) {
	rs := reaction.NewStore()
	ao := &stubAvailability{available: map[string]bool{}}
	fetcher := &scriptedFetcher{maxCalls: 0}
	index := newMemIndex()
	index.counts["target"] = 3 // already at budget

	opts := DefaultOptions()
	opts.MaxIterations = 1
	c := New(rs, ao, fetcher, identityRenderer{}, fixedExtractor{reactant: "b"}, index, nil, opts)

	result, err := c.Run(context.Background(), "target", ModeBothBoth)
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Equal(t, 0, fetcher.calls)
}

func TestSplitBudget(t *testing.T) {
	p, q := SplitBudget(5, ModeBothBoth)
	assert.Equal(t, 2, p)
	assert.Equal(t, 3, q)

	p, q = SplitBudget(5, ModePatentPatent)
	assert.Equal(t, 5, p)
	assert.Equal(t, 0, q)

	p, q = SplitBudget(5, ModePaperPaper)
	assert.Equal(t, 0, p)
	assert.Equal(t, 5, q)
}

type constSourceFetcher struct {
	docs []FetchedDoc
	err  error
}

func (c *constSourceFetcher) Fetch(context.Context, string, int) ([]FetchedDoc, error) {
	return c.docs, c.err
}

func TestCompositeFetcher_CombinesBothSources(t *testing.T) {
	patent := &constSourceFetcher{docs: []FetchedDoc{{ID: "p1"}, {ID: "p2"}}}
	paper := &constSourceFetcher{docs: []FetchedDoc{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}}
	cf := &CompositeFetcher{Patent: patent, Paper: paper}

	docs, err := cf.Fetch(context.Background(), "x", 5, ModeBothBoth)
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestCompositeFetcher_DegradesOnSourceError(t *testing.T) {
	patent := &constSourceFetcher{err: assert.AnError}
	paper := &constSourceFetcher{docs: []FetchedDoc{{ID: "a1"}}}
	cf := &CompositeFetcher{Patent: patent, Paper: paper}

	docs, err := cf.Fetch(context.Background(), "x", 2, ModeBothBoth)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
