package expansion

import (
	"context"
	"time"
)

// SourceFetcher is a single-source document fetcher: a patent database
// lookup or an academic paper search, each an external collaborator out of
// scope for this module. CompositeFetcher combines the two into
// the Fetcher the Expansion Controller and the initial acquisition stage
// both consume.
type SourceFetcher interface {
	Fetch(ctx context.Context, substance string, n int) ([]FetchedDoc, error)
}

// SplitBudget divides a requested document count between the patent and
// paper sources according to mode. For the single-source modes the full
// budget goes to that source; both-both floor-divides the budget by two and
// gives any remainder to the paper source, so the same arithmetic applies
// identically whether this is the pipeline's initial acquisition or an
// expansion-iteration fetch.
func SplitBudget(total int, mode RetrievalMode) (patents, papers int) {
	switch mode {
	case ModePatentPatent:
		return total, 0
	case ModePaperPaper:
		return 0, total
	default: // both-both
		patents = total / 2
		papers = total - patents
		return patents, papers
	}
}

// CompositeFetcher implements Fetcher by splitting a request across a
// patent-source and a paper-source SourceFetcher per SplitBudget, and
// concatenating whatever each source returns. A source error degrades to
// zero documents from that source rather than failing the whole call.
type CompositeFetcher struct {
	Patent SourceFetcher
	Paper  SourceFetcher
}

func (c *CompositeFetcher) Fetch(ctx context.Context, substance string, n int, mode RetrievalMode) ([]FetchedDoc, error) {
	patentsN, papersN := SplitBudget(n, mode)

	var out []FetchedDoc
	if patentsN > 0 && c.Patent != nil {
		if docs, err := c.Patent.Fetch(ctx, substance, patentsN); err == nil {
			out = append(out, docs...)
		}
	}
	if papersN > 0 && c.Paper != nil {
		if docs, err := c.Paper.Fetch(ctx, substance, papersN); err == nil {
			out = append(out, docs...)
		}
	}
	return out, nil
}

// TimeoutFetcher wraps a SourceFetcher so every call carries its own
// deadline; the paper search's 60s budget is the motivating case. A
// timed-out call returns an empty result rather than propagating the
// context error, so the caller's degrade-and-continue behavior applies
// uniformly.
type TimeoutFetcher struct {
	Source  SourceFetcher
	Timeout time.Duration
}

func (t *TimeoutFetcher) Fetch(ctx context.Context, substance string, n int) ([]FetchedDoc, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	docs, err := t.Source.Fetch(cctx, substance, n)
	if err != nil {
		return nil, nil
	}
	return docs, nil
}
