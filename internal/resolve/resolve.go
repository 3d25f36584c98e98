// Package resolve implements the Name Resolver (NR): mapping free-text
// substance names to canonical structural keys, with a structural-string
// fast path, a primary/fallback resolver chain, degraded-mode fallback to
// the original name, and synchronous disk memoization.
package resolve

import (
	"context"
	"regexp"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/cache"
)

// structuralShape reports the presence of any character that only appears
// in SMILES-style structural strings — bond/branch/charge/ring-closure
// punctuation (`=#@\/[]`) that a free-text chemical name never contains.
var structuralShape = regexp.MustCompile(`[=#@\\/\[\]]`)

const maxStructuralLen = 100

// Resolver is a single name→structural-key lookup service (a patent-office
// name registry, a cheminformatics name service, etc). An empty string
// result with a nil error means "no match", not a fatal condition.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// NR is the Name Resolver. Primary is queried first; Fallback only when
// the primary yields nothing. A resolver error is treated the same as an
// empty result so a single flaky collaborator degrades gracefully instead
// of aborting resolution.
type NR struct {
	Primary  Resolver
	Fallback Resolver
	Cache    cache.Store
}

// New constructs an NR. cache may be nil, in which case memoization is
// skipped (every call queries primary/fallback directly).
func New(primary, fallback Resolver, store cache.Store) *NR {
	return &NR{Primary: primary, Fallback: fallback, Cache: store}
}

// ToKey resolves name to a canonical structural key.
func (n *NR) ToKey(ctx context.Context, name string) string {
	if isStructuralShape(name) {
		return name
	}

	if n.Cache != nil {
		if v, ok, err := n.Cache.Get(ctx, name); err == nil && ok {
			return v
		}
	}

	key := n.queryChain(ctx, name)

	if n.Cache != nil {
		// Memoization failure is non-fatal;
		// the next call simply queries the resolver chain again.
		_ = n.Cache.Set(ctx, name, key)
	}
	return key
}

// queryChain tries Primary, then Fallback on an empty result, then falls
// back to the original name (degraded mode; downstream still works with
// textual keys).
func (n *NR) queryChain(ctx context.Context, name string) string {
	if n.Primary != nil {
		if key, err := n.Primary.Resolve(ctx, name); err == nil && key != "" {
			return key
		}
	}
	if n.Fallback != nil {
		if key, err := n.Fallback.Resolve(ctx, name); err == nil && key != "" {
			return key
		}
	}
	return name
}

// isStructuralShape reports whether name already looks like a structural
// string: it contains at least one structural-only punctuation character
// (see structuralShape) and is at most maxStructuralLen characters long.
// The other characters of name are not checked.
func isStructuralShape(name string) bool {
	return len(name) > 0 && len(name) <= maxStructuralLen && structuralShape.MatchString(name)
}
