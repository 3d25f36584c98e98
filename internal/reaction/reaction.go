// Package reaction implements the Reaction Store: the authoritative mapping
// from reaction IDs to reactant/product/condition/source tuples, and the
// derived reverse index from product name to the set of reactions that
// produce it. The store is the single source of truth shared by alignment,
// the tree engine, the pathway enumerator, and the expansion controller.
package reaction

import (
	"sort"
	"strings"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// Reaction is an ordered (reactants, products, conditions) tuple with a
// stable ID and a source document. All names are normalized to lowercase
// before a Reaction is constructed by New or accepted by Store.AddReactions.
type Reaction struct {
	// ID uniquely identifies this reaction within a Store.
	ID string

	// Reactants is the ordered sequence of normalized substance names
	// consumed by this reaction. Duplicates within the slice are
	// preserved.
	Reactants []string

	// Products is the ordered sequence of normalized substance names
	// produced by this reaction.
	Products []string

	// Conditions is a free-text description (catalyst, solvent,
	// temperature, pressure, duration, yield, atmosphere). Opaque to the
	// tree engine.
	Conditions string

	// Source is the origin document identifier, used for provenance.
	Source string
}

// New constructs a Reaction, lowercasing and trimming every reactant and
// product name. It does not validate the reactants/products disjointness
// invariant; use Validate or rely on Store.AddReactions, which validates
// before committing.
func New(id string, reactants, products []string, conditions, source string) Reaction {
	return Reaction{
		ID:         id,
		Reactants:  normalizeNames(reactants),
		Products:   normalizeNames(products),
		Conditions: conditions,
		Source:     source,
	}
}

// normalizeNames lowercases and trims every name in names, returning a new
// slice. Empty strings produced by trimming are dropped.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Validate enforces the store-level invariant that a single reaction's
// reactants and products must be disjoint as sets (a substance is never
// simultaneously consumed and produced by the same step). It also
// rejects reactions with no ID, no reactants, or no products.
func (r Reaction) Validate() error {
	if r.ID == "" {
		return errors.New(errors.CodeReactionInvalid, "reaction has empty id")
	}
	if len(r.Reactants) == 0 {
		return errors.New(errors.CodeReactionInvalid, "reaction has no reactants").
			WithDetail("idx=" + r.ID)
	}
	if len(r.Products) == 0 {
		return errors.New(errors.CodeReactionInvalid, "reaction has no products").
			WithDetail("idx=" + r.ID)
	}

	products := make(map[string]struct{}, len(r.Products))
	for _, p := range r.Products {
		products[p] = struct{}{}
	}
	for _, s := range r.Reactants {
		if _, ok := products[s]; ok {
			return errors.New(errors.CodeReactionInvalid, "reactant also appears as product").
				WithDetail("idx=" + r.ID + " substance=" + s)
		}
	}
	return nil
}

// sortedCopy returns a lexicographically sorted copy of ids, used wherever
// the store must return a deterministic order across runs.
func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
