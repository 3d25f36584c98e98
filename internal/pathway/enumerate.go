// Package pathway implements the Pathway Enumerator: extraction of every
// reaction-ID sequence from a retrosynthesis tree's root to its leaves, with
// de-duplication and subset pruning.
package pathway

import (
	"strings"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/retrotree"
)

// Enumerate walks tree in post-order and returns the finite set of
// pathways implied by it: each pathway is an ordered sequence of reaction
// IDs that together synthesize root from available substances. The result
// is empty when no reaction under root has every reactant resolved down to
// leaves, even if the tree contains leaves elsewhere.
func Enumerate(root *retrotree.Node) [][]string {
	raw := collect(root)

	deduped := make([][]string, len(raw))
	for i, p := range raw {
		deduped[i] = dedupOrdered(p)
	}
	return removeSupersets(dedupIdentical(deduped))
}

// dedupIdentical removes pathways that are exact duplicates (same reaction
// IDs, same order) of an earlier pathway in the slice. Distinct branches of
// the tree frequently rediscover the same minimal pathway.
func dedupIdentical(paths [][]string) [][]string {
	seen := make(map[string]struct{}, len(paths))
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		key := pathKey(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// pathKey builds a stable string key for an ordered reaction-ID sequence.
func pathKey(path []string) string {
	var sb strings.Builder
	for _, id := range path {
		sb.WriteString(id)
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

// collect returns the raw (pre-post-processing) set of reaction-ID
// sequences contributed by node: Cartesian-combine within a reaction
// group, union across groups.
func collect(node *retrotree.Node) [][]string {
	if node.IsLeaf {
		return [][]string{{}} // one empty reaction sequence
	}
	if len(node.Children) == 0 {
		return nil // failed expansion: contributes no pathway
	}

	order, groups := node.ChildrenByReaction()

	var all [][]string
	for _, r := range order {
		children := groups[r]

		combos := [][]string{{}}
		for _, child := range children {
			childPaths := collect(child)
			if len(childPaths) == 0 {
				// This reactant cannot be synthesized; the whole group
				// (all reactants must be synthesized together) fails.
				combos = nil
				break
			}
			combos = cartesianAppend(combos, childPaths)
		}
		if combos == nil {
			continue
		}

		for _, combo := range combos {
			path := make([]string, 0, len(combo)+1)
			path = append(path, r)
			path = append(path, combo...)
			all = append(all, path)
		}
	}
	return all
}

// cartesianAppend combines every existing partial path in combos with every
// path in next, concatenating them. This implements the "all reactants of
// that reaction must be synthesized in the same pathway" rule for a single
// reaction group, applied one reactant at a time.
func cartesianAppend(combos [][]string, next [][]string) [][]string {
	out := make([][]string, 0, len(combos)*len(next))
	for _, c := range combos {
		for _, n := range next {
			merged := make([]string, 0, len(c)+len(n))
			merged = append(merged, c...)
			merged = append(merged, n...)
			out = append(out, merged)
		}
	}
	return out
}

// dedupOrdered removes repeated reaction IDs from path, preserving the
// first occurrence's position.
func dedupOrdered(path []string) []string {
	seen := make(map[string]struct{}, len(path))
	out := make([]string, 0, len(path))
	for _, id := range path {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// removeSupersets discards any path that is a proper superset (as a set) of
// another path in paths, keeping the minimal reaction set for each
// synthesis route.
func removeSupersets(paths [][]string) [][]string {
	sets := make([]map[string]struct{}, len(paths))
	for i, p := range paths {
		set := make(map[string]struct{}, len(p))
		for _, id := range p {
			set[id] = struct{}{}
		}
		sets[i] = set
	}

	var out [][]string
	for i, p := range paths {
		isSuperset := false
		for j := range paths {
			if i == j {
				continue
			}
			if isProperSuperset(sets[i], sets[j]) {
				isSuperset = true
				break
			}
		}
		if !isSuperset {
			out = append(out, p)
		}
	}
	return out
}

// isProperSuperset reports whether a is a proper superset of b: every
// element of b is in a, and a has at least one element b lacks.
func isProperSuperset(a, b map[string]struct{}) bool {
	if len(a) <= len(b) {
		return false
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}
