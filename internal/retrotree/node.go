// Package retrotree implements the retrosynthesis tree engine: a recursive
// tree builder over the reaction store that decomposes a target substance
// into precursors until every leaf is declared available, with per-branch
// cycle detection and unexpandable-substance bookkeeping.
package retrotree

// Node is a single node in a retrosynthesis tree.
//
// Parent is a back-reference used solely for path and ancestor queries; it
// is never a source of ownership and must not be traversed during
// serialization — see internal/store/treesnap, which rebuilds it
// on load instead of encoding it.
type Node struct {
	// Substance is the normalized (lowercase) substance name at this node.
	Substance string

	// ReactionIndex is the idx of the reaction that produced this substance
	// in the parent step. Meaningless at the root; see IsRoot.
	ReactionIndex string

	// IsRoot is true only for the tree's root node, whose ReactionIndex and
	// AncestorSet are both empty by construction.
	IsRoot bool

	// Parent is the node's parent in the tree, or nil at the root.
	Parent *Node

	// AncestorSet is the set of substance names on the path from the root
	// to (but not including) this node. Used for per-branch cycle
	// detection; a substance may validly appear in multiple
	// subtrees reached via disjoint ancestor sets.
	AncestorSet map[string]struct{}

	// ReactionLine is the ordered list of reaction IDs on the root-to-
	// parent path.
	ReactionLine []string

	// Children is the ordered sequence of child nodes, grouped implicitly
	// by the reaction that produced them: all children created by the
	// same reaction share the same ReactionIndex.
	Children []*Node

	// IsLeaf is true iff the substance was declared available by the
	// Availability Oracle during the build that produced this node.
	IsLeaf bool
}

// Terminal reports whether this node is a dead end for pathway purposes: a
// leaf, or a node with no children. A node with no children that is not
// a leaf represents a failed expansion and contributes no pathway.
func (n *Node) Terminal() bool {
	return n.IsLeaf || len(n.Children) == 0
}

// ChildrenByReaction groups n's current children by ReactionIndex,
// preserving first-seen group order. Used by the pathway enumerator to
// Cartesian-combine within a reaction group and union across groups.
func (n *Node) ChildrenByReaction() ([]string, map[string][]*Node) {
	order := make([]string, 0, len(n.Children))
	groups := make(map[string][]*Node, len(n.Children))
	for _, c := range n.Children {
		if _, ok := groups[c.ReactionIndex]; !ok {
			order = append(order, c.ReactionIndex)
		}
		groups[c.ReactionIndex] = append(groups[c.ReactionIndex], c)
	}
	return order, groups
}

// removeChildrenByReaction drops every child of n produced by reaction r,
// implementing the "all-or-nothing" reaction removal rule.
func (n *Node) removeChildrenByReaction(r string) {
	kept := n.Children[:0:0]
	for _, c := range n.Children {
		if c.ReactionIndex != r {
			kept = append(kept, c)
		}
	}
	n.Children = kept
}

// ancestorUnion returns a new set containing every member of base plus
// extra. The input sets are never mutated, since each node owns its own
// AncestorSet independently (required for per-branch cycle detection to
// work correctly when a substance appears in sibling subtrees).
func ancestorUnion(base map[string]struct{}, extra string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+1)
	for k := range base {
		out[k] = struct{}{}
	}
	out[extra] = struct{}{}
	return out
}
