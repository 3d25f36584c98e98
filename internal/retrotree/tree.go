package retrotree

import (
	"context"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
)

// Availability answers whether a substance is commercially/commonly
// available — the Availability Oracle's single operation.
type Availability interface {
	IsAvailable(ctx context.Context, substance string) bool
}

// ReactionSource is the subset of the Reaction Store's operations the tree
// engine depends on. *reaction.Store satisfies this interface directly.
type ReactionSource interface {
	Producers(name string) []string
	Get(idx string) (reaction.Reaction, bool)
}

// Options configures recommended (non-correctness) bounds on tree
// construction, guarding against pathological inputs. The bounds are
// recommended defaults, not correctness constraints.
type Options struct {
	// MaxDepth caps how many reaction steps deep the tree may grow from the
	// root. A node reached at depth MaxDepth is treated as unexpandable
	// rather than recursed into further. Zero means unbounded.
	MaxDepth int

	// MaxExpansions caps the total number of expand() calls performed
	// during a single Build, as a circuit breaker against reaction graphs
	// that are technically acyclic per-branch but combinatorially
	// explosive. Zero means unbounded.
	MaxExpansions int
}

// DefaultOptions returns the recommended construction bounds.
func DefaultOptions() Options {
	return Options{
		MaxDepth:      50,
		MaxExpansions: 200000,
	}
}

// Tree is a retrosynthesis tree built by Build: a rooted tree whose root is
// the synthesis target, with the unexpandable-substance set discovered
// during that build. The set is rebuilt from scratch on each tree
// construction.
type Tree struct {
	Root *Node

	// Unexpandable is the set U: substances for which no path to
	// availability was found during this build.
	Unexpandable map[string]struct{}
}

// RootExpanded reports whether the root node itself resolved to either a
// leaf or at least one surviving child — the condition the expansion
// controller uses to decide whether the build succeeded.
func (t *Tree) RootExpanded() bool {
	if t.Root == nil {
		return false
	}
	return t.Root.IsLeaf || len(t.Root.Children) > 0
}

// builder carries the mutable state threaded through the recursive expand
// calls of a single Build invocation.
type builder struct {
	ctx           context.Context
	ao            Availability
	rs            ReactionSource
	opts          Options
	unexpandable  map[string]struct{}
	expansions    int
}

// Build constructs a fresh retrosynthesis tree for target by recursively
// expanding it into precursors. The unexpandable set is rebuilt from
// scratch on every call; no state is memoized across separate Build
// invocations (only Availability's own internal memoization, which is the
// Availability Oracle's responsibility, carries over).
func Build(ctx context.Context, target string, ao Availability, rs ReactionSource, opts Options) *Tree {
	b := &builder{
		ctx:          ctx,
		ao:           ao,
		rs:           rs,
		opts:         opts,
		unexpandable: make(map[string]struct{}),
	}

	root := &Node{
		Substance:   target,
		IsRoot:      true,
		AncestorSet: make(map[string]struct{}),
	}
	b.expand(root, 0)

	return &Tree{
		Root:         root,
		Unexpandable: b.unexpandable,
	}
}

// expand recursively decomposes node into precursors, applying the
// depth/budget circuit breakers described in Options.
func (b *builder) expand(node *Node, depth int) bool {
	select {
	case <-b.ctx.Done():
		// Cooperative cancellation: treat as unexpandable rather
		// than panicking or returning a partially built subtree silently.
		b.unexpandable[node.Substance] = struct{}{}
		return false
	default:
	}

	if b.ao.IsAvailable(b.ctx, node.Substance) {
		node.IsLeaf = true
		return true
	}

	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		b.unexpandable[node.Substance] = struct{}{}
		return false
	}
	if b.opts.MaxExpansions > 0 && b.expansions >= b.opts.MaxExpansions {
		b.unexpandable[node.Substance] = struct{}{}
		return false
	}

	reactionIDs := b.rs.Producers(node.Substance)
	if len(reactionIDs) == 0 {
		b.unexpandable[node.Substance] = struct{}{}
		return false
	}

	for _, r := range reactionIDs {
		rxn, ok := b.rs.Get(r)
		if !ok {
			continue
		}

		for _, s := range rxn.Reactants {
			child := &Node{
				Substance:     s,
				ReactionIndex: r,
				Parent:        node,
				AncestorSet:   ancestorUnion(node.AncestorSet, node.Substance),
				ReactionLine:  append(append([]string{}, node.ReactionLine...), r),
			}
			node.Children = append(node.Children, child)

			if _, inAncestry := child.AncestorSet[child.Substance]; inAncestry {
				// Cycle: reaction r would make child.Substance its own
				// ancestor. Abandon every child introduced by r (a reaction
				// is all-or-nothing) and move on to the next reaction.
				// Earlier reactants of r were already expanded as they were
				// created; their unexpandable-set entries stand even though
				// the children themselves are removed here.
				node.removeChildrenByReaction(r)
				break
			}

			b.expansions++
			if !b.expand(child, depth+1) {
				child.IsLeaf = false
				// Left in tree; contributes no pathway.
			}
		}
	}

	if len(node.Children) == 0 {
		// Every producing reaction was rejected (cycles): no path to
		// availability exists through this node.
		b.unexpandable[node.Substance] = struct{}{}
		return false
	}
	return true
}
