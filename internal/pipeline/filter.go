package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/retrotree"
)

const (
	reactionFilterCacheKeyBase = "pd:filter:reaction:"
	pathwayFilterCacheKeyBase  = "pd:filter:pathway:"
)

// reactionFilter is the reaction-level filter: the LLM is shown
// every reaction the current tree references and asked which remain
// chemically plausible. The verdict is cached per material and replayed
// deterministically on re-run without another LLM call. A nil return means
// "no filtering applied" (no LLM configured, nothing referenced, or a
// degraded LLM call) rather than an error, since filtration is optional and
// a failure here must not abort the pipeline.
func (d *Driver) reactionFilter(ctx context.Context, material string, tree *retrotree.Tree) (map[string]struct{}, error) {
	referenced := collectReactionIDs(tree.Root)
	if len(referenced) == 0 || d.FilterLLM == nil {
		return nil, nil
	}

	cacheKey := reactionFilterCacheKeyBase + material
	if d.FilterCache != nil {
		if raw, ok, err := d.FilterCache.Get(ctx, cacheKey); err == nil && ok {
			if ids, perr := decodeIDSet(raw); perr == nil {
				return ids, nil
			}
		}
	}

	reply, err := d.FilterLLM.Complete(ctx, buildReactionFilterPrompt(material, referenced, d.RS))
	if err != nil {
		d.Log.Warn("reaction filter LLM call failed, filtration skipped this run", logging.Err(err))
		return nil, nil
	}

	allowed := parseAllowedIDs(reply)
	if len(allowed) == 0 {
		return nil, nil
	}

	if d.FilterCache != nil {
		if raw, merr := encodeIDSet(allowed); merr == nil {
			_ = d.FilterCache.Set(ctx, cacheKey, raw)
		}
	}
	return allowed, nil
}

// pathwayFilter is the pathway-level filter: a post-processing
// reduction over the enumerated pathway set, since it necessarily runs
// after pathway.Enumerate. Verdicts are cached per material the same way
// the reaction filter's are.
func (d *Driver) pathwayFilter(ctx context.Context, material string, pathways [][]string) ([][]string, error) {
	if d.FilterLLM == nil {
		return nil, nil
	}

	cacheKey := pathwayFilterCacheKeyBase + material
	if d.FilterCache != nil {
		if raw, ok, err := d.FilterCache.Get(ctx, cacheKey); err == nil && ok {
			if idxs, perr := decodeIndexSet(raw); perr == nil {
				return selectPathways(pathways, idxs), nil
			}
		}
	}

	reply, err := d.FilterLLM.Complete(ctx, buildPathwayFilterPrompt(material, pathways))
	if err != nil {
		d.Log.Warn("pathway filter LLM call failed, filtration skipped this run", logging.Err(err))
		return nil, nil
	}

	idxs := parseAllowedIndices(reply, len(pathways))
	if len(idxs) == 0 {
		return nil, nil
	}

	if d.FilterCache != nil {
		if raw, merr := encodeIndexSet(idxs); merr == nil {
			_ = d.FilterCache.Set(ctx, cacheKey, raw)
		}
	}
	return selectPathways(pathways, idxs), nil
}

// collectReactionIDs walks node and its descendants, returning the sorted,
// de-duplicated set of reaction IDs on the tree (every non-root node's
// ReactionIndex).
func collectReactionIDs(node *retrotree.Node) []string {
	set := make(map[string]struct{})
	var walk func(*retrotree.Node)
	walk = func(n *retrotree.Node) {
		if !n.IsRoot && n.ReactionIndex != "" {
			set[n.ReactionIndex] = struct{}{}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func buildReactionFilterPrompt(material string, referenced []string, rs *reaction.Store) string {
	var sb strings.Builder
	sb.WriteString("The synthesis target is \"")
	sb.WriteString(material)
	sb.WriteString("\". The following reactions were used to build its retrosynthesis tree. Identify any reaction that is chemically implausible or irrelevant to reaching the target, and reply with the IDs of every reaction that should be KEPT in the form:\nAllowed: id1, id2, ...\n\nReactions:\n")
	for _, id := range referenced {
		rxn, ok := rs.Get(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s -> %s (%s)\n", id, strings.Join(rxn.Reactants, " + "), strings.Join(rxn.Products, " + "), rxn.Conditions)
	}
	return sb.String()
}

func buildPathwayFilterPrompt(material string, pathways [][]string) string {
	var sb strings.Builder
	sb.WriteString("The synthesis target is \"")
	sb.WriteString(material)
	sb.WriteString("\". Each numbered line below is one candidate synthesis pathway (an ordered list of reaction IDs). Reply with the indices of every pathway that should be KEPT in the form:\nAllowed: 0, 2, 4\n\nPathways:\n")
	for i, p := range pathways {
		fmt.Fprintf(&sb, "%d: %s\n", i, strings.Join(p, " -> "))
	}
	return sb.String()
}

// parseAllowedIDs parses an "Allowed: id1, id2, ..." reply, tolerating a
// missing prefix by treating the whole reply as a comma-separated list.
func parseAllowedIDs(reply string) map[string]struct{} {
	line := extractAllowedLine(reply)
	out := make(map[string]struct{})
	for _, part := range strings.Split(line, ",") {
		id := strings.TrimSpace(part)
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

// parseAllowedIndices parses an "Allowed: 0, 2, 4" reply into a set of
// in-range pathway indices; malformed or out-of-range entries are dropped.
func parseAllowedIndices(reply string, n int) map[int]struct{} {
	line := extractAllowedLine(reply)
	out := make(map[int]struct{})
	for _, part := range strings.Split(line, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v >= n {
			continue
		}
		out[v] = struct{}{}
	}
	return out
}

func extractAllowedLine(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "allowed:") {
			return line[len("allowed:"):]
		}
	}
	return reply
}

func selectPathways(pathways [][]string, idxs map[int]struct{}) [][]string {
	out := make([][]string, 0, len(idxs))
	for i, p := range pathways {
		if _, ok := idxs[i]; ok {
			out = append(out, p)
		}
	}
	return out
}

func encodeIDSet(set map[string]struct{}) (string, error) {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw, err := json.Marshal(ids)
	return string(raw), err
}

func decodeIDSet(raw string) (map[string]struct{}, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func encodeIndexSet(set map[int]struct{}) (string, error) {
	idxs := make([]int, 0, len(set))
	for i := range set {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	raw, err := json.Marshal(idxs)
	return string(raw), err
}

func decodeIndexSet(raw string) (map[int]struct{}, error) {
	var idxs []int
	if err := json.Unmarshal([]byte(raw), &idxs); err != nil {
		return nil, err
	}
	out := make(map[int]struct{}, len(idxs))
	for _, i := range idxs {
		out[i] = struct{}{}
	}
	return out, nil
}
