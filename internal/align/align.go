// Package align implements the Entity Aligner (EA): two independent,
// idempotent canonicalization passes over the Reaction Store (structural
// via the Name Resolver, synonym via an LLM), plus a separate per-document
// root-alignment pass that rewrites references to the synthesis target
// before extraction output ever reaches the store.
package align

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/resolve"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// LLM is the single free-form completion call every alignment pass needing
// model judgment goes through: one method, a prompt string in, a text
// reply out, errors never swallowed by the caller.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CacheStore is the narrow persistence contract EA needs: string keys to
// string blobs, synchronous writes. Each stage's output is persisted;
// on re-run the persisted output is loaded and the LLM is not called
// again.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ReactionSource is the subset of *reaction.Store EA operates on.
type ReactionSource interface {
	AllNames() []string
	Rename(mapping map[string]string)
}

const (
	synonymCacheKey  = "ea:synonym_map_2"
	rootCacheKeyBase = "ea:root:"
)

// EA is the Entity Aligner.
type EA struct {
	Resolver *resolve.NR
	LLM      LLM
	Cache    CacheStore
}

// New constructs an EA. Resolver, LLM, and Cache may each be nil; a nil LLM
// degrades SynonymPass/RootAlign to no-ops rather than failing the
// pipeline.
func New(resolver *resolve.NR, llm LLM, store CacheStore) *EA {
	return &EA{Resolver: resolver, LLM: llm, Cache: store}
}

// StructuralPass is the structural alignment pass: cluster every name in rs by
// its Name-Resolver structural key, pick the first member of each
// multi-name cluster as canonical, and apply the resulting map to rs.
// Returns the synonym_map_1 produced (name -> canonical), which is empty
// when no cluster had more than one member.
func (e *EA) StructuralPass(ctx context.Context, rs ReactionSource) map[string]string {
	names := rs.AllNames()

	order := make([]string, 0)
	clusters := make(map[string][]string)
	for _, n := range names {
		key := n
		if e.Resolver != nil {
			key = e.Resolver.ToKey(ctx, n)
		}
		if _, ok := clusters[key]; !ok {
			order = append(order, key)
		}
		clusters[key] = append(clusters[key], n)
	}

	mapping := make(map[string]string)
	for _, key := range order {
		members := clusters[key]
		if len(members) < 2 {
			continue
		}
		canonical := members[0]
		for _, m := range members {
			mapping[m] = canonical
		}
	}

	rs.Rename(mapping)
	return mapping
}

// SynonymPass is the synonym alignment pass: present every surviving name to
// the LLM, parse the reply into synonym_map_2, and apply it to rs. If a
// persisted result already exists it is loaded and applied without calling
// the LLM again, so re-runs are idempotent.
func (e *EA) SynonymPass(ctx context.Context, rs ReactionSource) (map[string]string, error) {
	if e.Cache != nil {
		if raw, ok, err := e.Cache.Get(ctx, synonymCacheKey); err == nil && ok {
			mapping, perr := decodeMapping(raw)
			if perr == nil {
				rs.Rename(mapping)
				return mapping, nil
			}
		}
	}

	if e.LLM == nil {
		return nil, nil
	}

	reply, err := e.LLM.Complete(ctx, buildSynonymPrompt(rs.AllNames()))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAlignmentParseError, "synonym pass LLM call failed")
	}

	mapping, err := parseSynonymReply(reply)
	if err != nil {
		return nil, err
	}

	if e.Cache != nil {
		if raw, merr := encodeMapping(mapping); merr == nil {
			_ = e.Cache.Set(ctx, synonymCacheKey, raw)
		}
	}

	rs.Rename(mapping)
	return mapping, nil
}

// RootAlign is the per-document root-alignment pass: given one
// document's extracted reaction block, ask the LLM to rewrite any name
// referring to target into the exact target string, and return the
// rewritten block. This is a per-document text replacement, never a
// store-level rename. docID keys the persisted result so a
// re-run skips the LLM call.
func (e *EA) RootAlign(ctx context.Context, docID, target, block string) (string, error) {
	cacheKey := rootCacheKeyBase + docID
	if e.Cache != nil {
		if v, ok, err := e.Cache.Get(ctx, cacheKey); err == nil && ok {
			return v, nil
		}
	}

	if e.LLM == nil {
		return block, nil
	}

	rewritten, err := e.LLM.Complete(ctx, buildRootAlignPrompt(target, block))
	if err != nil {
		return block, errors.Wrap(err, errors.CodeAlignmentParseError, "root alignment LLM call failed").
			WithDetail("doc=" + docID)
	}

	if e.Cache != nil {
		_ = e.Cache.Set(ctx, cacheKey, rewritten)
	}
	return rewritten, nil
}

func encodeMapping(mapping map[string]string) (string, error) {
	raw, err := json.Marshal(mapping)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeAlignmentParseError, "encode synonym map")
	}
	return string(raw), nil
}

func decodeMapping(raw string) (map[string]string, error) {
	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, errors.Wrap(err, errors.CodeAlignmentParseError, "decode persisted synonym map")
	}
	return mapping, nil
}

func buildSynonymPrompt(names []string) string {
	var sb strings.Builder
	sb.WriteString("The following substance names may refer to the same chemical entity under different surface forms. Group every name that refers to an identical substance into one cluster and give each cluster a single standardized name. Reply with one line per cluster in the form:\nCluster: name1, name2, ... -> standardized_name\n\nNames:\n")
	for _, n := range names {
		sb.WriteString("- ")
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildRootAlignPrompt(target, block string) string {
	var sb strings.Builder
	sb.WriteString("The synthesis target for this reaction data is \"")
	sb.WriteString(target)
	sb.WriteString("\". Rewrite the block below so that every name referring to this exact target material is replaced with the target string verbatim. Leave every other name untouched. Reply with the rewritten block only.\n\n")
	sb.WriteString(block)
	return sb.String()
}

// parseSynonymReply parses the LLM's "Cluster: a, b, c -> canonical" line
// format into a name -> canonical map covering every clustered member
// (including canonical itself, so Rename stays a no-op for it).
func parseSynonymReply(reply string) (map[string]string, error) {
	mapping := make(map[string]string)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "Cluster:")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "->", 2)
		if len(parts) != 2 {
			continue // malformed cluster line; skip, do not fail the whole pass
		}

		canonical := strings.ToLower(strings.TrimSpace(parts[1]))
		if canonical == "" {
			continue
		}

		for _, member := range strings.Split(parts[0], ",") {
			member = strings.ToLower(strings.TrimSpace(member))
			if member == "" {
				continue
			}
			mapping[member] = canonical
		}
	}
	return mapping, nil
}
