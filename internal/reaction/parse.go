package reaction

import (
	"strings"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// block field prefixes recognized by ParseText, matched case-insensitively.
const (
	fieldIdx        = "reaction idx:"
	fieldReactants  = "reactants:"
	fieldProducts   = "products:"
	fieldConditions = "conditions:"
	fieldSource     = "source:"
)

// ParseResult is the outcome of parsing an extraction blob: the reactions
// that parsed successfully, plus a count of blocks dropped for malformed
// content: a malformed block drops that reaction, never the whole blob.
type ParseResult struct {
	Reactions []Reaction
	Dropped   int
}

// ParseText consumes the external reaction-extraction output: a
// line-structured format with blocks separated by one or more blank lines.
// defaultSource is used for the Source field when a block omits the
// "Source:" line. Malformed blocks (missing idx, reactants, or products) are
// dropped and counted in ParseResult.Dropped rather than aborting the whole
// parse — extraction blobs commonly mix well-formed and truncated blocks.
func ParseText(blob, defaultSource string) ParseResult {
	var result ParseResult

	for _, rawBlock := range splitBlocks(blob) {
		r, ok := parseBlock(rawBlock, defaultSource)
		if !ok {
			result.Dropped++
			continue
		}
		if err := r.Validate(); err != nil {
			result.Dropped++
			continue
		}
		result.Reactions = append(result.Reactions, r)
	}
	return result
}

// splitBlocks splits blob on runs of one or more blank lines, trimming each
// resulting block and discarding empty ones.
func splitBlocks(blob string) []string {
	lines := strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n")

	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// parseBlock parses a single reaction block. It returns ok=false if the
// block is missing a required field.
func parseBlock(block, defaultSource string) (Reaction, bool) {
	var (
		id, conditions, source string
		reactants, products    []string
		haveID, haveR, haveP   bool
	)

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, fieldIdx):
			id = strings.TrimSpace(trimmed[len(fieldIdx):])
			haveID = id != ""
		case strings.HasPrefix(lower, fieldReactants):
			reactants = splitNames(trimmed[len(fieldReactants):])
			haveR = len(reactants) > 0
		case strings.HasPrefix(lower, fieldProducts):
			products = splitNames(trimmed[len(fieldProducts):])
			haveP = len(products) > 0
		case strings.HasPrefix(lower, fieldConditions):
			conditions = strings.TrimSpace(trimmed[len(fieldConditions):])
		case strings.HasPrefix(lower, fieldSource):
			source = strings.TrimSpace(trimmed[len(fieldSource):])
		}
	}

	if !haveID || !haveR || !haveP {
		return Reaction{}, false
	}
	if source == "" {
		source = defaultSource
	}
	return New(id, reactants, products, conditions, source), true
}

// splitNames splits a comma-separated name list, trimming whitespace and
// dropping empty entries. Lowercasing is applied later by New.
func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MustParseText is a convenience wrapper used by callers that already
// enforce non-empty results upstream (e.g. tests). It converts an entirely
// empty ParseResult (no reactions parsed from a non-empty blob) into an
// error; a blob that is merely empty produces a zero-value ParseResult with
// no error.
func MustParseText(blob, defaultSource string) (ParseResult, error) {
	result := ParseText(blob, defaultSource)
	if strings.TrimSpace(blob) != "" && len(result.Reactions) == 0 {
		return result, errors.New(errors.CodeReactionParseError, "no reaction blocks parsed from non-empty input")
	}
	return result, nil
}
