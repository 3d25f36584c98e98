package expansion

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// JSONDocumentIndex is a DocumentIndex persisted as a single JSON object
// mapping substance name to the document IDs already acquired for it,
// following the same atomic write-then-rename discipline as the cache
// package. Its on-disk record is what makes a re-run against the same
// directory skip fetching for a substance that already reached its
// document budget.
type JSONDocumentIndex struct {
	mu   sync.Mutex
	path string
	docs map[string][]string
}

// NewJSONDocumentIndex loads path into memory, creating an empty index if
// the file does not yet exist.
func NewJSONDocumentIndex(path string) (*JSONDocumentIndex, error) {
	idx := &JSONDocumentIndex{path: path, docs: make(map[string][]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read document index").WithDetail("path=" + path)
	}
	if len(raw) == 0 {
		return idx, nil
	}
	if err := json.Unmarshal(raw, &idx.docs); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "parse document index").WithDetail("path=" + path)
	}
	return idx, nil
}

func (idx *JSONDocumentIndex) Count(_ context.Context, substance string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.docs[substance]), nil
}

// Record appends the IDs of docs not already present for substance, then
// flushes synchronously.
func (idx *JSONDocumentIndex) Record(_ context.Context, substance string, docs []FetchedDoc) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing := idx.docs[substance]
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, d := range docs {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		existing = append(existing, d.ID)
		seen[d.ID] = struct{}{}
	}
	idx.docs[substance] = existing
	return idx.flushLocked()
}

func (idx *JSONDocumentIndex) flushLocked() error {
	raw, err := json.MarshalIndent(idx.docs, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "marshal document index")
	}

	dir := filepath.Dir(idx.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeIO, "create document index directory").WithDetail("dir=" + dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(idx.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create temp document index file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "write temp document index file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "close temp document index file")
	}
	if err := os.Rename(tmpName, idx.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "rename temp document index file").WithDetail("path=" + idx.path)
	}
	return nil
}

// Substances returns the index's known substances in sorted order, mainly
// useful for diagnostics and tests.
func (idx *JSONDocumentIndex) Substances() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]string, 0, len(idx.docs))
	for s := range idx.docs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
