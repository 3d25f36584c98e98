package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// JSONFileStore is a Store backed by a single JSON object on disk, written
// atomically (temp file, then rename) and human-editable between runs. The
// whole map is loaded into memory once on construction; every write
// rewrites the full file via a temp-file-then-rename so a concurrent reader
// never observes a partially written file.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewJSONFileStore loads path into memory, creating an empty map if the
// file does not yet exist. A malformed existing file is a fatal error;
// silently discarding a human-edited cache would be worse.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read cache file").WithDetail("path=" + path)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "parse cache file").WithDetail("path=" + path)
	}
	return s, nil
}

func (s *JSONFileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *JSONFileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flushLocked()
}

func (s *JSONFileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "marshal cache file")
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeIO, "create cache directory").WithDetail("dir=" + dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create temp cache file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "write temp cache file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "close temp cache file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "rename temp cache file").WithDetail("path=" + s.path)
	}
	return nil
}

func (s *JSONFileStore) Close() error { return nil }
