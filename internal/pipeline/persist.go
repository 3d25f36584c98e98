package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// writeJSONAtomic marshals v and writes it to path via a temp file plus
// rename, the same discipline internal/cache and internal/store/treesnap
// use.
func writeJSONAtomic(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode json artifact").WithDetail("path=" + path)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeIO, "create artifact directory").WithDetail("dir=" + dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create temp artifact file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "write temp artifact file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "close temp artifact file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeIO, "rename temp artifact file").WithDetail("path=" + path)
	}
	return nil
}

// persistRes flushes the raw and root-aligned extraction blocks to
// res_pi/llm_res.json and res_pi/llm_res_modified.json. Write
// failures are logged and otherwise ignored: these are inspection
// artifacts, not load-bearing state the rest of the run depends on.
func (d *Driver) persistRes(resDir string, raw, modified map[string]string) {
	if err := writeJSONAtomic(filepath.Join(resDir, "llm_res.json"), raw); err != nil {
		d.Log.Warn("failed to persist llm_res.json", logging.Err(err))
	}
	if err := writeJSONAtomic(filepath.Join(resDir, "llm_res_modified.json"), modified); err != nil {
		d.Log.Warn("failed to persist llm_res_modified.json", logging.Err(err))
	}
}

// persistAdded flushes documents the expansion stage newly fetched and
// extracted to res_pi/llm_res_add.json.
func (d *Driver) persistAdded(resDir string, added map[string]string) {
	if len(added) == 0 {
		return
	}
	if err := writeJSONAtomic(filepath.Join(resDir, "llm_res_add.json"), added); err != nil {
		d.Log.Warn("failed to persist llm_res_add.json", logging.Err(err))
	}
}
