package cli

import "os"

// writeFileBestEffort writes data to path and returns the write error,
// which its caller discards: the error envelope is a diagnostic
// convenience, not load-bearing, so a failed write here must never mask
// the original pipeline error.
func writeFileBestEffort(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
