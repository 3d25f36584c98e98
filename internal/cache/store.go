// Package cache implements the disk-backed (and optionally distributed)
// key/value maps required by the Availability Oracle, Name Resolver, and
// Entity Aligner: name→key, name→available?, and the two alignment maps
// Every implementation writes synchronously after the corresponding
// in-memory update, so readers see a cache miss at worst, never a stale
// pair.
package cache

import "context"

// Store is a flat string→string map persisted across process runs. Callers
// treat a cache miss as "not yet computed", never as an error.
type Store interface {
	// Get returns the cached value for key and true, or ("", false) on a
	// miss. It never returns a non-nil error for a plain miss.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set persists value for key, overwriting any prior entry. It returns
	// once the write has durably landed.
	Set(ctx context.Context, key, value string) error

	// Close releases any resources (file handles, connections) held by the
	// store.
	Close() error
}
