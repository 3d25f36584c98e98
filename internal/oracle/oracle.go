// Package oracle implements the Availability Oracle (AO): answering
// "is substance X commonly available?" against a built-in inventory set
// and a remote compound registry, with retry/backoff and disk-backed
// memoization. An AO satisfies retrotree.Availability directly.
package oracle

import (
	"context"
	"math/rand"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/cache"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/resolve"
)

// Registry looks up a substance by structural key or by name in a remote
// compound database. A non-nil error means the call itself failed
// (transport, timeout); (false, nil) means a confirmed negative lookup.
type Registry interface {
	LookupByKey(ctx context.Context, key string) (bool, error)
	LookupByName(ctx context.Context, name string) (bool, error)
}

// TransientError is returned by a Registry implementation to mark an error
// as retryable I/O (network or transport disconnect) rather than some other
// failure, so AO can choose between exponential and constant backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

const maxAttempts = 3

// AO is the Availability Oracle.
type AO struct {
	// Inventory is the built-in static set of commonly available reagents
	// and polymers, keyed by structural key.
	Inventory map[string]struct{}

	Registry Registry
	Resolver *resolve.NR
	Cache    cache.Store

	// RetryBaseDelay seeds both backoff schedules; defaults to 100ms via
	// New when zero.
	RetryBaseDelay time.Duration
}

// New constructs an AO with the given built-in inventory (already
// lowercased structural keys).
func New(inventory map[string]struct{}, registry Registry, resolver *resolve.NR, store cache.Store) *AO {
	return &AO{
		Inventory:      inventory,
		Registry:       registry,
		Resolver:       resolver,
		Cache:          store,
		RetryBaseDelay: 100 * time.Millisecond,
	}
}

// IsAvailable implements retrotree.Availability.
func (a *AO) IsAvailable(ctx context.Context, name string) bool {
	if a.Cache != nil {
		if v, ok, err := a.Cache.Get(ctx, name); err == nil && ok {
			return v == "true"
		}
	}

	result := a.resolveAvailability(ctx, name)

	if a.Cache != nil {
		val := "false"
		if result {
			val = "true"
		}
		_ = a.Cache.Set(ctx, name, val)
	}
	return result
}

func (a *AO) resolveAvailability(ctx context.Context, name string) bool {
	key := name
	if a.Resolver != nil {
		key = a.Resolver.ToKey(ctx, name)
	}

	if _, ok := a.Inventory[key]; ok {
		return true
	}

	if a.Registry == nil {
		return false
	}

	if ok := a.queryWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return a.Registry.LookupByKey(ctx, key)
	}); ok {
		return true
	}
	return a.queryWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return a.Registry.LookupByName(ctx, name)
	})
}

// queryWithRetry runs call up to maxAttempts times, returning the first
// non-error answer as-is. Transient I/O errors back off exponentially;
// any other error backs off at a constant delay. Exhausting all attempts
// degrades to false — a remote failure is never propagated as an error.
func (a *AO) queryWithRetry(ctx context.Context, call func(context.Context) (bool, error)) bool {
	transient := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.backoff(attempt, transient)):
			case <-ctx.Done():
				return false
			}
		}

		ok, err := call(ctx)
		if err == nil {
			// A confirmed negative is an answer, not a failure; only
			// errors are retried.
			return ok
		}
		transient = isTransient(err)
	}
	return false
}

func (a *AO) backoff(attempt int, transient bool) time.Duration {
	base := a.RetryBaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if !transient {
		return base
	}
	d := base << uint(attempt-1)
	jitter := time.Duration(rand.Int63n(int64(d/4 + 1)))
	return d + jitter
}

func isTransient(err error) bool {
	var te *TransientError
	for e := err; e != nil; {
		if t, ok := e.(*TransientError); ok {
			te = t
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return te != nil
}
