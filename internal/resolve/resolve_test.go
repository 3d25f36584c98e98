package resolve_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	calls int
	key   string
	err   error
}

func (s *stubResolver) Resolve(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.key, s.err
}

type memStore struct {
	m map[string]string
}

func newMemStore() *memStore { return &memStore{m: map[string]string{}} }

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.m[key]
	return v, ok, nil
}
func (s *memStore) Set(_ context.Context, key, value string) error {
	s.m[key] = value
	return nil
}
func (s *memStore) Close() error { return nil }

func TestToKey_StructuralShapePassesThroughUnchanged(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{key: "should-not-be-used"}
	nr := resolve.New(primary, nil, nil)

	key := nr.ToKey(context.Background(), "CC(=O)OC1=CC=CC=C1C(=O)O")
	assert.Equal(t, "CC(=O)OC1=CC=CC=C1C(=O)O", key)
	assert.Zero(t, primary.calls, "structural input must never hit the resolver chain")
}

func TestToKey_OverlongStructuralLikeStringIsNotShortCircuited(t *testing.T) {
	t.Parallel()

	long := "C" + strings.Repeat("=C", 60) // well over 100 chars, contains '='
	primary := &stubResolver{key: "resolved"}
	nr := resolve.New(primary, nil, nil)

	key := nr.ToKey(context.Background(), long)
	assert.Equal(t, "resolved", key)
	assert.Equal(t, 1, primary.calls)
}

func TestToKey_PlainNameQueriesPrimary(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{key: "key-a"}
	fallback := &stubResolver{key: "key-b"}
	nr := resolve.New(primary, fallback, nil)

	key := nr.ToKey(context.Background(), "aspirin")
	assert.Equal(t, "key-a", key)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestToKey_FallbackOnEmptyPrimaryResult(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{key: ""}
	fallback := &stubResolver{key: "key-b"}
	nr := resolve.New(primary, fallback, nil)

	key := nr.ToKey(context.Background(), "aspirin")
	assert.Equal(t, "key-b", key)
	assert.Equal(t, 1, fallback.calls)
}

func TestToKey_FallbackOnPrimaryError(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{err: errors.New("transport down")}
	fallback := &stubResolver{key: "key-b"}
	nr := resolve.New(primary, fallback, nil)

	key := nr.ToKey(context.Background(), "aspirin")
	assert.Equal(t, "key-b", key)
}

func TestToKey_DegradedModeReturnsOriginalNameWhenBothFail(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{key: ""}
	fallback := &stubResolver{key: ""}
	nr := resolve.New(primary, fallback, nil)

	key := nr.ToKey(context.Background(), "unobtainium")
	assert.Equal(t, "unobtainium", key)
}

func TestToKey_CachesFirstSuccessfulResolution(t *testing.T) {
	t.Parallel()

	primary := &stubResolver{key: "key-a"}
	store := newMemStore()
	nr := resolve.New(primary, nil, store)

	ctx := context.Background()
	first := nr.ToKey(ctx, "aspirin")
	second := nr.ToKey(ctx, "aspirin")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, primary.calls, "second call must be served from cache, not the resolver chain")
}

func TestToKey_NoResolversDegradesToOriginalName(t *testing.T) {
	t.Parallel()

	nr := resolve.New(nil, nil, nil)
	key := nr.ToKey(context.Background(), "aspirin")
	assert.Equal(t, "aspirin", key)
	require.NotNil(t, nr)
}
