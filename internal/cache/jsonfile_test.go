package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileStore_MissOnFreshFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := cache.NewJSONFileStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONFileStore_SetThenGet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := cache.NewJSONFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "aspirin", "CC(=O)OC1=CC=CC=C1C(=O)O"))

	v, ok, err := s.Get(context.Background(), "aspirin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CC(=O)OC1=CC=CC=C1C(=O)O", v)
}

func TestJSONFileStore_PersistsAcrossReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	s1, err := cache.NewJSONFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(context.Background(), "k", "v"))

	s2, err := cache.NewJSONFileStore(path)
	require.NoError(t, err)
	v, ok, err := s2.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestJSONFileStore_OverwriteLastWriteWins(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := cache.NewJSONFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "first"))
	require.NoError(t, s.Set(ctx, "k", "second"))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}
