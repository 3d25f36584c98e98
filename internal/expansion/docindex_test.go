package expansion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONDocumentIndex_RecordAndCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docindex.json")

	idx, err := NewJSONDocumentIndex(path)
	require.NoError(t, err)

	n, err := idx.Count(context.Background(), "acetone")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = idx.Record(context.Background(), "acetone", []FetchedDoc{{ID: "d1"}, {ID: "d2"}})
	require.NoError(t, err)

	n, err = idx.Count(context.Background(), "acetone")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJSONDocumentIndex_RecordDedupesByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docindex.json")

	idx, err := NewJSONDocumentIndex(path)
	require.NoError(t, err)

	require.NoError(t, idx.Record(context.Background(), "acetone", []FetchedDoc{{ID: "d1"}}))
	require.NoError(t, idx.Record(context.Background(), "acetone", []FetchedDoc{{ID: "d1"}, {ID: "d2"}}))

	n, err := idx.Count(context.Background(), "acetone")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJSONDocumentIndex_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docindex.json")

	idx1, err := NewJSONDocumentIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx1.Record(context.Background(), "acetone", []FetchedDoc{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}}))

	idx2, err := NewJSONDocumentIndex(path)
	require.NoError(t, err)
	n, err := idx2.Count(context.Background(), "acetone")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
