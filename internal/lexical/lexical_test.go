package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripWikiLinks(t *testing.T) {
	out := StripWikiLinks("see [[target]] and [[other-target|display text]] here")
	assert.Equal(t, "see  and display text here", out)
}

func TestUpsertAndSearch(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert("doc1:0", "doc1", "apples and oranges", "Intro", 0))
	require.NoError(t, idx.Upsert("doc1:1", "doc1", "bananas and grapes", "Intro", 1))

	hits, err := idx.Search(context.Background(), "apples", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc1:0", hits[0].ChunkID)
	assert.Equal(t, "doc1", hits[0].DocID)
	assert.Equal(t, "Intro", hits[0].Section)
}

func TestUpsertBatch(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	entries := []UpsertEntry{
		{ChunkID: "doc1:0", DocID: "doc1", Text: "machine learning basics", Section: "Intro", ChunkIndex: 0},
		{ChunkID: "doc1:1", DocID: "doc1", Text: "deep learning networks", Section: "Body", ChunkIndex: 1},
	}
	require.NoError(t, idx.UpsertBatch(entries))

	hits, err := idx.Search(context.Background(), "learning", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestUpsertBatch_Empty(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	assert.NoError(t, idx.UpsertBatch(nil))
}

func TestExistingChunkIDs(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	ids, err := idx.ExistingChunkIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, idx.Upsert("doc1:0", "doc1", "hello world", "Intro", 0))
	ids, err = idx.ExistingChunkIDs(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, "doc1:0")
}

func TestRebuildFrom_SwapsInFreshIndex(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert("doc1:0", "doc1", "old content here", "Intro", 0))

	entries := []UpsertEntry{
		{ChunkID: "doc2:0", DocID: "doc2", Text: "new content here", Section: "Intro", ChunkIndex: 0},
	}
	require.NoError(t, idx.RebuildFrom(entries))

	hits, err := idx.Search(context.Background(), "old", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(context.Background(), "new", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc2:0", hits[0].ChunkID)
}
