package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0bybr/pkms/internal/chunk"
)

func TestChunkStore_WriteReadRoundTrip(t *testing.T) {
	s := NewChunkStore(t.TempDir())
	chunks := []chunk.Chunk{
		{DocID: "doc1", ChunkHash: "abc123", ChunkIndex: 0, Text: "hello", Tokens: 1, Section: "Intro", Modality: "text"},
		{DocID: "doc1", ChunkHash: "def456", ChunkIndex: 1, Text: "world", Tokens: 1, Section: "Intro", Modality: "text"},
	}

	require.NoError(t, s.Write("doc1", chunks))

	got, err := s.Read("doc1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "abc123", got[0].ChunkHash)
	assert.Equal(t, "doc1", got[0].DocID)
}

func TestChunkStore_ReadMissingDocReturnsNil(t *testing.T) {
	s := NewChunkStore(t.TempDir())
	got, err := s.Read("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChunkStore_WriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	s := NewChunkStore(dir)
	chunks := []chunk.Chunk{{DocID: "doc1", ChunkHash: "abc", ChunkIndex: 0, Text: "x"}}
	require.NoError(t, s.Write("doc1", chunks))

	// Overwriting with new content must fully replace the old file.
	chunks2 := []chunk.Chunk{{DocID: "doc1", ChunkHash: "xyz", ChunkIndex: 0, Text: "y"}}
	require.NoError(t, s.Write("doc1", chunks2))

	got, err := s.Read("doc1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Text)
}

func TestChunkStore_IterAll(t *testing.T) {
	s := NewChunkStore(t.TempDir())
	require.NoError(t, s.Write("doc1", []chunk.Chunk{{DocID: "doc1", ChunkHash: "a", Text: "x"}}))
	require.NoError(t, s.Write("doc2", []chunk.Chunk{{DocID: "doc2", ChunkHash: "b", Text: "y"}}))

	all, failed, err := s.IterAll()
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Len(t, all, 2)
}

func TestAllHashes(t *testing.T) {
	hashes := AllHashes([]chunk.Chunk{{ChunkHash: "a"}, {ChunkHash: "b"}, {ChunkHash: "a"}})
	assert.Len(t, hashes, 2)
	_, ok := hashes["a"]
	assert.True(t, ok)
}
