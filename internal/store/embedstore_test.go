package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedStore_WriteReadRoundTrip(t *testing.T) {
	s := NewEmbedStore(t.TempDir())
	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, s.Write("modelA", "hash1", vec))

	got, err := s.Read("modelA", "hash1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.InDelta(t, 0.1, got[0], 1e-6)
}

func TestEmbedStore_Has(t *testing.T) {
	s := NewEmbedStore(t.TempDir())
	assert.False(t, s.Has("modelA", "hash1"))
	require.NoError(t, s.Write("modelA", "hash1", []float32{1, 2}))
	assert.True(t, s.Has("modelA", "hash1"))
}

func TestEmbedStore_MissingHashes(t *testing.T) {
	s := NewEmbedStore(t.TempDir())
	require.NoError(t, s.Write("modelA", "hash1", []float32{1, 2}))

	missing := s.MissingHashes("modelA", []string{"hash1", "hash2", "hash3"})
	assert.ElementsMatch(t, []string{"hash2", "hash3"}, missing)
}

func TestEmbedStore_LoadAllNormalized(t *testing.T) {
	s := NewEmbedStore(t.TempDir())
	require.NoError(t, s.Write("modelA", "hash1", []float32{3, 4}))
	require.NoError(t, s.Write("modelA", "hash2", []float32{0, 5}))

	hashes, vecs, err := s.LoadAllNormalized("modelA")
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.Len(t, vecs, 2)

	for _, v := range vecs {
		var sumSq float64
		for _, x := range v {
			sumSq += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sumSq, 1e-5)
	}
}

func TestEmbedStore_DimensionMismatchFails(t *testing.T) {
	s := NewEmbedStore(t.TempDir())
	require.NoError(t, s.Write("modelA", "hash1", []float32{1, 2, 3}))
	require.NoError(t, s.Write("modelA", "hash2", []float32{1, 2}))

	_, _, err := s.LoadAllNormalized("modelA")
	assert.Error(t, err)
}
