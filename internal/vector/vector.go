// Package vector implements the flat, L2-normalized, in-memory
// dense-vector index (spec.md §4.5). Approximate nearest-neighbor
// indexing is explicitly out of scope (spec.md §1 Non-goals) — exact
// cosine similarity against every row keeps ranking deterministic at
// target corpus sizes.
package vector

import (
	"math"
	"sort"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

// Hit is one semantic search result.
type Hit struct {
	ChunkHash string
	ChunkID   string
	Score     float32
}

// Index holds row-normalized vectors keyed by chunk hash, plus the
// chunk_hash -> chunk_id map reconstructed from the chunk store
// (spec.md §4.5).
type Index struct {
	hashes    []string
	rows      [][]float32
	chunkID   map[string]string
	dimension int
}

// Build constructs an Index from already-normalized (hash, vector)
// pairs and a hash->chunk_id lookup. All vectors must share one
// dimension; a mismatch is a fatal ERR_402 error (spec.md §4.3/§4.5).
func Build(hashes []string, rows [][]float32, chunkID map[string]string) (*Index, error) {
	idx := &Index{
		hashes:  hashes,
		rows:    rows,
		chunkID: chunkID,
	}
	for _, row := range rows {
		if idx.dimension == 0 {
			idx.dimension = len(row)
			continue
		}
		if len(row) != idx.dimension {
			return nil, pkmserr.New(pkmserr.ErrCodeVectorDimMismatch, "vector dimension mismatch", nil)
		}
	}
	return idx, nil
}

// Len returns the number of rows in the index.
func (idx *Index) Len() int { return len(idx.rows) }

// Search computes s = M . (q / ||q||) and returns the top-limit hits,
// ties broken by ascending row index for determinism (spec.md §4.5).
// query is normalized internally; callers may pass a raw vector.
func (idx *Index) Search(query []float32, limit int) []Hit {
	if len(query) == 0 || len(idx.rows) == 0 {
		return nil
	}

	normQuery := l2Normalize(query)

	type scored struct {
		row   int
		score float32
	}
	scores := make([]scored, len(idx.rows))
	for i, row := range idx.rows {
		scores[i] = scored{row: i, score: dot(row, normQuery)}
	}

	sort.Slice(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return scores[a].row < scores[b].row
	})

	if limit > 0 && limit < len(scores) {
		scores = scores[:limit]
	}

	hits := make([]Hit, len(scores))
	for i, s := range scores {
		hash := idx.hashes[s.row]
		hits[i] = Hit{
			ChunkHash: hash,
			ChunkID:   idx.chunkID[hash],
			Score:     s.score,
		}
	}
	return hits
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// l2Normalize normalizes v to unit length, preserving a zero vector
// as-is (its cosine with anything is 0 and it never ranks).
func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
