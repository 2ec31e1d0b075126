package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/lexical"
	"github.com/t0bybr/pkms/internal/vector"
)

type fakeEmbedder struct {
	vec       []float32
	err       error
	available bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeEmbedder) ModelName() string       { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return f.available }

func testCfg() config.SearchConfig {
	return config.SearchConfig{MaxKeywordHits: 50, MaxSemanticHits: 50, RRFConstant: 60, GroupLimit: 3}
}

func TestGroup_LimitsPerDocumentAndTotal(t *testing.T) {
	hits := []Hit{
		{ChunkID: "d1:0", DocID: "d1"},
		{ChunkID: "d1:1", DocID: "d1"},
		{ChunkID: "d1:2", DocID: "d1"},
		{ChunkID: "d1:3", DocID: "d1"},
		{ChunkID: "d2:0", DocID: "d2"},
	}
	out := group(hits, 3, 10)
	require.Len(t, out, 4)
	d1Count := 0
	for _, h := range out {
		if h.DocID == "d1" {
			d1Count++
		}
	}
	assert.Equal(t, 3, d1Count)
}

func TestGroup_TruncatesToK(t *testing.T) {
	hits := []Hit{
		{ChunkID: "d1:0", DocID: "d1"},
		{ChunkID: "d2:0", DocID: "d2"},
		{ChunkID: "d3:0", DocID: "d3"},
	}
	out := group(hits, 0, 2)
	assert.Len(t, out, 2)
}

func TestFuse_CombinesAndRanksBothSources(t *testing.T) {
	e := &Engine{cfg: testCfg()}

	lexHits := []lexical.Hit{
		{ChunkID: "d1:0", DocID: "d1", Score: 2.0},
		{ChunkID: "d2:0", DocID: "d2", Score: 1.0},
	}
	vecHits := []vector.Hit{
		{ChunkID: "d1:0", ChunkHash: "h1", Score: 0.9},
		{ChunkID: "d3:0", ChunkHash: "h2", Score: 0.5},
	}

	out := e.fuse(lexHits, vecHits)
	require.Len(t, out, 3)

	// d1:0 appears in both lists at rank 1, so it should rank first.
	assert.Equal(t, "d1:0", out[0].ChunkID)
	assert.Equal(t, SourceHybrid, out[0].Source)
}

func TestFuse_TiesBreakByChunkIDAscending(t *testing.T) {
	e := &Engine{cfg: testCfg()}
	// Each chunk is rank 1 in one list only, so both fuse to 1/(k+1).
	lexHits := []lexical.Hit{
		{ChunkID: "z:0", DocID: "z", Score: 1.0},
	}
	vecHits := []vector.Hit{
		{ChunkID: "a:0", Score: 1.0},
	}
	out := e.fuse(lexHits, vecHits)
	require.Len(t, out, 2)
	assert.Equal(t, "a:0", out[0].ChunkID)
	assert.Equal(t, "z:0", out[1].ChunkID)
}

func TestSearch_KeywordMode(t *testing.T) {
	lex, err := lexical.Open("")
	require.NoError(t, err)
	defer lex.Close()
	require.NoError(t, lex.Upsert("d1:0", "d1", "apples and oranges", "Intro", 0))

	e := New(lex, nil, nil, testCfg(), func(id string) string { return "" })
	hits, err := e.Search(context.Background(), "apples", 10, ModeKeyword)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, SourceKeyword, hits[0].Source)
}

func TestSearch_HybridDegradesToKeywordWithoutEmbedder(t *testing.T) {
	lex, err := lexical.Open("")
	require.NoError(t, err)
	defer lex.Close()
	require.NoError(t, lex.Upsert("d1:0", "d1", "apples and oranges", "Intro", 0))

	e := New(lex, nil, nil, testCfg(), func(id string) string { return "" })
	hits, err := e.Search(context.Background(), "apples", 10, ModeHybrid)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, SourceKeyword, hits[0].Source)
}

func TestSearch_HybridFusesWhenEmbedderAvailable(t *testing.T) {
	lex, err := lexical.Open("")
	require.NoError(t, err)
	defer lex.Close()
	require.NoError(t, lex.Upsert("d1:0", "d1", "apples and oranges", "Intro", 0))
	require.NoError(t, lex.Upsert("d2:0", "d2", "completely unrelated text", "Intro", 0))

	vecIdx, err := vector.Build(
		[]string{"h1", "h2"},
		[][]float32{{1, 0}, {0, 1}},
		map[string]string{"h1": "d1:0", "h2": "d2:0"},
	)
	require.NoError(t, err)

	emb := &fakeEmbedder{vec: []float32{1, 0}, available: true}
	e := New(lex, vecIdx, emb, testCfg(), func(id string) string { return "" })

	hits, err := e.Search(context.Background(), "apples", 10, ModeHybrid)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d1:0", hits[0].ChunkID)
}

func TestDocIDOf(t *testing.T) {
	assert.Equal(t, "doc1", docIDOf("doc1:abcdef"))
	assert.Equal(t, "doc1", docIDOf("doc1"))
}
