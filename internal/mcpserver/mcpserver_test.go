package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/lexical"
	"github.com/t0bybr/pkms/internal/search"
	"github.com/t0bybr/pkms/internal/telemetry"
)

func newTestEngine(t *testing.T) *search.Engine {
	t.Helper()
	lex, err := lexical.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { lex.Close() })
	require.NoError(t, lex.Upsert("doc1:0", "doc1", "apples and oranges", "Intro", 0))

	cfg := config.SearchConfig{MaxKeywordHits: 50, MaxSemanticHits: 50, RRFConstant: 60, GroupLimit: 3}
	return search.New(lex, nil, nil, cfg, func(id string) string { return "" })
}

func TestNew_RejectsNilEngine(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}

func TestNew_AcceptsNilLogger(t *testing.T) {
	srv, err := New(newTestEngine(t), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	srv, err := New(newTestEngine(t), nil, nil)
	require.NoError(t, err)

	_, _, err = srv.handleSearch(context.Background(), nil, SearchInput{})
	assert.Error(t, err)
}

func TestHandleSearch_ReturnsRankedResults(t *testing.T) {
	srv, err := New(newTestEngine(t), nil, nil)
	require.NoError(t, err)

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "apples"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "doc1:0", out.Results[0].ChunkID)
	assert.Equal(t, "doc1", out.Results[0].DocID)
}

func TestHandleSearch_DefaultsModeAndLimit(t *testing.T) {
	srv, err := New(newTestEngine(t), nil, nil)
	require.NoError(t, err)

	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "apples", Limit: -1})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Results)
}

func TestHandleSearch_RecordsTelemetry(t *testing.T) {
	dir := t.TempDir()
	telem, err := telemetry.Open(filepath.Join(dir, "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { telem.Close() })

	srv, err := New(newTestEngine(t), telem, nil)
	require.NoError(t, err)

	_, _, err = srv.handleSearch(context.Background(), nil, SearchInput{Query: "apples"})
	require.NoError(t, err)

	hist, err := telem.LatencyHistogram()
	require.NoError(t, err)
	var total int64
	for _, n := range hist {
		total += n
	}
	assert.Equal(t, int64(1), total)
}
