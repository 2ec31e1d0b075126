// Package search implements the hybrid search engine: keyword and
// semantic retrieval fused by Reciprocal Rank Fusion with per-document
// grouping and mode-based degradation (spec.md §4.6).
package search

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/lexical"
	"github.com/t0bybr/pkms/internal/vector"
)

// docIDOf extracts doc_id from a chunk_id of the form "{doc_id}:{chunk_hash}".
func docIDOf(chunkID string) string {
	if i := strings.LastIndex(chunkID, ":"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}

// Mode selects which retrieval stages run.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
)

// Source records which stage(s) produced a Hit.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceSemantic Source = "semantic"
	SourceHybrid   Source = "hybrid"
)

// Hit is one ranked result (spec.md §4.6).
type Hit struct {
	ChunkID    string
	DocID      string
	RRFScore   float64
	BM25       *float64
	Semantic   *float32
	Source     Source
	Section    string
	ChunkIndex int
	Text       string
}

// Engine runs hybrid search over a lexical index and a vector index.
type Engine struct {
	lex      *lexical.Index
	vec      *vector.Index
	embedder embed.Embedder
	cfg      config.SearchConfig
	// chunkText resolves a chunk_id to its text for keyword/hybrid hits
	// (vector-only search carries no text per spec.md §4.6).
	chunkText func(chunkID string) string
}

// New constructs an Engine. vec and embedder may be nil, in which case
// semantic search is unavailable and mode=hybrid degrades to keyword.
func New(lex *lexical.Index, vec *vector.Index, embedder embed.Embedder, cfg config.SearchConfig, chunkText func(string) string) *Engine {
	return &Engine{lex: lex, vec: vec, embedder: embedder, cfg: cfg, chunkText: chunkText}
}

// Search runs the configured mode and returns up to k grouped, fused
// hits (spec.md §4.6).
func (e *Engine) Search(ctx context.Context, query string, k int, mode Mode) ([]Hit, error) {
	switch mode {
	case ModeKeyword:
		hits, err := e.keywordOnly(ctx, query, k)
		return hits, err
	case ModeSemantic:
		hits, err := e.semanticOnly(ctx, query, k)
		return hits, err
	default:
		return e.hybrid(ctx, query, k)
	}
}

func (e *Engine) keywordOnly(ctx context.Context, query string, k int) ([]Hit, error) {
	lexHits, err := e.lex.Search(ctx, query, e.keywordCap())
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(lexHits))
	for _, h := range lexHits {
		score := h.Score
		hits = append(hits, Hit{
			ChunkID:    h.ChunkID,
			DocID:      h.DocID,
			BM25:       &score,
			Source:     SourceKeyword,
			Section:    h.Section,
			ChunkIndex: h.ChunkIndex,
			Text:       e.text(h.ChunkID),
		})
	}
	return group(hits, e.groupLimit(), k), nil
}

func (e *Engine) semanticOnly(ctx context.Context, query string, k int) ([]Hit, error) {
	if e.vec == nil || e.embedder == nil {
		return nil, nil
	}
	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil || len(qvec) == 0 {
		return nil, err
	}
	vecHits := e.vec.Search(qvec, e.semanticCap())
	hits := make([]Hit, 0, len(vecHits))
	for _, h := range vecHits {
		score := h.Score
		hits = append(hits, Hit{
			ChunkID:  h.ChunkID,
			DocID:    docIDOf(h.ChunkID),
			Semantic: &score,
			Source:   SourceSemantic,
		})
	}
	return group(hits, e.groupLimit(), k), nil
}

// hybrid runs lexical and semantic search concurrently, fuses by RRF,
// and degrades to keyword-only if the embedding provider is down or
// returns nothing — never to semantic-only (spec.md §4.6, §5).
func (e *Engine) hybrid(ctx context.Context, query string, k int) ([]Hit, error) {
	var lexHits []lexical.Hit
	var vecHits []vector.Hit
	var semanticAvailable bool

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := e.lex.Search(gctx, query, e.keywordCap())
		if err != nil {
			return err
		}
		lexHits = hits
		return nil
	})

	g.Go(func() error {
		if e.vec == nil || e.embedder == nil {
			return nil
		}
		qvec, err := e.embedder.Embed(gctx, query)
		if err != nil || len(qvec) == 0 {
			return nil
		}
		vecHits = e.vec.Search(qvec, e.semanticCap())
		semanticAvailable = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !semanticAvailable {
		hits := make([]Hit, 0, len(lexHits))
		for _, h := range lexHits {
			score := h.Score
			hits = append(hits, Hit{
				ChunkID: h.ChunkID, DocID: h.DocID, BM25: &score,
				Source: SourceKeyword, Section: h.Section, ChunkIndex: h.ChunkIndex,
				Text: e.text(h.ChunkID),
			})
		}
		return group(hits, e.groupLimit(), k), nil
	}

	fused := e.fuse(lexHits, vecHits)
	return group(fused, e.groupLimit(), k), nil
}

// fuse applies Reciprocal Rank Fusion: each item at 1-based rank r in a
// list contributes 1/(rrf_k+r) (spec.md §4.6 step 3). Ties break by
// chunk_id ascending (spec.md §5).
func (e *Engine) fuse(lexHits []lexical.Hit, vecHits []vector.Hit) []Hit {
	type acc struct {
		hit      Hit
		score    float64
		inLex    bool
		inVec    bool
	}
	rrfK := float64(e.rrfK())

	byID := make(map[string]*acc)
	order := make([]string, 0, len(lexHits)+len(vecHits))

	for rank, h := range lexHits {
		score := h.Score
		contrib := 1.0 / (rrfK + float64(rank+1))
		a, ok := byID[h.ChunkID]
		if !ok {
			a = &acc{hit: Hit{
				ChunkID: h.ChunkID, DocID: h.DocID, BM25: &score,
				Section: h.Section, ChunkIndex: h.ChunkIndex, Text: e.text(h.ChunkID),
			}}
			byID[h.ChunkID] = a
			order = append(order, h.ChunkID)
		}
		a.score += contrib
		a.inLex = true
	}

	for rank, h := range vecHits {
		score := h.Score
		contrib := 1.0 / (rrfK + float64(rank+1))
		a, ok := byID[h.ChunkID]
		if !ok {
			a = &acc{hit: Hit{ChunkID: h.ChunkID, DocID: docIDOf(h.ChunkID), Semantic: &score}}
			byID[h.ChunkID] = a
			order = append(order, h.ChunkID)
		} else {
			a.hit.Semantic = &score
		}
		a.score += contrib
		a.inVec = true
	}

	out := make([]Hit, 0, len(order))
	for _, id := range order {
		a := byID[id]
		h := a.hit
		h.RRFScore = a.score
		if a.inLex && a.inVec {
			h.Source = SourceHybrid
		} else if a.inLex {
			h.Source = SourceKeyword
		} else {
			h.Source = SourceSemantic
		}
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// group walks a sorted hit list, admitting at most groupLimit hits per
// document, then truncates to k (spec.md §4.6 step 5, P6).
func group(hits []Hit, groupLimit, k int) []Hit {
	counts := make(map[string]int)
	out := make([]Hit, 0, k)
	for _, h := range hits {
		if groupLimit > 0 && counts[h.DocID] >= groupLimit {
			continue
		}
		counts[h.DocID]++
		out = append(out, h)
		if k > 0 && len(out) >= k {
			break
		}
	}
	return out
}

func (e *Engine) text(chunkID string) string {
	if e.chunkText == nil {
		return ""
	}
	return e.chunkText(chunkID)
}

func (e *Engine) keywordCap() int {
	if e.cfg.MaxKeywordHits > 0 {
		return e.cfg.MaxKeywordHits
	}
	return 50
}

func (e *Engine) semanticCap() int {
	if e.cfg.MaxSemanticHits > 0 {
		return e.cfg.MaxSemanticHits
	}
	return 50
}

func (e *Engine) rrfK() int {
	if e.cfg.RRFConstant > 0 {
		return e.cfg.RRFConstant
	}
	return 60
}

func (e *Engine) groupLimit() int {
	if e.cfg.GroupLimit > 0 {
		return e.cfg.GroupLimit
	}
	return 3
}
