// Package embed wraps the external embedding provider (spec.md §1: "a
// function embed(text) -> vector[f32]") behind a small interface, with
// an LRU-cached decorator for repeated query text.
package embed

import "context"

// DefaultCacheSize is the bound on the embedding-text LRU cache
// (spec.md §7: "caches with bounded size, embedding-text LRU capped at
// 1024 entries").
const DefaultCacheSize = 1024

// Func is the external embedding provider protocol (spec.md §6):
// embed_fn(text, model?) -> vector[f32]. A failed call returns a
// zero-length vector rather than an error where the caller treats
// absence as non-ranking; callers that need to distinguish a transient
// failure from "no vector" use the error return.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embedder generates vector embeddings for text against one model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Available(ctx context.Context) bool
}

// funcEmbedder adapts a bare Func into an Embedder.
type funcEmbedder struct {
	fn    Func
	model string
}

// New wraps fn as an Embedder bound to model.
func New(model string, fn Func) Embedder {
	return &funcEmbedder{fn: fn, model: model}
}

func (e *funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.fn(ctx, text)
}

func (e *funcEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vec, err := e.fn(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *funcEmbedder) ModelName() string { return e.model }

func (e *funcEmbedder) Available(ctx context.Context) bool {
	vec, err := e.fn(ctx, "ping")
	return err == nil && len(vec) > 0
}
