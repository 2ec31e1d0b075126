package embed

import (
	"time"

	"github.com/t0bybr/pkms/internal/config"
)

// FromConfig builds the configured Embedder, wrapped in the bounded
// embedding-text cache (spec.md §7's 1024-entry LRU).
func FromConfig(cfg config.EmbeddingConfig) Embedder {
	inner := NewOllama(cfg.OllamaURL, cfg.Model, 30*time.Second)
	return NewCached(inner, DefaultCacheSize)
}
