// Package config loads the pkms configuration surface described in
// spec.md §6. Resolution order for any value is: environment variable
// (if declared) → configuration file → built-in default.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete pkms configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Embedding EmbeddingConfig `yaml:"embeddings" json:"embeddings"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Relevance RelevanceConfig `yaml:"relevance" json:"relevance"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
}

// ChunkingConfig configures §4.1.
type ChunkingConfig struct {
	ChunkSize      int `yaml:"chunk_size" json:"chunk_size"`
	OverlapTokens  int `yaml:"overlap_tokens" json:"overlap_tokens"`
	MinChunkTokens int `yaml:"min_chunk_tokens" json:"min_chunk_tokens"`
}

// EmbeddingConfig configures the embedding provider (§6).
type EmbeddingConfig struct {
	Model     string `yaml:"model" json:"model"`
	OllamaURL string `yaml:"ollama_url" json:"ollama_url"`
}

// SearchConfig configures §4.6.
type SearchConfig struct {
	MaxKeywordHits  int     `yaml:"max_keyword_hits" json:"max_keyword_hits"`
	MaxSemanticHits int     `yaml:"max_semantic_hits" json:"max_semantic_hits"`
	RRFConstant     int     `yaml:"rrf_k" json:"rrf_k"`
	GroupLimit      int     `yaml:"group_limit" json:"group_limit"`
	BM25Weight      float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight" json:"semantic_weight"`
	MinSimilarity   float64 `yaml:"min_similarity" json:"min_similarity"`
	MinRRFScore     float64 `yaml:"min_rrf_score" json:"min_rrf_score"`
}

// RelevanceConfig configures §4.7.
type RelevanceConfig struct {
	WeightRecency       float64 `yaml:"weight_recency" json:"weight_recency"`
	WeightLinks         float64 `yaml:"weight_links" json:"weight_links"`
	WeightQuality       float64 `yaml:"weight_quality" json:"weight_quality"`
	WeightUser          float64 `yaml:"weight_user" json:"weight_user"`
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days" json:"recency_half_life_days"`
}

// PathsConfig configures directory roots (§6).
type PathsConfig struct {
	Vault      string `yaml:"vault" json:"vault"`
	Inbox      string `yaml:"inbox" json:"inbox"`
	Metadata   string `yaml:"metadata" json:"metadata"`
	Chunks     string `yaml:"chunks" json:"chunks"`
	Embeddings string `yaml:"embeddings" json:"embeddings"`
	Index      string `yaml:"index" json:"index"`
	Telemetry  string `yaml:"telemetry" json:"telemetry"`
}

// Default returns the built-in defaults for every configurable value.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			ChunkSize:      512,
			OverlapTokens:  64,
			MinChunkTokens: 20,
		},
		Embedding: EmbeddingConfig{
			Model:     "nomic-embed-text",
			OllamaURL: "http://localhost:11434",
		},
		Search: SearchConfig{
			MaxKeywordHits:  50,
			MaxSemanticHits: 50,
			RRFConstant:     60,
			GroupLimit:      3,
			BM25Weight:      0.5,
			SemanticWeight:  0.5,
			MinSimilarity:   0,
			MinRRFScore:     0,
		},
		Relevance: RelevanceConfig{
			WeightRecency:       0.4,
			WeightLinks:         0.3,
			WeightQuality:       0.2,
			WeightUser:          0.1,
			RecencyHalfLifeDays: 90,
		},
		Paths: PathsConfig{
			Vault:      "vault",
			Inbox:      "inbox",
			Metadata:   "data/metadata",
			Chunks:     "data/chunks",
			Embeddings: "data/embeddings",
			Index:      "data/index",
			Telemetry:  "data/telemetry.db",
		},
	}
}

// Load reads cfg from path (if non-empty) layered over defaults, then
// applies environment variable overrides, per §6's resolution order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	return applyEnv(cfg), nil
}

// envPrefix is the environment variable prefix for all overrides.
const envPrefix = "PKMS_"

func applyEnv(cfg Config) Config {
	envInt(envPrefix+"CHUNK_SIZE", &cfg.Chunking.ChunkSize)
	envInt(envPrefix+"OVERLAP_TOKENS", &cfg.Chunking.OverlapTokens)
	envInt(envPrefix+"MIN_CHUNK_TOKENS", &cfg.Chunking.MinChunkTokens)

	envString(envPrefix+"EMBED_MODEL", &cfg.Embedding.Model)
	envString(envPrefix+"OLLAMA_URL", &cfg.Embedding.OllamaURL)

	envInt(envPrefix+"MAX_KEYWORD_HITS", &cfg.Search.MaxKeywordHits)
	envInt(envPrefix+"MAX_SEMANTIC_HITS", &cfg.Search.MaxSemanticHits)
	envInt(envPrefix+"RRF_K", &cfg.Search.RRFConstant)
	envInt(envPrefix+"GROUP_LIMIT", &cfg.Search.GroupLimit)
	envFloat(envPrefix+"BM25_WEIGHT", &cfg.Search.BM25Weight)
	envFloat(envPrefix+"SEMANTIC_WEIGHT", &cfg.Search.SemanticWeight)
	envFloat(envPrefix+"MIN_SIMILARITY", &cfg.Search.MinSimilarity)
	envFloat(envPrefix+"MIN_RRF_SCORE", &cfg.Search.MinRRFScore)

	envFloat(envPrefix+"WEIGHT_RECENCY", &cfg.Relevance.WeightRecency)
	envFloat(envPrefix+"WEIGHT_LINKS", &cfg.Relevance.WeightLinks)
	envFloat(envPrefix+"WEIGHT_QUALITY", &cfg.Relevance.WeightQuality)
	envFloat(envPrefix+"WEIGHT_USER", &cfg.Relevance.WeightUser)
	envFloat(envPrefix+"RECENCY_HALF_LIFE_DAYS", &cfg.Relevance.RecencyHalfLifeDays)

	envString(envPrefix+"VAULT", &cfg.Paths.Vault)
	envString(envPrefix+"INBOX", &cfg.Paths.Inbox)
	envString(envPrefix+"METADATA", &cfg.Paths.Metadata)
	envString(envPrefix+"CHUNKS", &cfg.Paths.Chunks)
	envString(envPrefix+"EMBEDDINGS", &cfg.Paths.Embeddings)
	envString(envPrefix+"INDEX", &cfg.Paths.Index)
	envString(envPrefix+"TELEMETRY", &cfg.Paths.Telemetry)

	return cfg
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
