// Package mcpserver exposes the hybrid search engine to AI clients over
// the Model Context Protocol (SPEC_FULL.md E4).
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/t0bybr/pkms/internal/search"
	"github.com/t0bybr/pkms/internal/telemetry"
	"github.com/t0bybr/pkms/pkg/version"
)

// Server bridges an MCP client to the search.Engine.
type Server struct {
	mcp    *mcp.Server
	engine *search.Engine
	telem  *telemetry.Store
	logger *slog.Logger
}

// SearchInput is the search tool's input schema.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Mode  string `json:"mode,omitempty" jsonschema:"hybrid, keyword, or semantic (default hybrid)"`
}

// SearchOutput is the search tool's output schema.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one ranked chunk hit returned to the client.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocID      string  `json:"doc_id"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	Section    string  `json:"section,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text,omitempty"`
}

// New constructs a Server wrapping engine. telem is optional; when nil,
// query telemetry is not recorded.
func New(engine *search.Engine, telem *telemetry.Store, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: engine, telem: telem, logger: logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "pkms",
		Version: version.Version,
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword+semantic search over the vault's markdown chunks, fused by reciprocal rank fusion.",
	}, s.handleSearch)

	return s, nil
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	mode := search.Mode(input.Mode)
	if mode == "" {
		mode = search.ModeHybrid
	}

	start := time.Now()
	hits, err := s.engine.Search(ctx, input.Query, limit, mode)
	latency := time.Since(start)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	if s.telem != nil {
		if recErr := s.telem.RecordQuery(input.Query, string(mode), len(hits), latency); recErr != nil {
			s.logger.Warn("failed to record query telemetry", slog.String("error", recErr.Error()))
		}
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			ChunkID:    h.ChunkID,
			DocID:      h.DocID,
			Score:      h.RRFScore,
			Source:     string(h.Source),
			Section:    h.Section,
			ChunkIndex: h.ChunkIndex,
			Text:       h.Text,
		})
	}
	return nil, SearchOutput{Results: results}, nil
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
	}
	return err
}
