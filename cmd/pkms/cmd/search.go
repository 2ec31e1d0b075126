package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
	"github.com/t0bybr/pkms/internal/search"
	"github.com/t0bybr/pkms/internal/telemetry"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var mode string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid search over the indexed vault",
		Long: `Combines BM25 (keyword) and semantic (embedding) search with
Reciprocal Rank Fusion for optimal results.

Examples:
  pkms search "project kickoff"
  pkms search "deployment runbook" --mode keyword --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			root, err := findProjectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			vault, err := pipeline.Open(root, cfg, embed.FromConfig(cfg.Embedding), nil)
			if err != nil {
				return err
			}
			defer vault.Close()

			if err := vault.RebuildVector(); err != nil {
				return err
			}

			telStore, err := telemetry.Open(filepath.Join(root, cfg.Paths.Telemetry))
			if err != nil {
				return err
			}
			defer telStore.Close()

			start := time.Now()
			hits, err := vault.Search(cmd.Context(), query, limit, search.Mode(mode))
			latency := time.Since(start)
			if err != nil {
				return err
			}

			if recErr := telStore.RecordQuery(query, mode, len(hits), latency); recErr != nil {
				slog.Default().Warn("failed to record query telemetry", slog.String("error", recErr.Error()))
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}

			out := output.New(cmd.OutOrStdout())
			if len(hits) == 0 {
				out.Status("", fmt.Sprintf("no results for %q", query))
				return nil
			}
			out.Statusf("", "%d results for %q:", len(hits), query)
			out.Newline()
			for i, h := range hits {
				out.Status("", fmt.Sprintf("%d. %s (score: %.4f, source: %s)", i+1, h.ChunkID, h.RRFScore, h.Source))
				if h.Text != "" {
					out.Status("", "   "+firstLine(h.Text))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&mode, "mode", "m", "hybrid", "search mode: hybrid, keyword, or semantic")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output results as JSON")

	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "…"
	}
	return s
}
