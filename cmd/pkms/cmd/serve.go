package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/mcpserver"
	"github.com/t0bybr/pkms/internal/pipeline"
	"github.com/t0bybr/pkms/internal/telemetry"
	"github.com/t0bybr/pkms/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server exposing hybrid search over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := findProjectRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			vault, err := pipeline.Open(root, cfg, embed.FromConfig(cfg.Embedding), slog.Default())
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

			w, err := watcher.New(filepath.Join(root, cfg.Paths.Vault))
			if err != nil {
				return err
			}
			defer w.Close()

			go watchVault(cmd.Context(), vault, w, slog.Default())

			srv, err := mcpserver.New(vault.Engine(), telStore, slog.Default())
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
	return cmd
}

// watchVault re-ingests and re-indexes the vault whenever watcher reports
// a markdown file change, keeping the running search engine current.
func watchVault(ctx context.Context, vault *pipeline.Vault, w *watcher.Watcher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if ev.Operation == watcher.OpRemove {
				continue
			}

			doc, _, err := vault.IngestFile(ev.Path)
			if err != nil {
				logger.Warn("watcher: failed to ingest changed file", slog.String("path", ev.Path), slog.String("error", err.Error()))
				continue
			}

			if vault.Embedder != nil {
				if _, err := vault.EmbedDocument(ctx, doc.ID); err != nil {
					logger.Warn("watcher: failed to embed changed file", slog.String("path", ev.Path), slog.String("error", err.Error()))
				}
			}

			if _, err := vault.RebuildLexical(); err != nil {
				logger.Warn("watcher: failed to rebuild lexical index", slog.String("error", err.Error()))
			}
			if err := vault.RebuildVector(); err != nil {
				logger.Warn("watcher: failed to rebuild vector index", slog.String("error", err.Error()))
			}
			if _, err := vault.RebuildLinks(); err != nil {
				logger.Warn("watcher: failed to rebuild link graph", slog.String("error", err.Error()))
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
