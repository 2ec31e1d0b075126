package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Ingest the vault, embed new chunks, and rebuild all indexes",
		Long: `Runs the full pipeline over every markdown file under the vault root:
parses frontmatter, chunks every document, embeds new chunks,
rebuilds the lexical index, the link graph, and relevance scores.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

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

			sum, err := vault.UpdateAll(cmd.Context())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("ingested %d documents, embedded %d chunks", sum.Ingested, sum.Embedded))
			for _, f := range sum.Failed {
				out.Warning(f)
			}
			return nil
		},
	}
	return cmd
}
