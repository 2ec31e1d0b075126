package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
)

func newEmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed <doc-id>",
		Short: "Embed every chunk of a document missing a vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			n, err := vault.EmbedDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("%s: %d chunks embedded", args[0], n))
			return nil
		},
	}
	return cmd
}
