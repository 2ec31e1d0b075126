package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/embed"
	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the lexical and vector indexes from the chunk and embedding stores",
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

			failed, err := vault.RebuildLexical()
			if err != nil {
				return err
			}
			if err := vault.RebuildVector(); err != nil {
				return err
			}

			out.Success("lexical and vector indexes rebuilt")
			for id, ferr := range failed {
				out.Warning(fmt.Sprintf("%s: %v", id, ferr))
			}
			return nil
		},
	}
	return cmd
}
