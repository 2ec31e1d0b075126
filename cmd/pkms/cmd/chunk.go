package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
)

func newChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <path>",
		Short: "Parse and chunk a single markdown file",
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

			vault, err := pipeline.Open(root, cfg, nil, nil)
			if err != nil {
				return err
			}
			defer vault.Close()

			doc, chunks, err := vault.IngestFile(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("%s: %d chunks", doc.ID, len(chunks)))
			for _, c := range chunks {
				out.Status("", fmt.Sprintf("  [%d] %s (%d tokens) %s", c.ChunkIndex, c.ChunkHash, c.Tokens, c.Section))
			}
			return nil
		},
	}
	return cmd
}
