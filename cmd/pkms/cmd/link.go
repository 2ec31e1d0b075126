package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Rebuild the bidirectional wiki-link graph over every document",
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

			vault, err := pipeline.Open(root, cfg, nil, nil)
			if err != nil {
				return err
			}
			defer vault.Close()

			failed, err := vault.RebuildLinks()
			if err != nil {
				return err
			}

			out.Success("link graph rebuilt")
			for id, ferr := range failed {
				out.Warning(fmt.Sprintf("%s: %v", id, ferr))
			}
			return nil
		},
	}
	return cmd
}
