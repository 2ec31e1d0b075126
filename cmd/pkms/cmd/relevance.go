package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/output"
	"github.com/t0bybr/pkms/internal/pipeline"
	"github.com/t0bybr/pkms/internal/relevance"
)

func newRelevanceCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "relevance",
		Short: "Recompute relevance scores for every document and archive low scorers",
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

			failed, err := vault.RecomputeRelevance(time.Now().UTC(), relevance.NewArchivePolicy(threshold))
			if err != nil {
				return err
			}

			out.Success("relevance scores recomputed")
			for id, ferr := range failed {
				out.Warning(fmt.Sprintf("%s: %v", id, ferr))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", relevance.DefaultArchiveThreshold, "archive documents scoring at or below this threshold")
	return cmd
}
