// Package cmd provides the CLI commands for pkms.
package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/logging"
	"github.com/t0bybr/pkms/pkg/version"
)

var (
	debugMode  bool
	rootFlag   string
	configFlag string
)

// NewRootCmd creates the root command for the pkms CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pkms",
		Short:   "Local-first personal knowledge management core",
		Long:    `pkms chunks, embeds, indexes, links and searches a markdown vault with hybrid BM25 + semantic retrieval.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("pkms version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootFlag, "root", "", "vault project root (default: nearest ancestor containing .pkms/)")
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config.yaml (default: <root>/.pkms/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug-level logging to stderr")
	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		cfg, err := newLogger()
		if err != nil {
			return err
		}
		logger, _, err := logging.New(*cfg)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	}

	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRelevanceCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and returns its exit code: 0 on
// success, 2 for an error that wraps ErrUsage, and 1 for any other
// error. Cobra's own argument and flag errors do not wrap ErrUsage and
// exit with 1; interrupts are not handled and no path returns 130.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// ErrUsage marks an error as a usage error (exit code 2) rather than a
// recoverable runtime error (exit code 1).
var ErrUsage = errors.New("usage error")

func newLogger() (*logging.Config, error) {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
	}
	return &cfg, nil
}

// findProjectRoot returns rootFlag as an absolute path when it is set.
// Otherwise it walks up from the working directory looking for a .pkms
// directory, falling back to the working directory itself if none is
// found.
func findProjectRoot() (string, error) {
	if rootFlag != "" {
		abs, err := filepath.Abs(rootFlag)
		return abs, err
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	cur := dir
	for {
		if _, statErr := os.Stat(filepath.Join(cur, ".pkms")); statErr == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir, nil
		}
		cur = parent
	}
}

func loadConfig(root string) (config.Config, error) {
	path := configFlag
	if path == "" {
		path = filepath.Join(root, ".pkms", "config.yaml")
	}
	return config.Load(path)
}
