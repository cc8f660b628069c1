// Package cmd implements the sabia command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/log"
)

// NewRootCmd assembles the command tree.
func NewRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "sabia",
		Short: "Sabiá - assistente de aprendizado adaptativo",
		Long: `Sabiá answers programming questions from your own indexed learning
materials, adapting each answer to the inferred knowledge level and the
preferred format (text, video script or exercises).

Point it at a resources directory, run "sabia index", then ask away.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newAskCmd(cfg, logger),
		newIndexCmd(cfg, logger),
		newStatusCmd(cfg),
		newHistoryCmd(cfg),
		newVersionCmd(cfg),
	)
	return root
}

// Execute is the entry point called from main.
func Execute() error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	return NewRootCmd(cfg, logger).Execute()
}

// newLogger builds the process logger. DEBUG enables debug level,
// SABIA_LOG_JSON switches to JSON output for log shippers.
func newLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("SABIA_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
