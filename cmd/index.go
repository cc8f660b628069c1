package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/app"
	"github.com/sabia-ai/sabia/internal/config"
)

func newIndexCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the resources directory into the knowledge store",
		Long: `Scans the resources directory and rebuilds the content collection when
files changed since the last run. Unchanged resources are a no-op unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.Setup(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initializing application: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("closing application", "error", err)
				}
			}()

			if a.Reindexer == nil {
				return app.ErrStoreUnavailable
			}

			result, err := a.Reindexer.Run(ctx, force)
			if err != nil {
				return fmt.Errorf("indexing resources: %w", err)
			}

			out := cmd.OutOrStdout()
			if !result.Reindexed {
				fmt.Fprintln(out, "Index is up to date.")
				return nil
			}
			fmt.Fprintf(out, "Indexed %d documents from %s", result.Documents, cfg.ResourcesDir)
			if result.Skipped > 0 {
				fmt.Fprintf(out, " (%d files skipped)", result.Skipped)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reindex even when no resource changed")
	return cmd
}
