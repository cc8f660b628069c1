package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/history"
)

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	var (
		userID string
		limit  int
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded interactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if stats {
				s, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Interactions: %d\n", s.TotalInteractions)
				fmt.Fprintf(out, "Users: %d\n", s.UniqueUsers)
				if s.MostCommonFormat != "" {
					fmt.Fprintf(out, "Most requested format: %s\n", s.MostCommonFormat)
				}
				return nil
			}

			interactions, err := store.List(ctx, userID, limit)
			if err != nil {
				return err
			}
			if len(interactions) == 0 {
				fmt.Fprintln(out, "No interactions recorded.")
				return nil
			}
			for _, it := range interactions {
				fmt.Fprintf(out, "[%d] %s %s (%s)\n    %s\n",
					it.ID, it.Timestamp.Format("2006-01-02 15:04"), it.UserID, it.PreferredFormat, it.Question)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by user identifier")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum interactions to show (0 for all)")
	cmd.Flags().BoolVar(&stats, "stats", false, "show aggregate statistics instead of the list")
	return cmd
}
