package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/app"
	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/question"
)

// answer formats a user can ask for.
var validFormats = map[string]bool{
	"text":      true,
	"video":     true,
	"exercises": true,
	"mixed":     true,
}

func newAskCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var (
		format    string
		userID    string
		withMedia bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed learning content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormats[format] {
				return fmt.Errorf("invalid format %q (want text, video, exercises or mixed)", format)
			}
			return runAsk(cmd, cfg, logger, strings.Join(args, " "), format, userID, withMedia)
		},
	}

	cmd.Flags().StringVar(&format, "format", "mixed", "preferred answer format: text, video, exercises or mixed")
	cmd.Flags().StringVar(&userID, "user", "anonymous", "user identifier recorded with the interaction")
	cmd.Flags().BoolVar(&withMedia, "media", false, "also generate audio and video for the answer")
	return cmd
}

func runAsk(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, userQuestion, format, userID string, withMedia bool) error {
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

	// Without an embedder there is no collection; the generator still
	// produces its configuration apology in that case.
	var coll question.Collection
	if a.Store != nil {
		c, err := a.Collection(ctx)
		if err != nil {
			return fmt.Errorf("opening collection: %w", err)
		}
		coll = c
	}

	answer := a.Generator.Generate(ctx, coll, userQuestion, format)
	fmt.Fprintln(cmd.OutOrStdout(), answer)

	interactionID, err := a.History.Save(ctx, userID, userQuestion, format, answer)
	if err != nil {
		logger.Warn("recording interaction failed", "error", err)
		if withMedia {
			return fmt.Errorf("cannot generate media without an interaction record: %w", err)
		}
		return nil
	}

	if withMedia {
		id := strconv.FormatInt(interactionID, 10)
		task := a.Media.Start(ctx, answer, id)
		<-task.Done()
		printStatus(cmd, id, task.Status())
	}
	return nil
}
