package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/media"
)

func newStatusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status <interaction-id>",
		Short: "Show media generation status for an interaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printStatus(cmd, args[0], media.ReadStatus(cfg.StatesDir(), args[0]))
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, interactionID string, status media.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Interaction %s:\n", interactionID)

	if status.Error != "" {
		fmt.Fprintf(out, "  media generation failed: %s\n", status.Error)
		return
	}
	switch {
	case status.VideoReady:
		fmt.Fprintf(out, "  audio: %s\n", status.AudioPath)
		fmt.Fprintf(out, "  video: %s\n", status.VideoPath)
	case status.AudioReady:
		fmt.Fprintf(out, "  audio: %s\n", status.AudioPath)
		fmt.Fprintln(out, "  video: rendering...")
	default:
		fmt.Fprintln(out, "  no media ready yet")
	}
}
