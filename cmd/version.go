package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabia-ai/sabia/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func newVersionCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and configuration information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sabia %s\n", AppVersion)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Configuration:")
			fmt.Fprintf(out, "  Provider: %s\n", cfg.Provider)
			fmt.Fprintf(out, "  Model: %s\n", cfg.ModelName)
			fmt.Fprintf(out, "  Embedder: %s\n", cfg.EmbedderModel)
			fmt.Fprintf(out, "  Resources: %s\n", cfg.ResourcesDir)
			fmt.Fprintf(out, "  Collection: %s\n", cfg.CollectionName)

			fmt.Fprintf(out, "  GEMINI_API_KEY: %s\n", keyStatus(os.Getenv("GEMINI_API_KEY")))
			if cfg.Provider == config.ProviderGroq {
				fmt.Fprintf(out, "  GROQ_API_KEY: %s\n", keyStatus(os.Getenv("GROQ_API_KEY")))
			}
			fmt.Fprintf(out, "  OPENAI_API_KEY (TTS): %s\n", keyStatus(os.Getenv("OPENAI_API_KEY")))
			return nil
		},
	}
}

// keyStatus describes key presence without echoing secret material.
func keyStatus(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "configured"
	}
	return fmt.Sprintf("%s...%s (configured)", key[:4], key[len(key)-4:])
}
