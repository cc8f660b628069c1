package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/sabia-ai/sabia/internal/config"
)

// EmbedderSetup contains the resources embedder-based integration tests
// need.
type EmbedderSetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupEmbedder creates a real Gemini embedder for integration tests.
// Skips the test when GEMINI_API_KEY is not set.
//
// Example:
//
//	func TestStore_Integration(t *testing.T) {
//	    setup := testutil.SetupEmbedder(t)
//	    store := knowledge.New(querier, setup.Embedder, setup.Logger)
//	}
func SetupEmbedder(t *testing.T) *EmbedderSetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	ctx := context.Background()

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, config.DefaultEmbedderModel)

	// Quiet logger for tests (warn and above only).
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

	return &EmbedderSetup{
		Embedder: embedder,
		Genkit:   g,
		Logger:   logger,
	}
}
