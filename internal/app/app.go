// Package app assembles the application from its components.
//
// Setup wires configuration, tracing, the Postgres-backed knowledge
// store, the LLM client, the indexing and response pipelines, interaction
// history and media generation into one App. Missing API keys degrade the
// relevant component to nil instead of failing startup; every consumer
// has a defined behavior for the degraded case.
package app

import (
	"context"
	"errors"
	"log/slog"

	genkitai "github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sabia-ai/sabia/internal/ai"
	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/history"
	"github.com/sabia-ai/sabia/internal/index"
	"github.com/sabia-ai/sabia/internal/knowledge"
	"github.com/sabia-ai/sabia/internal/media"
	"github.com/sabia-ai/sabia/internal/respond"
)

// ErrStoreUnavailable indicates the knowledge store is not usable, which
// happens when no embedder credentials are configured.
var ErrStoreUnavailable = errors.New("knowledge store unavailable: GEMINI_API_KEY is not set")

// App is the assembled application.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit    // nil without any AI credentials
	Embedder  genkitai.Embedder // nil without GEMINI_API_KEY
	DBPool    *pgxpool.Pool
	Store     *knowledge.Store // nil without an embedder
	AI        *ai.Client       // nil when the completion provider has no key
	Generator *respond.Generator
	Reindexer *index.Reindexer // nil without a store
	History   *history.Store
	Media     *media.Pipeline

	otelCleanup func()
}

// Close releases all resources in reverse initialization order. Safe to
// call on a partially initialized App.
func (a *App) Close() error {
	var errs []error
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return errors.Join(errs...)
}

// Collection returns the configured learning content collection, creating
// it on first use.
func (a *App) Collection(ctx context.Context) (*knowledge.Collection, error) {
	if a.Store == nil {
		return nil, ErrStoreUnavailable
	}
	return a.Store.GetOrCreateCollection(ctx, a.Config.CollectionName, nil)
}

// Completer returns the completion surface, or a nil interface when no
// provider is configured. Callers must not wrap a.AI themselves: a typed
// nil would defeat the generator's configuration check.
func (a *App) Completer() ai.Completer {
	if a.AI == nil {
		return nil
	}
	return a.AI
}
