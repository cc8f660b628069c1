package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	genkitai "github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openai/openai-go/option"

	"github.com/sabia-ai/sabia/db"
	"github.com/sabia-ai/sabia/internal/ai"
	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/document"
	"github.com/sabia-ai/sabia/internal/history"
	"github.com/sabia-ai/sabia/internal/index"
	"github.com/sabia-ai/sabia/internal/knowledge"
	"github.com/sabia-ai/sabia/internal/media"
	"github.com/sabia-ai/sabia/internal/observability"
	"github.com/sabia-ai/sabia/internal/question"
	"github.com/sabia-ai/sabia/internal/respond"
	"github.com/sabia-ai/sabia/internal/retrieval"
)

// Setup creates and initializes the application. Returns an App with
// embedded cleanup; call Close to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	otelCleanup, err := observability.Setup(ctx, cfg.Otel, logger)
	if err != nil {
		return nil, err
	}
	a.otelCleanup = otelCleanup

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Genkit, a.Embedder, a.AI = provideAI(ctx, cfg, logger)

	if a.Embedder != nil {
		a.Store = knowledge.New(knowledge.NewPGQuerier(pool), a.Embedder, logger)
	}

	engine := retrieval.NewEngine(logger)
	analyzer := question.NewAnalyzer(a.Completer(), engine, logger, question.Options{
		MaxTokens: cfg.MaxAnalysisTokens,
	})
	a.Generator = respond.NewGenerator(analyzer, engine, a.Completer(), logger, respond.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxResponseTokens,
		TopResults:  cfg.MaxSearchResults,
	})

	if a.Store != nil {
		a.Reindexer = provideReindexer(a, cfg, logger)
	}

	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, err
	}
	a.History = hist

	a.Media = provideMedia(cfg, logger)

	return a, nil
}

// provideDBPool creates the PostgreSQL connection pool after running
// migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideAI initializes Genkit with whatever providers have credentials.
//
// Embeddings always come from Gemini, so GEMINI_API_KEY gates the whole
// knowledge store: a Groq key alone gives no searchable content, and the
// client stays nil rather than half-configured. Missing keys are a
// supported degraded mode, not an error.
func provideAI(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, genkitai.Embedder, *ai.Client) {
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		geminiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if geminiKey == "" {
		logger.Warn("GEMINI_API_KEY not set, running without AI capabilities")
		return nil, nil, nil
	}

	var groq *compat_oai.OpenAICompatible
	groqKey := os.Getenv("GROQ_API_KEY")
	if cfg.Provider == config.ProviderGroq && groqKey != "" {
		groq = &compat_oai.OpenAICompatible{
			Provider: config.ProviderGroq,
			Opts: []option.RequestOption{
				option.WithAPIKey(groqKey),
				option.WithBaseURL(config.GroqBaseURL),
			},
		}
	}

	var g *genkit.Genkit
	if groq != nil {
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}, groq))
	} else {
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	}
	if g == nil {
		logger.Error("genkit initialization failed, running without AI capabilities")
		return nil, nil, nil
	}

	if groq != nil {
		groq.DefineModel(config.ProviderGroq, cfg.ModelName, genkitai.ModelOptions{
			Label: "Groq - " + cfg.ModelName,
			Supports: &genkitai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
				Tools:      true,
			},
		})
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	// Completions need the configured provider's key specifically.
	if cfg.Provider == config.ProviderGroq && groq == nil {
		logger.Warn("GROQ_API_KEY not set, running without completions")
		return g, embedder, nil
	}

	client, err := ai.NewClient(g, cfg, logger)
	if err != nil {
		logger.Error("creating AI client failed, running without completions", "error", err)
		return g, embedder, nil
	}
	logger.Info("AI client initialized", "provider", cfg.Provider, "model", cfg.ModelName)
	return g, embedder, client
}

// provideReindexer builds the incremental indexing pipeline over the
// knowledge store.
func provideReindexer(a *App, cfg *config.Config, logger *slog.Logger) *index.Reindexer {
	var transcriber ai.Transcriber
	var describer ai.Describer
	if a.AI != nil {
		transcriber = a.AI
		describer = a.AI
	}
	registry := document.NewRegistry(transcriber, describer, logger)
	return index.NewReindexer(
		index.KnowledgeStore{Store: a.Store},
		registry,
		cfg.CollectionName,
		cfg.ResourcesDir,
		cfg.IndexStatePath(),
		logger,
	)
}

// provideMedia builds the audio/video generation pipeline. Without an
// OPENAI_API_KEY the pipeline starts tasks that record the configuration
// error in their status file.
func provideMedia(cfg *config.Config, logger *slog.Logger) *media.Pipeline {
	var synth media.Synthesizer
	speech, err := media.NewSpeechClient(cfg.TTSBaseURL, os.Getenv("OPENAI_API_KEY"), cfg.TTSModel, cfg.TTSVoice)
	switch {
	case err == nil:
		synth = speech
	case errors.Is(err, media.ErrSpeechNotConfigured):
		logger.Warn("OPENAI_API_KEY not set, media generation disabled")
	default:
		logger.Error("creating speech client failed", "error", err)
	}

	return media.NewPipeline(
		synth,
		media.NewFFmpegRenderer(cfg.FFmpegPath),
		cfg.BackgroundImage,
		cfg.AudioDir(),
		cfg.VideoDir(),
		cfg.StatesDir(),
		logger,
	)
}
