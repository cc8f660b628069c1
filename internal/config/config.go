// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sabia/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, completion model, embedder model, temperature, token caps
//   - Storage: PostgreSQL connection for the pgvector document store
//   - Content: resources directory, collection name, data directory
//   - Media: TTS endpoint/model/voice, ffmpeg, background image
//   - Observability: OTLP trace export (see observability.go)
//
// API keys are deliberately NOT validated here: sabia degrades gracefully
// when no LLM is configured, so a missing key is a runtime condition, not a
// configuration error. Sensitive values are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates a token cap is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidSearchResults indicates the search result cap is out of range.
	ErrInvalidSearchResults = errors.New("invalid max search results")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidCollectionName indicates the collection name is empty.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// AI provider identifiers used in Config.Provider.
const (
	// ProviderGroq uses Groq's OpenAI-compatible endpoint for completions.
	ProviderGroq = "groq"

	// ProviderGoogleAI uses the Gemini API for completions.
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultCompletionModel is the Groq model the assistant was built
	// around.
	DefaultCompletionModel = "llama-3.3-70b-versatile"

	// DefaultEmbedderModel is the Gemini embedder model. Embeddings always
	// come from the Gemini API regardless of the completion provider;
	// gemini-embedding-001 is truncated to 768 dimensions to match the
	// pgvector schema (see knowledge.VectorDimension).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultCollectionName is the document collection used for indexed
	// learning content.
	DefaultCollectionName = "learning_content"

	// GroqBaseURL is Groq's OpenAI-compatible API endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI provider and model configuration
	Provider          string  `mapstructure:"provider" json:"provider"`
	ModelName         string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel     string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature       float32 `mapstructure:"temperature" json:"temperature"`
	MaxResponseTokens int     `mapstructure:"max_response_tokens" json:"max_response_tokens"`
	MaxAnalysisTokens int     `mapstructure:"max_analysis_tokens" json:"max_analysis_tokens"`

	// Content configuration
	ResourcesDir     string `mapstructure:"resources_dir" json:"resources_dir"`
	DataDir          string `mapstructure:"data_dir" json:"data_dir"`
	CollectionName   string `mapstructure:"collection_name" json:"collection_name"`
	MaxSearchResults int    `mapstructure:"max_search_results" json:"max_search_results"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Media configuration
	TTSBaseURL      string `mapstructure:"tts_base_url" json:"tts_base_url"`
	TTSModel        string `mapstructure:"tts_model" json:"tts_model"`
	TTSVoice        string `mapstructure:"tts_voice" json:"tts_voice"`
	FFmpegPath      string `mapstructure:"ffmpeg_path" json:"ffmpeg_path"`
	BackgroundImage string `mapstructure:"background_image" json:"background_image"`

	// Observability configuration (see observability.go)
	Otel OtelConfig `mapstructure:"otel" json:"otel"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sabia")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing configuration file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults follow the models the content pipeline was tuned on.
	viper.SetDefault("provider", ProviderGroq)
	viper.SetDefault("model_name", DefaultCompletionModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("max_response_tokens", 800)
	viper.SetDefault("max_analysis_tokens", 300)

	// Content defaults
	viper.SetDefault("resources_dir", "./resources")
	viper.SetDefault("data_dir", "./files_chat")
	viper.SetDefault("collection_name", DefaultCollectionName)
	viper.SetDefault("max_search_results", 3)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sabia")
	viper.SetDefault("postgres_password", "sabia_dev_password")
	viper.SetDefault("postgres_db_name", "sabia")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Media defaults
	viper.SetDefault("tts_base_url", "https://api.openai.com/v1")
	viper.SetDefault("tts_model", "tts-1")
	viper.SetDefault("tts_voice", "alloy")
	viper.SetDefault("ffmpeg_path", "ffmpeg")
	viper.SetDefault("background_image", "./resources/background.jpg")

	// Observability defaults
	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "localhost:4318")
	viper.SetDefault("otel.service_name", "sabia")
	viper.SetDefault("otel.environment", "dev")
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// API keys are NOT bound here: GEMINI_API_KEY is read directly by the Genkit
// googlegenai plugin, and GROQ_API_KEY / OPENAI_API_KEY are read directly in
// app setup. Their absence switches the assistant into degraded (no-LLM)
// mode instead of failing.
func bindEnvVariables() {
	// Hardcoded keys can't fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "SABIA_PROVIDER")
	mustBind("model_name", "SABIA_MODEL_NAME")
	mustBind("embedder_model", "SABIA_EMBEDDER_MODEL")
	mustBind("resources_dir", "SABIA_RESOURCES_DIR")
	mustBind("data_dir", "SABIA_DATA_DIR")
	mustBind("collection_name", "SABIA_COLLECTION_NAME")
	mustBind("max_response_tokens", "SABIA_MAX_RESPONSE_TOKENS")
	mustBind("max_analysis_tokens", "SABIA_MAX_ANALYSIS_TOKENS")
	mustBind("tts_base_url", "SABIA_TTS_BASE_URL")
	mustBind("tts_model", "SABIA_TTS_MODEL")
	mustBind("tts_voice", "SABIA_TTS_VOICE")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid substring matching against real secrets.
const maskedValue = "████████"

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking so a Config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = maskedValue
	}
	return json.Marshal(masked)
}

// GeminiModel returns the Gemini model used for multimodal work
// (transcription, image description). When the completion provider is
// already Gemini, the configured model is reused.
func (c *Config) GeminiModel() string {
	if c.Provider == ProviderGoogleAI {
		return c.ModelName
	}
	return "gemini-2.5-flash"
}

// IndexStatePath is the persisted resource fingerprint, kept alongside the
// rest of the store's on-disk data.
func (c *Config) IndexStatePath() string {
	return filepath.Join(c.DataDir, "index.state.json")
}

// AudioDir is where generated audio files are written.
func (c *Config) AudioDir() string { return filepath.Join(c.DataDir, "audios") }

// VideoDir is where generated video files are written.
func (c *Config) VideoDir() string { return filepath.Join(c.DataDir, "videos") }

// StatesDir holds the per-interaction media status files.
func (c *Config) StatesDir() string { return filepath.Join(c.DataDir, "states") }

// HistoryDBPath is the sqlite interaction log location.
func (c *Config) HistoryDBPath() string { return filepath.Join(c.DataDir, "history.db") }

// EnsureDirectories creates the writable directories the assistant needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.AudioDir(), c.VideoDir(), c.StatesDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
