package config

import (
	"fmt"
	"slices"
)

// validSSLModes are the sslmode values accepted by libpq-compatible drivers.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// API keys are intentionally not checked: the response pipeline has a
// defined degraded mode when no LLM client is configured.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Provider != ProviderGroq && c.Provider != ProviderGoogleAI {
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGroq, ProviderGoogleAI)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Sampling temperature range per the Groq and Gemini APIs.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxResponseTokens < 1 || c.MaxResponseTokens > 32768 {
		return fmt.Errorf("%w: max_response_tokens must be between 1 and 32,768, got %d",
			ErrInvalidMaxTokens, c.MaxResponseTokens)
	}
	if c.MaxAnalysisTokens < 1 || c.MaxAnalysisTokens > 32768 {
		return fmt.Errorf("%w: max_analysis_tokens must be between 1 and 32,768, got %d",
			ErrInvalidMaxTokens, c.MaxAnalysisTokens)
	}

	if c.MaxSearchResults < 1 || c.MaxSearchResults > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d",
			ErrInvalidSearchResults, c.MaxSearchResults)
	}

	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection_name cannot be empty", ErrInvalidCollectionName)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q (must be one of %v)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
