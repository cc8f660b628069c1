package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Default OpenAI-compatible text-to-speech parameters.
const (
	DefaultTTSBaseURL = "https://api.openai.com/v1"
	DefaultTTSModel   = "tts-1"
	DefaultTTSVoice   = "alloy"

	speechTimeout = 2 * time.Minute
)

// SpeechClient synthesizes speech through an OpenAI-compatible
// /audio/speech endpoint.
type SpeechClient struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// speechRequest is the /audio/speech request body.
type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// NewSpeechClient creates a speech synthesizer. The API key is required;
// media generation has no keyless mode. Empty baseURL, model or voice
// fall back to the OpenAI defaults.
func NewSpeechClient(baseURL, apiKey, model, voice string) (*SpeechClient, error) {
	if apiKey == "" {
		return nil, ErrSpeechNotConfigured
	}
	if baseURL == "" {
		baseURL = DefaultTTSBaseURL
	}
	if model == "" {
		model = DefaultTTSModel
	}
	if voice == "" {
		voice = DefaultTTSVoice
	}
	return &SpeechClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		httpClient: &http.Client{Timeout: speechTimeout},
	}, nil
}

// Synthesize converts text to speech and writes the audio at path.
func (c *SpeechClient) Synthesize(ctx context.Context, text, path string) error {
	body, err := json.Marshal(speechRequest{Model: c.model, Input: text, Voice: c.voice})
	if err != nil {
		return fmt.Errorf("encoding speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating speech request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("speech API error (status %d): %s", resp.StatusCode, string(detail))
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating audio file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("writing audio file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing audio file: %w", err)
	}
	return nil
}
