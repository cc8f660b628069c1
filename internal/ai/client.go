package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	genkitai "github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/sabia-ai/sabia/internal/config"
)

// ErrNoGenkit indicates the client was constructed without an initialized
// Genkit instance.
var ErrNoGenkit = errors.New("genkit instance is nil")

// Client implements Completer, Transcriber and Describer on top of Genkit.
//
// Completions go to the configured provider model (Groq via the
// OpenAI-compatible plugin, or Gemini). Transcription and image description
// always go through Gemini multimodal generation, since the Groq chat
// endpoint does not accept media parts.
type Client struct {
	g       *genkit.Genkit
	cfg     *config.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client. The limiter spaces outbound LLM calls so a
// burst of analyses does not trip provider rate limits.
func NewClient(g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if g == nil {
		return nil, ErrNoGenkit
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		g:       g,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(2), 4), // 2 req/s sustained, burst of 4
		logger:  logger,
	}, nil
}

// modelName returns the fully qualified Genkit model name for the configured
// provider.
func (c *Client) modelName() string {
	if c.cfg.Provider == config.ProviderGroq {
		return "groq/" + c.cfg.ModelName
	}
	return "googleai/" + c.cfg.ModelName
}

// generationConfig builds the provider-specific generation config.
func (c *Client) generationConfig(req Request) any {
	if c.cfg.Provider == config.ProviderGroq {
		return map[string]any{
			"temperature": req.Temperature,
			"max_tokens":  req.MaxTokens,
		}
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens), // #nosec G115 -- validated range in config
	}
}

// Complete sends a single completion request and returns the response text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := genkit.Generate(ctx, c.g,
		genkitai.WithModelName(c.modelName()),
		genkitai.WithSystem(req.System),
		genkitai.WithPrompt(req.Prompt),
		genkitai.WithConfig(c.generationConfig(req)),
	)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	return resp.Text(), nil
}

// Transcribe sends audio bytes through Gemini multimodal generation and
// returns the plain transcription text.
func (c *Client) Transcribe(ctx context.Context, fileName string, audio []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	mediaType := audioMediaType(fileName)
	encoded := base64.StdEncoding.EncodeToString(audio)

	userMessage := genkitai.NewUserMessage(
		genkitai.NewMediaPart(mediaType, "data:"+mediaType+";base64,"+encoded),
		genkitai.NewTextPart("Transcribe the speech in this recording. Return only the spoken text, with no commentary."),
	)

	resp, err := genkit.Generate(ctx, c.g,
		genkitai.WithModelName("googleai/"+c.cfg.GeminiModel()),
		genkitai.WithMessages(userMessage),
	)
	if err != nil {
		return "", fmt.Errorf("transcribing %s: %w", fileName, err)
	}

	return resp.Text(), nil
}

// DescribeImage reads an image file and asks Gemini to describe its content
// for indexing.
func (c *Client) DescribeImage(ctx context.Context, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the indexed resources directory
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	mediaType := imageMediaType(path)
	encoded := base64.StdEncoding.EncodeToString(data)

	userMessage := genkitai.NewUserMessage(
		genkitai.NewMediaPart(mediaType, "data:"+mediaType+";base64,"+encoded),
		genkitai.NewTextPart("Describe the educational content of this image, including any visible text."),
	)

	resp, err := genkit.Generate(ctx, c.g,
		genkitai.WithModelName("googleai/"+c.cfg.GeminiModel()),
		genkitai.WithMessages(userMessage),
	)
	if err != nil {
		return "", fmt.Errorf("describing image %s: %w", path, err)
	}

	return resp.Text(), nil
}

// audioMediaType maps a media file extension to its MIME type. Video
// containers are sent as-is; Gemini extracts the audio track.
func audioMediaType(fileName string) string {
	switch filepath.Ext(fileName) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// imageMediaType maps an image file extension to its MIME type.
func imageMediaType(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
