// Package ai provides the LLM boundary for sabia.
//
// The response pipeline only depends on the small Completer, Transcriber and
// Describer interfaces; the Genkit-backed Client is the production
// implementation. A nil client is a supported configuration: every consumer
// has a defined degraded path when no LLM is available.
package ai

import "context"

// Request is a single text-completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer is the text-completion surface consumed by the question
// analysis and response generation components. Implementations must be safe
// for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Transcriber converts speech audio into text. Used by the video processor.
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, audio []byte) (string, error)
}

// Describer produces a textual description of an image file. Used by the
// image processor.
type Describer interface {
	DescribeImage(ctx context.Context, path string) (string, error)
}
