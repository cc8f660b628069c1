package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sabia-ai/sabia/internal/ai"
)

// ErrNoTranscriber indicates video processing was attempted without a
// transcription-capable model configured.
var ErrNoTranscriber = errors.New("video processing requires a transcriber")

// videoChunks is how many pieces a transcript is split into; the
// start/end metadata assumes roughly 25 seconds per chunk.
const (
	videoChunks       = 8
	videoChunkSeconds = 25
	videoMaxEndSecond = 185 // end timestamps clamp here
)

// VideoProcessor transcribes .mp4 files and splits the transcript into
// timestamped chunks.
type VideoProcessor struct {
	Transcriber ai.Transcriber
}

// Process implements Processor.
func (p *VideoProcessor) Process(ctx context.Context, path string) ([]Document, error) {
	if p.Transcriber == nil {
		return nil, ErrNoTranscriber
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read video file: %w", err)
	}

	base := filepath.Base(path)
	transcript, err := p.Transcriber.Transcribe(ctx, base, data)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe video: %w", err)
	}

	words := strings.Fields(transcript)
	if len(words) == 0 {
		return nil, nil
	}

	chunkSize := len(words) / videoChunks
	if chunkSize < 1 {
		chunkSize = len(words)
	}

	var docs []Document
	for i := 0; i < len(words); i += chunkSize {
		end := min(i+chunkSize, len(words))

		docs = append(docs, Document{
			Content: strings.Join(words[i:end], " "),
			Metadata: map[string]string{
				"type":     "video",
				"file":     base,
				"start":    strconv.Itoa(i * videoChunkSeconds / chunkSize),
				"end":      strconv.Itoa(min((i+chunkSize)*videoChunkSeconds/chunkSize, videoMaxEndSecond)),
				"chunk_id": strconv.Itoa(i/chunkSize + 1),
			},
		})
	}
	return docs, nil
}
