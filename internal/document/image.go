package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sabia-ai/sabia/internal/ai"
)

// ErrNoDescriber indicates image processing was attempted without a
// vision-capable model configured.
var ErrNoDescriber = errors.New("image processing requires a describer")

// placeholderDescription stands in when the model returns no text for
// an image.
const placeholderDescription = "Visual content available"

// ImageProcessor describes .jpg/.jpeg files with a vision model so the
// description becomes searchable text.
type ImageProcessor struct {
	Describer ai.Describer
}

// Process implements Processor.
func (p *ImageProcessor) Process(ctx context.Context, path string) ([]Document, error) {
	if p.Describer == nil {
		return nil, ErrNoDescriber
	}

	description, err := p.Describer.DescribeImage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to describe image: %w", err)
	}
	if description == "" {
		description = placeholderDescription
	}

	return []Document{{
		Content: description,
		Metadata: map[string]string{
			"type":        "image",
			"file":        filepath.Base(path),
			"description": description,
		},
	}}, nil
}
