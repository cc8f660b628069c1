package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// TextProcessor reads plain .txt files as a single document.
type TextProcessor struct{}

// Process implements Processor.
func (*TextProcessor) Process(ctx context.Context, path string) ([]Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	return []Document{{
		Content: string(content),
		Metadata: map[string]string{
			"type":   "text",
			"file":   filepath.Base(path),
			"source": "file",
		},
	}}, nil
}
