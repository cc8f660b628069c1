package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFProcessor extracts text from .pdf files, one document per page.
type PDFProcessor struct {
	Logger *slog.Logger
}

// Process implements Processor. Pages that fail text extraction are
// logged and skipped rather than failing the whole file.
func (p *PDFProcessor) Process(ctx context.Context, path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	base := filepath.Base(path)
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract pdf page text", "file", base, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, Document{
			Content: text,
			Metadata: map[string]string{
				"type": "pdf",
				"file": base,
				"page": strconv.Itoa(i),
			},
		})
	}

	return docs, nil
}
