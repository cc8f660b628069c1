package document

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sabia-ai/sabia/internal/ai"
)

// Registry maps file extensions to processors.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry builds the default processor set. transcriber and
// describer may be nil; the video and image processors then fail per
// file, which the indexing loop logs and skips.
func NewRegistry(transcriber ai.Transcriber, describer ai.Describer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		processors: map[string]Processor{
			".txt":  &TextProcessor{},
			".pdf":  &PDFProcessor{Logger: logger},
			".jpg":  &ImageProcessor{Describer: describer},
			".jpeg": &ImageProcessor{Describer: describer},
			".mp4":  &VideoProcessor{Transcriber: transcriber},
			".json": &JSONProcessor{},
		},
	}
}

// ForPath returns the processor for the file's extension, or false for
// unsupported types.
func (r *Registry) ForPath(path string) (Processor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.processors[ext]
	return p, ok
}
