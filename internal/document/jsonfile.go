package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// JSONProcessor handles .json files with structured educational data.
//
// Three shapes are recognized:
//
//   - a top-level array: each element becomes one structured chunk
//   - an object with a "content" array: each entry becomes an exercise
//     chunk with its question text and options flattened
//   - any other object: a single structured chunk
type JSONProcessor struct{}

// Process implements Processor.
func (*JSONProcessor) Process(ctx context.Context, path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read json file: %w", err)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse json file: %w", err)
	}

	base := filepath.Base(path)

	switch v := data.(type) {
	case []any:
		docs := make([]Document, 0, len(v))
		for i, item := range v {
			content, err := json.MarshalIndent(item, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to render json item: %w", err)
			}
			docs = append(docs, Document{
				Content: string(content),
				Metadata: map[string]string{
					"type":        "structured",
					"file":        base,
					"exercise_id": strconv.Itoa(i + 1),
				},
			})
		}
		return docs, nil

	case map[string]any:
		if items, ok := v["content"].([]any); ok {
			return exerciseChunks(base, v, items), nil
		}

		content, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to render json object: %w", err)
		}
		return []Document{{
			Content: string(content),
			Metadata: map[string]string{
				"type":        "structured",
				"file":        base,
				"exercise_id": "1",
			},
		}}, nil

	default:
		return nil, fmt.Errorf("unsupported json root type %T", data)
	}
}

// exerciseChunks flattens an exercise set (object with a content array)
// into one chunk per question, marking options as correct or not.
func exerciseChunks(base string, root map[string]any, items []any) []Document {
	subject := "Unknown"
	if name, ok := root["name"].(string); ok && name != "" {
		subject = name
	}

	docs := make([]Document, 0, len(items))
	for i, raw := range items {
		item, _ := raw.(map[string]any)

		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\n", stringField(item, "title"))

		if content, ok := item["content"].(map[string]any); ok {
			if html, ok := content["html"].(string); ok {
				fmt.Fprintf(&b, "Question: %s\n", html)

				if options, ok := content["options"].([]any); ok {
					b.WriteString("Options:\n")
					for _, rawOpt := range options {
						opt, _ := rawOpt.(map[string]any)
						optText := ""
						if optContent, ok := opt["content"].(map[string]any); ok {
							optText = stringField(optContent, "html")
						}
						mark := "✗"
						if correct, ok := opt["correct"].(bool); ok && correct {
							mark = "✓"
						}
						fmt.Fprintf(&b, "  %s %s\n", mark, optText)
					}
				}
			}
		}

		docs = append(docs, Document{
			Content: b.String(),
			Metadata: map[string]string{
				"type":        "exercise",
				"file":        base,
				"exercise_id": strconv.Itoa(i + 1),
				"subject":     subject,
			},
		})
	}
	return docs
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
