package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockTranscriber implements ai.Transcriber.
type mockTranscriber struct {
	transcript string
	err        error
	lastName   string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, fileName string, audio []byte) (string, error) {
	m.lastName = fileName
	return m.transcript, m.err
}

// mockDescriber implements ai.Describer.
type mockDescriber struct {
	description string
	err         error
}

func (m *mockDescriber) DescribeImage(ctx context.Context, path string) (string, error) {
	return m.description, m.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestTextProcessor(t *testing.T) {
	path := writeFile(t, "html_basics.txt", "HTML headings structure a page.")

	docs, err := (&TextProcessor{}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Process() returned %d documents, want 1", len(docs))
	}
	if docs[0].Content != "HTML headings structure a page." {
		t.Errorf("Content = %q", docs[0].Content)
	}
	want := map[string]string{"type": "text", "file": "html_basics.txt", "source": "file"}
	for k, v := range want {
		if docs[0].Metadata[k] != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, docs[0].Metadata[k], v)
		}
	}
}

func TestTextProcessor_Missing(t *testing.T) {
	_, err := (&TextProcessor{}).Process(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Error("Process(missing) expected error")
	}
}

func TestJSONProcessor_Array(t *testing.T) {
	path := writeFile(t, "facts.json", `[{"q": "what is css"}, {"q": "what is html"}]`)

	docs, err := (&JSONProcessor{}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Process() returned %d documents, want 2", len(docs))
	}
	if docs[0].Metadata["exercise_id"] != "1" || docs[1].Metadata["exercise_id"] != "2" {
		t.Errorf("exercise ids = %q, %q", docs[0].Metadata["exercise_id"], docs[1].Metadata["exercise_id"])
	}
	if docs[0].Metadata["type"] != "structured" {
		t.Errorf("type = %q, want structured", docs[0].Metadata["type"])
	}
	if !strings.Contains(docs[0].Content, "what is css") {
		t.Errorf("Content = %q", docs[0].Content)
	}
}

func TestJSONProcessor_ExerciseSet(t *testing.T) {
	const exercises = `{
		"name": "HTML Fundamentals",
		"content": [
			{
				"title": "Headings",
				"content": {
					"html": "Which tag is the top-level heading?",
					"options": [
						{"content": {"html": "<h1>"}, "correct": true},
						{"content": {"html": "<h6>"}, "correct": false}
					]
				}
			}
		]
	}`
	path := writeFile(t, "ex.json", exercises)

	docs, err := (&JSONProcessor{}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Process() returned %d documents, want 1", len(docs))
	}

	doc := docs[0]
	if doc.Metadata["type"] != "exercise" || doc.Metadata["subject"] != "HTML Fundamentals" || doc.Metadata["exercise_id"] != "1" {
		t.Errorf("Metadata = %v", doc.Metadata)
	}
	for _, want := range []string{"Title: Headings", "Question: Which tag is the top-level heading?", "Options:", "✓ <h1>", "✗ <h6>"} {
		if !strings.Contains(doc.Content, want) {
			t.Errorf("Content missing %q:\n%s", want, doc.Content)
		}
	}
}

func TestJSONProcessor_PlainObject(t *testing.T) {
	path := writeFile(t, "meta.json", `{"course": "web dev", "level": "intro"}`)

	docs, err := (&JSONProcessor{}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Process() returned %d documents, want 1", len(docs))
	}
	if docs[0].Metadata["type"] != "structured" || docs[0].Metadata["exercise_id"] != "1" {
		t.Errorf("Metadata = %v", docs[0].Metadata)
	}
}

func TestJSONProcessor_Invalid(t *testing.T) {
	path := writeFile(t, "bad.json", `{not json`)

	if _, err := (&JSONProcessor{}).Process(context.Background(), path); err == nil {
		t.Error("Process(invalid json) expected error")
	}
}

func TestImageProcessor(t *testing.T) {
	describer := &mockDescriber{description: "A diagram of the CSS box model."}
	docs, err := (&ImageProcessor{Describer: describer}).Process(context.Background(), "/res/box_model.jpg")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if docs[0].Content != "A diagram of the CSS box model." {
		t.Errorf("Content = %q", docs[0].Content)
	}
	if docs[0].Metadata["description"] != docs[0].Content {
		t.Errorf("description metadata should mirror content, got %v", docs[0].Metadata)
	}
	if docs[0].Metadata["file"] != "box_model.jpg" {
		t.Errorf("file = %q", docs[0].Metadata["file"])
	}
}

func TestImageProcessor_EmptyDescription(t *testing.T) {
	docs, err := (&ImageProcessor{Describer: &mockDescriber{}}).Process(context.Background(), "/res/a.jpg")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if docs[0].Content != placeholderDescription {
		t.Errorf("Content = %q, want placeholder", docs[0].Content)
	}
}

func TestImageProcessor_NoDescriber(t *testing.T) {
	_, err := (&ImageProcessor{}).Process(context.Background(), "/res/a.jpg")
	if !errors.Is(err, ErrNoDescriber) {
		t.Errorf("Process() error = %v, want ErrNoDescriber", err)
	}
}

func TestVideoProcessor(t *testing.T) {
	// 16 words -> chunkSize 2 -> 8 chunks.
	words := make([]string, 16)
	for i := range words {
		words[i] = "word"
	}
	transcriber := &mockTranscriber{transcript: strings.Join(words, " ")}

	path := writeFile(t, "lesson.mp4", "fake video bytes")
	docs, err := (&VideoProcessor{Transcriber: transcriber}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 8 {
		t.Fatalf("Process() returned %d chunks, want 8", len(docs))
	}
	if transcriber.lastName != "lesson.mp4" {
		t.Errorf("transcriber received name %q", transcriber.lastName)
	}

	first, last := docs[0], docs[len(docs)-1]
	if first.Metadata["chunk_id"] != "1" || first.Metadata["start"] != "0" {
		t.Errorf("first chunk metadata = %v", first.Metadata)
	}
	if last.Metadata["chunk_id"] != "8" {
		t.Errorf("last chunk_id = %q", last.Metadata["chunk_id"])
	}
	// (8/8 chunks) * 25s would be 200, but timestamps clamp at 185.
	if last.Metadata["end"] != "185" {
		t.Errorf("last end = %q, want clamped 185", last.Metadata["end"])
	}
}

func TestVideoProcessor_ShortTranscript(t *testing.T) {
	transcriber := &mockTranscriber{transcript: "três palavras só"}
	path := writeFile(t, "clip.mp4", "bytes")

	docs, err := (&VideoProcessor{Transcriber: transcriber}).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("short transcript should yield 1 chunk, got %d", len(docs))
	}
}

func TestVideoProcessor_NoTranscriber(t *testing.T) {
	_, err := (&VideoProcessor{}).Process(context.Background(), "/res/a.mp4")
	if !errors.Is(err, ErrNoTranscriber) {
		t.Errorf("Process() error = %v, want ErrNoTranscriber", err)
	}
}

func TestRegistry_ForPath(t *testing.T) {
	registry := NewRegistry(&mockTranscriber{}, &mockDescriber{}, nil)

	tests := []struct {
		path string
		want bool
	}{
		{"notes.txt", true},
		{"slides.PDF", true},
		{"photo.jpeg", true},
		{"photo.jpg", true},
		{"lesson.mp4", true},
		{"exercises.json", true},
		{"archive.zip", false},
		{"script.py", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if _, ok := registry.ForPath(tt.path); ok != tt.want {
			t.Errorf("ForPath(%q) = %v, want %v", tt.path, ok, tt.want)
		}
	}
}
