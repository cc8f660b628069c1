package ai

import (
	"errors"
	"testing"

	"github.com/sabia-ai/sabia/internal/config"
	"github.com/sabia-ai/sabia/internal/log"
)

func TestNewClient_NilGenkit(t *testing.T) {
	_, err := NewClient(nil, &config.Config{}, log.NewNop())
	if !errors.Is(err, ErrNoGenkit) {
		t.Errorf("expected ErrNoGenkit, got %v", err)
	}
}

func TestAudioMediaType(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"lesson.mp3", "audio/mpeg"},
		{"lesson.wav", "audio/wav"},
		{"lesson.ogg", "audio/ogg"},
		{"lesson.mp4", "video/mp4"},
		{"lesson.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := audioMediaType(tt.file); got != tt.want {
			t.Errorf("audioMediaType(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestImageMediaType(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"diagram.jpg", "image/jpeg"},
		{"diagram.jpeg", "image/jpeg"},
		{"diagram.png", "image/png"},
		{"diagram.webp", "image/webp"},
		{"diagram", "image/jpeg"},
	}

	for _, tt := range tests {
		if got := imageMediaType(tt.file); got != tt.want {
			t.Errorf("imageMediaType(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
