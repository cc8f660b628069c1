package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// FFmpegRenderer produces a video by looping a still image for the
// duration of an audio track, the shape the answer videos use.
type FFmpegRenderer struct {
	ffmpegPath string
}

// NewFFmpegRenderer creates a renderer. path falls back to "ffmpeg" on
// PATH when empty.
func NewFFmpegRenderer(path string) *FFmpegRenderer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegRenderer{ffmpegPath: path}
}

// Render writes an mp4 at outputPath from the image and audio files.
func (r *FFmpegRenderer) Render(ctx context.Context, imagePath, audioPath, outputPath string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("background image not found: %w", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio track not found: %w", err)
	}

	// -shortest ends the video with the audio track; -tune stillimage
	// keeps the encoder from wasting bitrate on a static frame.
	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-r", "24",
		"-shortest",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(output, 512))
	}
	return nil
}

// tail returns the last n bytes of ffmpeg output, where the actual error
// message lives.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
