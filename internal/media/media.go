// Package media generates downloadable audio and video renditions of an
// answer in the background.
//
// Each answered interaction may start one Task. The task synthesizes
// speech first, then renders a video from a still background image plus
// that audio, updating a per-interaction status file after each stage:
//
//	absent file            -> nothing ready yet
//	{"audio_ready": true}  -> audio done, video still rendering
//	{"audio_ready": true,
//	 "video_ready": true}  -> both done
//	{"error": "..."}       -> generation failed
//
// The status file is the only coordination channel with readers in other
// processes; a file that cannot be parsed (for example caught mid-write)
// reads as not-ready. Tasks are fire-and-forget: there is no retry and no
// cancellation beyond the context passed to Start.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrSpeechNotConfigured indicates media generation was requested without
// a configured speech synthesizer. Unlike the text pipeline, media
// generation has no degraded mode: without audio there is nothing to
// render.
var ErrSpeechNotConfigured = errors.New("speech synthesizer is not configured")

// Synthesizer converts text to speech audio written at path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
}

// Renderer combines a still image and an audio track into a video file.
type Renderer interface {
	Render(ctx context.Context, imagePath, audioPath, outputPath string) error
}

// Status mirrors the on-disk status file for one interaction.
type Status struct {
	AudioReady bool   `json:"audio_ready,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
	VideoReady bool   `json:"video_ready,omitempty"`
	VideoPath  string `json:"video_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Pipeline produces media for interactions. Directories are created on
// demand; one Pipeline serves the whole process.
type Pipeline struct {
	synth           Synthesizer // nil means not configured
	renderer        Renderer
	backgroundImage string
	audioDir        string
	videoDir        string
	statesDir       string
	logger          *slog.Logger
}

// NewPipeline wires a media pipeline. synth may be nil; Start then
// records ErrSpeechNotConfigured in the status file instead of producing
// media.
func NewPipeline(synth Synthesizer, renderer Renderer, backgroundImage, audioDir, videoDir, statesDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		synth:           synth,
		renderer:        renderer,
		backgroundImage: backgroundImage,
		audioDir:        audioDir,
		videoDir:        videoDir,
		statesDir:       statesDir,
		logger:          logger,
	}
}

// Task is one in-flight media generation.
type Task struct {
	interactionID string
	statesDir     string
	done          chan struct{}
}

// Done is closed when the task has finished, successfully or not.
func (t *Task) Done() <-chan struct{} { return t.done }

// Status reads the task's current on-disk status.
func (t *Task) Status() Status {
	return ReadStatus(t.statesDir, t.interactionID)
}

// Start launches background generation for one interaction and returns
// immediately. The caller observes progress through the returned Task or
// by reading the status file directly.
func (p *Pipeline) Start(ctx context.Context, text, interactionID string) *Task {
	task := &Task{
		interactionID: interactionID,
		statesDir:     p.statesDir,
		done:          make(chan struct{}),
	}
	go func() {
		defer close(task.done)
		if err := p.run(ctx, text, interactionID); err != nil {
			p.logger.Error("media generation failed", "interaction_id", interactionID, "error", err)
			p.writeStatus(interactionID, Status{Error: err.Error()})
		}
	}()
	return task
}

// run executes the two generation stages in order. Audio must exist
// before video rendering can start, so the ordering is load-bearing, not
// an optimization choice.
func (p *Pipeline) run(ctx context.Context, text, interactionID string) error {
	if p.synth == nil {
		return ErrSpeechNotConfigured
	}

	for _, dir := range []string{p.audioDir, p.videoDir, p.statesDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating media directory: %w", err)
		}
	}

	audioPath := filepath.Join(p.audioDir, "audio_"+interactionID+".mp3")
	p.logger.Info("starting audio generation", "interaction_id", interactionID)
	if err := p.synth.Synthesize(ctx, text, audioPath); err != nil {
		return fmt.Errorf("synthesizing audio: %w", err)
	}
	p.writeStatus(interactionID, Status{AudioReady: true, AudioPath: audioPath})
	p.logger.Info("audio ready", "interaction_id", interactionID, "path", audioPath)

	videoPath := filepath.Join(p.videoDir, "video_"+interactionID+".mp4")
	p.logger.Info("starting video generation", "interaction_id", interactionID)
	if err := p.renderer.Render(ctx, p.backgroundImage, audioPath, videoPath); err != nil {
		return fmt.Errorf("rendering video: %w", err)
	}
	p.writeStatus(interactionID, Status{
		AudioReady: true,
		AudioPath:  audioPath,
		VideoReady: true,
		VideoPath:  videoPath,
	})
	p.logger.Info("video ready", "interaction_id", interactionID, "path", videoPath)
	return nil
}

func (p *Pipeline) writeStatus(interactionID string, status Status) {
	data, err := json.Marshal(status)
	if err != nil {
		p.logger.Error("failed to encode media status", "interaction_id", interactionID, "error", err)
		return
	}
	path := statusPath(p.statesDir, interactionID)
	if err := os.MkdirAll(p.statesDir, 0o750); err != nil {
		p.logger.Error("failed to create states directory", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		p.logger.Error("failed to write media status", "path", path, "error", err)
	}
}

// ReadStatus reports media readiness for an interaction. A missing or
// unreadable status file means nothing is ready; readers never see an
// error for a file caught mid-write.
func ReadStatus(statesDir, interactionID string) Status {
	data, err := os.ReadFile(statusPath(statesDir, interactionID))
	if err != nil {
		return Status{}
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}
	}
	return status
}

func statusPath(statesDir, interactionID string) string {
	return filepath.Join(statesDir, "status_"+interactionID+".json")
}
