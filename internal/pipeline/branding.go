package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mathviz-ai/internal/pkg/logger"
)

// Branding builds the intro and outro clips that bookend the final video.
// Each clip has a two-tier fallback: render the animated scene, and when
// that fails mux a static frame with the clip audio. When the static tier
// fails too the clip is a hard error.
type Branding struct {
	assetsDir string
	renderer  *ManimRenderer
	sync      *Synchronizer
	logger    logger.ILogger
}

func NewBranding(assetsDir string, renderer *ManimRenderer, sync *Synchronizer, log logger.ILogger) *Branding {
	return &Branding{
		assetsDir: assetsDir,
		renderer:  renderer,
		sync:      sync,
		logger:    log,
	}
}

// Enabled reports whether branding assets are configured.
func (b *Branding) Enabled() bool {
	return b.assetsDir != ""
}

// Clip names understood by MakeClip.
const (
	ClipIntro = "intro"
	ClipOutro = "outro"
)

// MakeClip produces the named branding clip at outputPath. Asset layout
// under assetsDir: <name>/<name>_scene.py, <name>/<name>_frame.png,
// <name>/<name>_audio.wav.
func (b *Branding) MakeClip(ctx context.Context, name, outputPath string) (string, error) {
	scenePath := filepath.Join(b.assetsDir, name, name+"_scene.py")
	framePath := filepath.Join(b.assetsDir, name, name+"_frame.png")
	audioPath := filepath.Join(b.assetsDir, name, name+"_audio.wav")

	// Tier 1: animated render
	clip, err := b.renderAnimated(ctx, scenePath, audioPath, outputPath)
	if err == nil {
		return clip, nil
	}
	b.logger.Warn("branding", "animated render failed, falling back to static frame", map[string]interface{}{
		"clip":  name,
		"error": err.Error(),
	})

	// Tier 2: static frame plus audio
	clip, err = b.staticFrame(ctx, framePath, audioPath, outputPath)
	if err != nil {
		return "", fmt.Errorf("branding clip %s: %w", name, err)
	}
	return clip, nil
}

func (b *Branding) renderAnimated(ctx context.Context, scenePath, audioPath, outputPath string) (string, error) {
	if b.renderer == nil || !b.renderer.Available() {
		return "", fmt.Errorf("renderer unavailable")
	}
	if _, err := os.Stat(scenePath); err != nil {
		return "", fmt.Errorf("scene script missing: %w", err)
	}

	scenes, err := ExtractSceneClasses(scenePath)
	if err != nil {
		return "", err
	}
	if len(scenes) == 0 {
		return "", fmt.Errorf("no scene class in %s", filepath.Base(scenePath))
	}

	videoPath, err := b.renderer.RenderScene(ctx, scenePath, scenes[0])
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(audioPath); statErr == nil {
		if err := b.sync.MergeAudioVideo(ctx, videoPath, audioPath, outputPath); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	// No audio asset: ship the silent render
	if err := copyFile(videoPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (b *Branding) staticFrame(ctx context.Context, framePath, audioPath, outputPath string) (string, error) {
	if !b.sync.Available() {
		return "", fmt.Errorf("encoder unavailable for static fallback")
	}
	if _, err := os.Stat(framePath); err != nil {
		return "", fmt.Errorf("static frame missing: %w", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("clip audio missing: %w", err)
	}

	args := []string{
		"-loop", "1",
		"-i", framePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-y", outputPath,
	}
	if err := b.sync.runFFmpeg(ctx, args, 2*time.Minute); err != nil {
		return "", err
	}
	return outputPath, nil
}
