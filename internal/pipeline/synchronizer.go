package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mathviz-ai/internal/pkg/logger"
)

// SyncedSegment records one audio/video pair merged into a final segment.
type SyncedSegment struct {
	Index     int    `json:"index"`
	AudioFile string `json:"audio_file"`
	VideoFile string `json:"video_file"` // "text_slide" when no render existed
	Output    string `json:"output"`
}

// Synchronizer aligns narration audio with rendered video segments using
// ffmpeg/ffprobe and assembles the final video. The whole stage is optional:
// without ffmpeg the pipeline ends with the per-stage artifacts intact.
type Synchronizer struct {
	ffmpeg   string
	ffprobe  string
	renderer *ManimRenderer // for text-slide substitutes; may be nil
	logger   logger.ILogger
}

func NewSynchronizer(renderer *ManimRenderer, log logger.ILogger) *Synchronizer {
	return &Synchronizer{
		ffmpeg:   "ffmpeg",
		ffprobe:  "ffprobe",
		renderer: renderer,
		logger:   log,
	}
}

func (s *Synchronizer) Available() bool {
	if _, err := exec.LookPath(s.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(s.ffprobe)
	return err == nil
}

// Duration reports the length of a media file in seconds.
func (s *Synchronizer) Duration(ctx context.Context, path string) (float64, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, s.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", filepath.Base(path), err)
	}
	return duration, nil
}

// AdjustDuration stretches, trims, or loops a video so its length matches
// the narration audio. Returns the path to use (the original when the
// difference is negligible or the adjustment fails).
func (s *Synchronizer) AdjustDuration(ctx context.Context, videoPath string, targetDuration float64, outputPath string) string {
	currentDuration, err := s.Duration(ctx, videoPath)
	if err != nil {
		s.logger.Warn("synchronizer", "could not probe video duration", map[string]interface{}{
			"video": videoPath,
			"error": err.Error(),
		})
		return videoPath
	}

	if math.Abs(currentDuration-targetDuration) < 0.5 {
		return videoPath
	}

	speedFactor := currentDuration / targetDuration

	var args []string
	switch {
	case speedFactor >= 0.8 && speedFactor <= 1.2:
		// Small mismatch: retime the video stream
		args = []string{
			"-i", videoPath,
			"-filter:v", fmt.Sprintf("setpts=%g*PTS", 1/speedFactor),
			"-an",
			"-y", outputPath,
		}
	case currentDuration > targetDuration:
		args = []string{
			"-i", videoPath,
			"-t", formatSeconds(targetDuration),
			"-c", "copy",
			"-y", outputPath,
		}
	default:
		loops := int(targetDuration/currentDuration) + 1
		args = []string{
			"-stream_loop", strconv.Itoa(loops),
			"-i", videoPath,
			"-t", formatSeconds(targetDuration),
			"-c", "copy",
			"-y", outputPath,
		}
	}

	if err := s.runFFmpeg(ctx, args, 2*time.Minute); err != nil {
		s.logger.Warn("synchronizer", "duration adjustment failed, using original video", map[string]interface{}{
			"video": videoPath,
			"error": err.Error(),
		})
		return videoPath
	}
	return outputPath
}

// MergeAudioVideo muxes narration audio onto a video segment.
func (s *Synchronizer) MergeAudioVideo(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y", outputPath,
	}
	if err := s.runFFmpeg(ctx, args, 2*time.Minute); err != nil {
		return fmt.Errorf("merge %s: %w", filepath.Base(outputPath), err)
	}
	return nil
}

// GenerateTextSlide renders a plain narration-text video for segments that
// have audio but no rendered scene.
func (s *Synchronizer) GenerateTextSlide(ctx context.Context, text string, duration float64, outputPath string, index int) (string, error) {
	if s.renderer == nil || !s.renderer.Available() {
		return "", fmt.Errorf("text slide: no renderer available")
	}

	sceneName := fmt.Sprintf("TextSlide%d", index)
	slideDir := filepath.Dir(outputPath)
	scriptPath := filepath.Join(slideDir, fmt.Sprintf("temp_text_slide_%d.py", index))

	hold := duration - 2
	if hold < 0.5 {
		hold = 0.5
	}

	script := fmt.Sprintf(`from manim import *

class %s(Scene):
    def construct(self):
        text_obj = Text(%s, font_size=36, color=WHITE, line_spacing=1.2).scale(0.8)
        if text_obj.width > config.frame_width - 1:
            text_obj.scale_to_fit_width(config.frame_width - 1)
        self.play(FadeIn(text_obj), run_time=1)
        self.wait(%g)
        self.play(FadeOut(text_obj), run_time=1)
`, sceneName, pythonString(wrapText(text, 50)), hold)

	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("write text slide script: %w", err)
	}
	defer os.Remove(scriptPath)

	videoPath, err := s.renderer.RenderScene(ctx, scriptPath, sceneName)
	if err != nil {
		return "", err
	}
	if err := os.Rename(videoPath, outputPath); err != nil {
		// Rename fails across filesystems; fall back to copying
		if err := copyFile(videoPath, outputPath); err != nil {
			return "", fmt.Errorf("move text slide: %w", err)
		}
	}
	return outputPath, nil
}

// SyncSegments pairs each audio segment with its rendered video (or a text
// slide substitute), matches durations, and muxes them. Segments that
// cannot be processed are skipped.
func (s *Synchronizer) SyncSegments(ctx context.Context, audioFiles, videoFiles []string, segments []Segment, outputFolder string) ([]SyncedSegment, error) {
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create sync output folder: %w", err)
	}

	var synced []SyncedSegment
	for idx, audioPath := range audioFiles {
		n := idx + 1

		audioDuration, err := s.Duration(ctx, audioPath)
		if err != nil {
			s.logger.Warn("synchronizer", "could not probe audio duration, skipping segment", map[string]interface{}{
				"segment": n,
				"error":   err.Error(),
			})
			continue
		}

		var videoPath, videoLabel string
		if idx < len(videoFiles) {
			adjusted := filepath.Join(outputFolder, fmt.Sprintf("adjusted_%02d.mp4", n))
			videoPath = s.AdjustDuration(ctx, videoFiles[idx], audioDuration, adjusted)
			videoLabel = videoFiles[idx]
		} else {
			// No rendered scene for this narration: substitute a text slide
			text := fmt.Sprintf("Segment %d", n)
			if idx < len(segments) && strings.TrimSpace(segments[idx].Audio) != "" {
				text = segments[idx].Audio
			}

			slide := filepath.Join(outputFolder, fmt.Sprintf("text_slide_%02d.mp4", n))
			videoPath, err = s.GenerateTextSlide(ctx, text, audioDuration, slide, n)
			if err != nil {
				s.logger.Warn("synchronizer", "could not generate text slide, skipping segment", map[string]interface{}{
					"segment": n,
					"error":   err.Error(),
				})
				continue
			}
			videoLabel = "text_slide"
		}

		outputPath := filepath.Join(outputFolder, fmt.Sprintf("synced_%02d.mp4", n))
		if err := s.MergeAudioVideo(ctx, videoPath, audioPath, outputPath); err != nil {
			s.logger.Error("synchronizer", "merge failed, skipping segment", map[string]interface{}{
				"segment": n,
				"error":   err.Error(),
			})
			continue
		}

		synced = append(synced, SyncedSegment{
			Index:     n,
			AudioFile: audioPath,
			VideoFile: videoLabel,
			Output:    outputPath,
		})
	}

	return synced, nil
}

// Concatenate joins synced segments into the final video via the concat
// demuxer.
func (s *Synchronizer) Concatenate(ctx context.Context, synced []SyncedSegment, outputPath string) (string, error) {
	if len(synced) == 0 {
		return "", fmt.Errorf("concatenate: no segments to join")
	}

	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	var list strings.Builder
	for _, seg := range synced {
		abs, err := filepath.Abs(seg.Output)
		if err != nil {
			abs = seg.Output
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", "'\\''"))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outputPath,
	}
	if err := s.runFFmpeg(ctx, args, 5*time.Minute); err != nil {
		return "", fmt.Errorf("concatenate: %w", err)
	}
	return outputPath, nil
}

func (s *Synchronizer) runFFmpeg(ctx context.Context, args []string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.ffmpeg, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, truncateOutput(out))
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

// wrapText breaks narration into lines of at most width characters so the
// slide stays readable.
func wrapText(text string, width int) string {
	words := strings.Fields(text)
	var lines []string
	var current []string

	for _, word := range words {
		current = append(current, word)
		if len(strings.Join(current, " ")) > width {
			if len(current) > 1 {
				current = current[:len(current)-1]
				lines = append(lines, strings.Join(current, " "))
				current = []string{word}
			} else {
				lines = append(lines, strings.Join(current, " "))
				current = nil
			}
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	return strings.Join(lines, "\n")
}

// pythonString renders text as a quoted Python string literal.
func pythonString(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
	)
	return "\"" + replacer.Replace(text) + "\""
}
