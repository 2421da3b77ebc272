package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/session"
)

// Synthesizer is the text-to-speech capability. Implementations report
// availability so the pipeline can skip audio generation instead of failing
// when no engine is installed.
type Synthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, text, outputPath string) error
}

// CommandSynthesizer shells out to an external TTS binary. The configured
// command receives the narration text on stdin and the output path as its
// final argument (piper-style engines fit this contract directly).
type CommandSynthesizer struct {
	command []string
	logger  logger.ILogger
}

func NewCommandSynthesizer(command string, log logger.ILogger) *CommandSynthesizer {
	return &CommandSynthesizer{
		command: strings.Fields(command),
		logger:  log,
	}
}

func (c *CommandSynthesizer) Available() bool {
	if len(c.command) == 0 {
		return false
	}
	_, err := exec.LookPath(c.command[0])
	return err == nil
}

func (c *CommandSynthesizer) Synthesize(ctx context.Context, text, outputPath string) error {
	args := append(append([]string{}, c.command[1:]...), outputPath)
	cmd := exec.CommandContext(ctx, c.command[0], args...)
	cmd.Stdin = strings.NewReader(text)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tts command failed: %w: %s", err, truncateOutput(out))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("tts command produced no output file: %w", err)
	}
	return nil
}

// GenerateAudioSegments synthesizes one wav per narration segment. A failed
// segment is skipped, not fatal: downstream sync substitutes a text slide.
func GenerateAudioSegments(ctx context.Context, synth Synthesizer, segments []Segment, sess *session.Session, log logger.ILogger) []string {
	if synth == nil || !synth.Available() {
		log.Warn("tts", "no TTS engine available, skipping audio generation", nil)
		return nil
	}

	audioFiles := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Audio)
		if text == "" {
			log.Warn("tts", "segment has no narration text", map[string]interface{}{
				"segment": seg.Number,
			})
			continue
		}

		outputPath := sess.Path(fmt.Sprintf("segment_%02d.wav", seg.Number), "audio")
		if err := synth.Synthesize(ctx, text, outputPath); err != nil {
			log.Error("tts", "segment synthesis failed", map[string]interface{}{
				"segment": seg.Number,
				"error":   err.Error(),
			})
			continue
		}

		audioFiles = append(audioFiles, outputPath)
	}

	log.Info("tts", "audio generation finished", map[string]interface{}{
		"generated": len(audioFiles),
		"segments":  len(segments),
	})

	return audioFiles
}

func truncateOutput(out []byte) string {
	const limit = 512
	if len(out) > limit {
		return string(out[:limit]) + "..."
	}
	return string(out)
}
