package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/session"
	"mathviz-ai/pkg/llm"
)

// Segment is one narration unit of roughly 15-20 seconds of spoken content,
// paired with a description of the visual shown while it plays.
type Segment struct {
	Number    int    `json:"number"`
	Audio     string `json:"audio"`
	VisualCue string `json:"visual_cue"`
}

// Script is the parsed narration script for a session.
type Script struct {
	Raw      string
	Segments []Segment
}

// ScriptWriter turns an approved solution into a segmented narration script
// with a single model call. There is no retry here: a script that cannot be
// parsed aborts the session.
type ScriptWriter struct {
	provider     llm.LLMProvider
	systemPrompt string
	temperature  float64
	maxTokens    int
	logger       logger.ILogger
}

func NewScriptWriter(provider llm.LLMProvider, systemPrompt string, temperature float64, maxTokens int, log logger.ILogger) *ScriptWriter {
	return &ScriptWriter{
		provider:     provider,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
		logger:       log,
	}
}

func (w *ScriptWriter) WriteScript(ctx context.Context, solution string, sess *session.Session) (*Script, error) {
	w.logger.Info("script-writer", "generating narration script", nil)

	raw, err := w.provider.Generate(ctx, w.systemPrompt, solution,
		llm.WithTemperature(w.temperature),
		llm.WithMaxTokens(w.maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("script writer: %w", err)
	}

	if err := sess.SaveText(raw, "audio_script.txt", "script"); err != nil {
		return nil, err
	}

	segments := ParseSegments(raw)
	if len(segments) == 0 {
		return nil, fmt.Errorf("script writer: no segments found in generated script")
	}

	if err := sess.SaveJSON(segments, "segments.json", "script"); err != nil {
		return nil, err
	}
	for _, seg := range segments {
		audioName := fmt.Sprintf("segment_%02d_audio.txt", seg.Number)
		if err := sess.SaveText(seg.Audio, audioName, "audio"); err != nil {
			return nil, err
		}
		visualName := fmt.Sprintf("segment_%02d_visual.txt", seg.Number)
		if err := sess.SaveText(seg.VisualCue, visualName, "script"); err != nil {
			return nil, err
		}
	}

	w.logger.Info("script-writer", "script parsed", map[string]interface{}{
		"segments": len(segments),
	})

	return &Script{Raw: raw, Segments: segments}, nil
}

var (
	segmentHeaderRe = regexp.MustCompile(`(?i)\[SEGMENT\s+(\d+)\]`)
	audioRe         = regexp.MustCompile(`(?is)AUDIO:\s*(.*?)\s*(?:VISUAL_CUE:|\z)`)
	visualCueRe     = regexp.MustCompile(`(?is)VISUAL_CUE:\s*(.*)`)
)

// ParseSegments splits a raw script on [SEGMENT n] markers and extracts the
// AUDIO and VISUAL_CUE fields of each block. Markers are case-insensitive.
func ParseSegments(script string) []Segment {
	headers := segmentHeaderRe.FindAllStringSubmatchIndex(script, -1)
	if headers == nil {
		return nil
	}

	segments := make([]Segment, 0, len(headers))
	for i, header := range headers {
		number, err := strconv.Atoi(script[header[2]:header[3]])
		if err != nil {
			continue
		}

		start := header[1]
		end := len(script)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := script[start:end]

		var audio, visualCue string
		if m := audioRe.FindStringSubmatch(body); m != nil {
			audio = strings.TrimSpace(m[1])
		}
		if m := visualCueRe.FindStringSubmatch(body); m != nil {
			visualCue = strings.TrimSpace(m[1])
		}

		segments = append(segments, Segment{
			Number:    number,
			Audio:     audio,
			VisualCue: visualCue,
		})
	}

	return segments
}
