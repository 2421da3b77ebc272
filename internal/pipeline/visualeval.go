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

// VisualEvaluator reviews generated Manim source against the narration it is
// supposed to illustrate. The review is advisory: the report is kept with
// the session artifacts and a negative verdict is logged, not fatal.
type VisualEvaluator struct {
	provider     llm.LLMProvider
	systemPrompt string
	temperature  float64
	maxTokens    int
	logger       logger.ILogger
}

func NewVisualEvaluator(provider llm.LLMProvider, systemPrompt string, temperature float64, maxTokens int, log logger.ILogger) *VisualEvaluator {
	return &VisualEvaluator{
		provider:     provider,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
		logger:       log,
	}
}

// Evaluate reviews the Manim code and saves the report. Returns whether the
// code was approved along with the report text.
func (v *VisualEvaluator) Evaluate(ctx context.Context, script *Script, manimCode string, sess *session.Session) (bool, string, error) {
	v.logger.Info("visual-evaluator", "reviewing visualization source", nil)

	runTimes := ExtractRunTimes(manimCode)

	payload := fmt.Sprintf(`SESSION OVERVIEW:
- Narration segments: %d
- Detected run_time count: %d
- Detected run_times (seconds): %s

AUDIO SCRIPT (narration):
%s

MANIM SCRIPT (to evaluate):
%s`, len(script.Segments), len(runTimes), formatRunTimes(runTimes), script.Raw, manimCode)

	report, err := v.provider.Generate(ctx, v.systemPrompt, payload,
		llm.WithTemperature(v.temperature),
		llm.WithMaxTokens(v.maxTokens),
	)
	if err != nil {
		return false, "", fmt.Errorf("visual evaluator: %w", err)
	}

	if err := sess.SaveText(report, "visual_evaluation.txt", "video"); err != nil {
		return false, "", err
	}

	approved := parseVisualVerdict(report)
	if !approved {
		v.logger.Warn("visual-evaluator", "visualization source flagged for revision", nil)
	}

	return approved, report, nil
}

var (
	runTimeRe       = regexp.MustCompile(`run_time\s*=\s*([0-9]*\.?[0-9]+)`)
	visualVerdictRe = regexp.MustCompile(`(?i)overall verdict:\s*\[?(approved|revise|reject)`)
)

// ExtractRunTimes collects every run_time literal from Manim source.
func ExtractRunTimes(manimCode string) []float64 {
	matches := runTimeRe.FindAllStringSubmatch(manimCode, -1)
	times := make([]float64, 0, len(matches))
	for _, m := range matches {
		if t, err := strconv.ParseFloat(m[1], 64); err == nil {
			times = append(times, t)
		}
	}
	return times
}

func parseVisualVerdict(report string) bool {
	if m := visualVerdictRe.FindStringSubmatch(report); m != nil {
		return strings.EqualFold(m[1], "approved")
	}

	lower := strings.ToLower(report)
	if strings.Contains(lower, "approved") && !strings.Contains(lower, "not approved") {
		return true
	}
	return false
}

func formatRunTimes(times []float64) string {
	if len(times) == 0 {
		return "None found"
	}
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
