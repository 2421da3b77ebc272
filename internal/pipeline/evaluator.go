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

// Verdict is the structured judgment of one solution attempt.
type Verdict struct {
	Accepted bool
	Report   string
}

// Evaluator reviews candidate solutions in a judge role.
type Evaluator struct {
	provider     llm.LLMProvider
	systemPrompt string
	temperature  float64
	maxTokens    int
	logger       logger.ILogger
}

func NewEvaluator(provider llm.LLMProvider, systemPrompt string, temperature float64, maxTokens int, log logger.ILogger) *Evaluator {
	return &Evaluator{
		provider:     provider,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
		logger:       log,
	}
}

// Evaluate reviews one solution attempt and writes the evaluation report to
// the session before returning the verdict.
func (e *Evaluator) Evaluate(ctx context.Context, solution string, sess *session.Session, attempt int) (Verdict, error) {
	e.logger.Info("evaluator", "reviewing solution", map[string]interface{}{
		"attempt": attempt,
	})

	report, err := e.provider.Generate(ctx, e.systemPrompt, solution,
		llm.WithTemperature(e.temperature),
		llm.WithMaxTokens(e.maxTokens),
	)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluator attempt %d: %w", attempt, err)
	}

	filename := fmt.Sprintf("evaluation_attempt_%d.txt", attempt)
	if err := sess.SaveText(report, filename, "evaluator"); err != nil {
		return Verdict{}, err
	}

	return Verdict{
		Accepted: parseEvaluation(report),
		Report:   report,
	}, nil
}

var (
	assessmentRe = regexp.MustCompile(`overall assessment:\s*\[?(correct|incorrect|needs_revision)`)
	scoreRe      = regexp.MustCompile(`correctness score:\s*\[?(\d+)`)
)

// parseEvaluation extracts an accept/reject decision from the free-text
// review. Anything that cannot be parsed counts as a rejection: the loop
// fails closed toward "keep trying", never toward "declare success".
func parseEvaluation(report string) bool {
	lower := strings.ToLower(report)

	if strings.Contains(lower, "overall assessment:") {
		if m := assessmentRe.FindStringSubmatch(lower); m != nil {
			return m[1] == "correct"
		}
	}

	if idx := strings.Index(lower, "final verdict:"); idx >= 0 {
		verdict := lower[idx+len("final verdict:"):]
		if len(verdict) > 200 {
			verdict = verdict[:200]
		}
		if strings.Contains(verdict, "yes") && strings.Contains(verdict, "suitable") &&
			!strings.Contains(verdict, "not suitable") {
			return true
		}
	}

	if m := scoreRe.FindStringSubmatch(lower); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			// Only near-perfect reviews pass
			return score >= 9
		}
	}

	return false
}
