package pipeline

import (
	"context"
	"fmt"

	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/session"
	"mathviz-ai/pkg/llm"
)

// Solver produces candidate solutions for a math problem.
type Solver struct {
	provider     llm.LLMProvider
	systemPrompt string
	temperature  float64
	topP         float64
	maxTokens    int
	logger       logger.ILogger
}

func NewSolver(provider llm.LLMProvider, systemPrompt string, temperature, topP float64, maxTokens int, log logger.ILogger) *Solver {
	return &Solver{
		provider:     provider,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		topP:         topP,
		maxTokens:    maxTokens,
		logger:       log,
	}
}

// Solve generates one solution attempt and writes it to the session before
// returning. The query already embeds rejection feedback on retries.
func (s *Solver) Solve(ctx context.Context, query string, sess *session.Session, attempt int) (string, error) {
	s.logger.Info("solver", "generating solution", map[string]interface{}{
		"attempt": attempt,
	})

	solution, err := s.provider.Generate(ctx, s.systemPrompt, query,
		llm.WithTemperature(s.temperature),
		llm.WithTopP(s.topP),
		llm.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("solver attempt %d: %w", attempt, err)
	}

	filename := fmt.Sprintf("solution_attempt_%d.txt", attempt)
	if err := sess.SaveText(solution, filename, "solver"); err != nil {
		return "", err
	}

	return solution, nil
}

// BuildRetryQuery embeds the rejection rationale from the previous attempt
// so the next attempt can address the reviewer's findings.
func BuildRetryQuery(originalProblem, evaluation string) string {
	return fmt.Sprintf(`Original Problem:
%s

Previous Solution Issues:
%s

Please solve this problem again, addressing the issues identified in the evaluation above.
Ensure all steps are correct and the proof is rigorous.`, originalProblem, evaluation)
}
