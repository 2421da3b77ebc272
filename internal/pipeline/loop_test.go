package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"mathviz-ai/internal/session"
	"mathviz-ai/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// scriptedProvider returns canned responses in order and records every query
// sent to it, so tests can assert both the call sequence and prompt contents.
type scriptedProvider struct {
	responses []string
	queries   []string
	err       error
}

func (p *scriptedProvider) Generate(ctx context.Context, systemPrompt, query string, options ...llm.Option) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.queries = append(p.queries, query)
	if len(p.queries) > len(p.responses) {
		return "", errors.New("scripted provider: out of responses")
	}
	return p.responses[len(p.queries)-1], nil
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.Generate(ctx, "", history[len(history)-1].Content, options...)
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(t.TempDir(), "integrate x^2 from 0 to 1")
	require.NoError(t, err)
	return sess
}

func newTestLoop(provider llm.LLMProvider, maxRetries int) *SolveLoop {
	solver := NewSolver(provider, "solve it", 0.4, 1.0, 4000, nopLogger{})
	evaluator := NewEvaluator(provider, "judge it", 0.0, 4000, nopLogger{})
	return NewSolveLoop(solver, evaluator, maxRetries, nopLogger{})
}

func TestSolveLoopAcceptsFirstAttempt(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"the answer is 1/3",
		"Overall Assessment: [CORRECT]",
	}}
	sess := newTestSession(t)

	outcome, err := newTestLoop(provider, 5).Run(context.Background(), "integrate x^2 from 0 to 1", sess)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, StateAccepted, outcome.State)
	assert.Equal(t, "the answer is 1/3", outcome.Solution)
	assert.Len(t, provider.queries, 2)

	final, err := os.ReadFile(sess.Path("solution_final.txt", "solver"))
	require.NoError(t, err)
	assert.Equal(t, "the answer is 1/3", string(final))
}

func TestSolveLoopRetriesWithRejectionContext(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"wrong answer",
		"Overall Assessment: [INCORRECT]\nThe antiderivative is wrong.",
		"the answer is 1/3",
		"Overall Assessment: [CORRECT]",
	}}
	sess := newTestSession(t)

	outcome, err := newTestLoop(provider, 5).Run(context.Background(), "integrate x^2 from 0 to 1", sess)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, StateAccepted, outcome.State)

	// The second solver prompt carries both the original problem and the
	// rejection rationale from attempt one.
	require.Len(t, provider.queries, 4)
	retryQuery := provider.queries[2]
	assert.Contains(t, retryQuery, "integrate x^2 from 0 to 1")
	assert.Contains(t, retryQuery, "The antiderivative is wrong.")

	_, err = os.Stat(sess.Path("solution_attempt_2.txt", "solver"))
	assert.NoError(t, err)
}

func TestSolveLoopExhaustionKeepsLastAttempt(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"attempt one", "Overall Assessment: [INCORRECT]",
		"attempt two", "Overall Assessment: [INCORRECT]",
		"attempt three", "Overall Assessment: [NEEDS_REVISION]",
	}}
	sess := newTestSession(t)

	outcome, err := newTestLoop(provider, 3).Run(context.Background(), "integrate x^2 from 0 to 1", sess)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, StateExhaustedAccepted, outcome.State)
	assert.Equal(t, "attempt three", outcome.Solution)
	assert.Len(t, provider.queries, 6)

	// The last rejection stays on file next to the kept solution.
	report, err := os.ReadFile(sess.Path("evaluation_final.txt", "evaluator"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "NEEDS_REVISION")
}

func TestSolveLoopUnparseableVerdictCountsAsRejection(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"attempt one", "I am not sure what to make of this.",
		"attempt two", "Overall Assessment: [CORRECT]",
	}}
	sess := newTestSession(t)

	outcome, err := newTestLoop(provider, 5).Run(context.Background(), "integrate x^2 from 0 to 1", sess)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, StateAccepted, outcome.State)
}

func TestSolveLoopProviderErrorAborts(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	sess := newTestSession(t)

	outcome, err := newTestLoop(provider, 5).Run(context.Background(), "integrate x^2 from 0 to 1", sess)
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), "connection refused")
}
