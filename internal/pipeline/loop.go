package pipeline

import (
	"context"
	"fmt"

	"mathviz-ai/internal/pkg/logger"
	"mathviz-ai/internal/session"
)

// LoopState is the state of the solve-evaluate loop for one problem.
type LoopState string

const (
	// StateAttempting: a candidate is being generated or reviewed.
	StateAttempting LoopState = "Attempting"
	// StateAccepted: the reviewer approved an attempt before the ceiling.
	StateAccepted LoopState = "Accepted"
	// StateExhaustedAccepted: the retry ceiling was reached and the last
	// attempt was kept despite rejection (degraded success).
	StateExhaustedAccepted LoopState = "ExhaustedAccepted"
)

// Outcome is the result of a finished solve-evaluate loop. Exactly one
// approved solution exists per session once the loop terminates.
type Outcome struct {
	Solution   string
	Evaluation string
	Attempts   int
	State      LoopState
}

// SolveLoop chains the solver and evaluator with a bounded retry ceiling.
// Attempts are strictly sequential: each retry prompt depends on the
// previous rejection rationale.
type SolveLoop struct {
	solver     *Solver
	evaluator  *Evaluator
	maxRetries int
	logger     logger.ILogger
}

func NewSolveLoop(solver *Solver, evaluator *Evaluator, maxRetries int, log logger.ILogger) *SolveLoop {
	return &SolveLoop{
		solver:     solver,
		evaluator:  evaluator,
		maxRetries: maxRetries,
		logger:     log,
	}
}

// Run produces the approved solution for a problem. A rejected attempt at
// the ceiling still terminates successfully with that attempt; only
// transport failures from the model client abort the problem, and a failed
// call never consumes a retry. Every attempt and every verdict is on file
// in the session before Run returns.
func (l *SolveLoop) Run(ctx context.Context, problem string, sess *session.Session) (*Outcome, error) {
	query := problem
	state := StateAttempting

	var solution string
	var verdict Verdict

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		var err error

		solution, err = l.solver.Solve(ctx, query, sess, attempt)
		if err != nil {
			return nil, err
		}

		verdict, err = l.evaluator.Evaluate(ctx, solution, sess, attempt)
		if err != nil {
			return nil, err
		}

		if verdict.Accepted {
			state = StateAccepted
			l.logger.Info("solve-loop", "solution approved", map[string]interface{}{
				"attempts": attempt,
			})
			return l.finish(sess, &Outcome{
				Solution:   solution,
				Evaluation: verdict.Report,
				Attempts:   attempt,
				State:      state,
			})
		}

		if attempt == l.maxRetries {
			break
		}

		l.logger.Info("solve-loop", "solution rejected, retrying", map[string]interface{}{
			"attempt": attempt,
			"ceiling": l.maxRetries,
		})
		query = BuildRetryQuery(problem, verdict.Report)
	}

	// Ceiling reached: keep the last attempt, rejection rationale stays on
	// file so the mismatch is auditable.
	state = StateExhaustedAccepted
	l.logger.Warn("solve-loop", "retry ceiling reached, using last solution", map[string]interface{}{
		"attempts": l.maxRetries,
	})

	return l.finish(sess, &Outcome{
		Solution:   solution,
		Evaluation: verdict.Report,
		Attempts:   l.maxRetries,
		State:      state,
	})
}

func (l *SolveLoop) finish(sess *session.Session, outcome *Outcome) (*Outcome, error) {
	if err := sess.SaveText(outcome.Solution, "solution_final.txt", "solver"); err != nil {
		return nil, fmt.Errorf("save final solution: %w", err)
	}
	if err := sess.SaveText(outcome.Evaluation, "evaluation_final.txt", "evaluator"); err != nil {
		return nil, fmt.Errorf("save final evaluation: %w", err)
	}
	return outcome, nil
}
