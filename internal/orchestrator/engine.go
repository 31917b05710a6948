package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// Progress reports a stage dispatch during a run.
type Progress struct {
	State State
	Step  int
}

// ProgressFunc receives progress updates during execution. Calls are
// serialized per turn; implementations must not block for long.
type ProgressFunc func(progress Progress)

// Engine walks the transition table for one question at a time. A single
// Engine is shared by all concurrent turns; per-turn state lives entirely
// in the turn.State owned by each Run call.
type Engine struct {
	limits      Limits
	transitions map[State]Transition
	stages      map[State]StageFunc
	logger      *logging.Logger
	metrics     *Metrics
}

// NewEngine creates an engine over the given capability ports and budgets.
func NewEngine(ports capability.Ports, limits Limits, logger *logging.Logger) (*Engine, error) {
	if ports.Classifier == nil || ports.Generator == nil || ports.Retriever == nil ||
		ports.Relevance == nil || ports.Support == nil || ports.Reviser == nil ||
		ports.Usefulness == nil || ports.Rewriter == nil {
		return nil, fmt.Errorf("all capability ports are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	st := &stages{ports: ports, limits: limits}
	return &Engine{
		limits:      limits,
		transitions: Transitions(limits),
		stages:      st.byState(),
		logger:      logger.Named("orchestrator"),
		metrics:     NewMetrics(logger.Underlying()),
	}, nil
}

// Run answers one question. It returns the finished turn state with a
// non-empty Answer, or an error when a capability fails or the step
// ceiling is hit. Stage calls are strictly sequential; cancellation of ctx
// stops the walk before the next dispatch and propagates into any
// in-flight capability call.
func (e *Engine) Run(ctx context.Context, question string, onProgress ProgressFunc) (*turn.State, error) {
	state := &turn.State{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Question:  question,
	}
	ctx = logging.ContextWithTurnID(ctx, state.ID)

	start := time.Now()
	current := StateDecideRetrieval

	for current != StateEnd {
		select {
		case <-ctx.Done():
			e.metrics.RecordTurn(ctx, "canceled", time.Since(start))
			return state, ctx.Err()
		default:
		}

		state.Steps++
		if state.Steps > e.limits.MaxSteps {
			// Routing bug or a judge that never converges; the turn dies
			// loudly instead of cycling forever.
			e.logger.Error(ctx, "step limit exceeded",
				zap.Int("max_steps", e.limits.MaxSteps),
				zap.String("state", string(current)),
				zap.Int("retries", state.Retries),
				zap.Int("rewrite_tries", state.RewriteTries),
			)
			e.metrics.RecordTurn(ctx, "step_limit", time.Since(start))
			return state, fmt.Errorf("%w: %d dispatches reached in state %s",
				ErrStepLimitExceeded, e.limits.MaxSteps, current)
		}

		stage, ok := e.stages[current]
		if !ok {
			return state, fmt.Errorf("no stage bound to state %s", current)
		}

		stageStart := time.Now()
		update, err := stage(ctx, state)
		e.metrics.RecordStage(ctx, current, time.Since(stageStart), err)
		if err != nil {
			e.logger.Error(ctx, "stage failed",
				zap.String("state", string(current)),
				zap.Error(err),
			)
			e.metrics.RecordTurn(ctx, "error", time.Since(start))
			return state, fmt.Errorf("stage %s: %w", current, err)
		}
		state.Apply(update)

		e.logger.Debug(ctx, "stage completed",
			zap.String("state", string(current)),
			zap.Int("step", state.Steps),
		)
		if onProgress != nil {
			onProgress(Progress{State: current, Step: state.Steps})
		}

		next, err := e.next(current, state)
		if err != nil {
			return state, err
		}
		current = next
	}

	if state.Answer == "" {
		// Terminal stages always set an answer; an empty one here means a
		// stage regression, not a model outcome.
		e.metrics.RecordTurn(ctx, "error", time.Since(start))
		return state, fmt.Errorf("terminal state reached with empty answer")
	}

	e.logger.Info(ctx, "turn finished",
		zap.Int("steps", state.Steps),
		zap.Int("retries", state.Retries),
		zap.Int("rewrite_tries", state.RewriteTries),
		zap.String("issup", string(state.IsSup)),
		zap.String("isuse", string(state.IsUse)),
	)
	e.metrics.RecordTurn(ctx, "answered", time.Since(start))

	return state, nil
}

// next resolves the successor of the current state from the table.
func (e *Engine) next(current State, state *turn.State) (State, error) {
	t, ok := e.transitions[current]
	if !ok {
		return "", fmt.Errorf("no transition defined for state %s", current)
	}
	if t.Route != nil {
		return t.Route(state), nil
	}
	return t.Next, nil
}
