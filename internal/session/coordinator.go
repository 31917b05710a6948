// Package session owns the turn lifecycle at the transport boundary: one
// turn state per inbound question, many concurrent in-flight questions,
// exactly one final answer each.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/events"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/orchestrator"
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// FallbackAnswer is the user-visible reply when a turn fails internally.
// The underlying cause is logged centrally, never surfaced to the caller.
const FallbackAnswer = "Sorry, something went wrong."

// Engine runs one question to a terminal state. Satisfied by
// *orchestrator.Engine.
type Engine interface {
	Run(ctx context.Context, question string, onProgress orchestrator.ProgressFunc) (*turn.State, error)
}

// Result is the outcome of one turn as delivered to the transport.
type Result struct {
	// Answer is the final answer text. Never empty.
	Answer string
	// TurnID identifies the turn for correlation.
	TurnID string
	// Failed is true when Answer is the internal-error fallback rather
	// than a pipeline outcome.
	Failed bool
}

// Coordinator bridges the transport to the orchestrator. It is safe for
// concurrent use; each call to Answer owns its turn state exclusively and
// shares nothing with other in-flight turns.
type Coordinator struct {
	engine    Engine
	publisher events.Publisher
	logger    *logging.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(engine Engine, publisher events.Publisher, logger *logging.Logger) (*Coordinator, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Coordinator{
		engine:    engine,
		publisher: publisher,
		logger:    logger.Named("session"),
	}, nil
}

// Answer runs one turn and returns exactly one final answer.
//
// Capability failures and the step ceiling are absorbed here: the caller
// gets the fallback answer and the cause goes to the log. Cancellation is
// the one error returned, so the transport can tell a dropped client from
// a failed turn and emit nothing.
func (c *Coordinator) Answer(ctx context.Context, question string, onProgress orchestrator.ProgressFunc) (Result, error) {
	start := time.Now()

	state, err := c.engine.Run(ctx, question, onProgress)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.logger.Info(ctx, "turn canceled", zap.Error(err))
			return Result{}, err
		}

		outcome := "error"
		if errors.Is(err, orchestrator.ErrStepLimitExceeded) {
			outcome = "step_limit"
		}
		c.logTurnFailure(ctx, err)
		c.publish(ctx, state, outcome, start)

		return Result{
			Answer: FallbackAnswer,
			TurnID: state.ID,
			Failed: true,
		}, nil
	}

	c.publish(ctx, state, "answered", start)

	return Result{
		Answer: state.Answer,
		TurnID: state.ID,
	}, nil
}

// logTurnFailure records the underlying cause with its classification.
func (c *Coordinator) logTurnFailure(ctx context.Context, err error) {
	fields := []zap.Field{zap.Error(err)}

	var capErr *capability.Error
	switch {
	case errors.As(err, &capErr):
		fields = append(fields, zap.String("port", capErr.Port))
		switch {
		case errors.Is(err, capability.ErrTimeout):
			fields = append(fields, zap.String("kind", "timeout"))
		case errors.Is(err, capability.ErrMalformed):
			fields = append(fields, zap.String("kind", "malformed"))
		case errors.Is(err, capability.ErrUnavailable):
			fields = append(fields, zap.String("kind", "unavailable"))
		}
	case errors.Is(err, orchestrator.ErrStepLimitExceeded):
		// The counter bounds should have terminated first; flag loudly.
		fields = append(fields, zap.String("kind", "step_limit"))
	}

	c.logger.Error(ctx, "turn failed", fields...)
}

func (c *Coordinator) publish(ctx context.Context, state *turn.State, outcome string, start time.Time) {
	c.publisher.PublishTurnCompleted(ctx, events.TurnCompleted{
		TurnID:       state.ID,
		SessionID:    logging.SessionIDFromContext(ctx),
		Outcome:      outcome,
		Steps:        state.Steps,
		Retries:      state.Retries,
		RewriteTries: state.RewriteTries,
		Duration:     time.Since(start),
	})
}
