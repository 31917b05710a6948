// Package orchestrator drives one question through the answer pipeline:
// decide retrieval, retrieve, filter relevance, generate, verify support,
// revise, check usefulness, rewrite and re-retrieve — until a terminal
// stage produces the final answer or the budgets run out.
//
// The control flow is an explicit finite-state machine: a transition table
// maps each named state to a fixed successor or a pure routing predicate
// over the turn state. The table is a standalone value, unit-testable
// without any capability calls; the engine walks it, dispatches the stage
// bound to each state, merges the returned partial update, and enforces a
// hard ceiling on total dispatches independent of the revision and rewrite
// counters.
package orchestrator

import (
	"errors"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

// NoAnswerText is the terminal answer when no grounded, useful answer
// could be produced.
const NoAnswerText = "No answer found."

// ErrStepLimitExceeded means the hard global step ceiling was hit. This is
// fatal for the turn and a bug or misconfiguration signal: the
// counter-based bounds should have terminated the walk first.
var ErrStepLimitExceeded = errors.New("orchestrator step limit exceeded")

// State is a named pipeline state.
type State string

const (
	// StateDecideRetrieval classifies whether the question needs retrieval.
	StateDecideRetrieval State = "decide_retrieval"
	// StateGenerateDirect answers from general knowledge. Terminal stage.
	StateGenerateDirect State = "generate_direct"
	// StateRetrieve fetches the top-k similar documents.
	StateRetrieve State = "retrieve"
	// StateFilterRelevance keeps only topically relevant documents.
	StateFilterRelevance State = "is_relevant"
	// StateGenerateFromContext answers strictly from joined context.
	StateGenerateFromContext State = "generate_from_context"
	// StateVerifySupport judges whether the answer is grounded.
	StateVerifySupport State = "is_sup"
	// StateReviseAnswer rewrites the answer as verbatim quotes.
	StateReviseAnswer State = "revise_answer"
	// StateCheckUsefulness judges whether the answer addresses the question.
	StateCheckUsefulness State = "is_use"
	// StateRewriteQuestion produces a fresh retrieval query and forces
	// full re-retrieval.
	StateRewriteQuestion State = "rewrite_question"
	// StateNoAnswer emits the no-answer terminal text.
	StateNoAnswer State = "no_answer_found"
	// StateEnd marks termination; no stage is bound to it.
	StateEnd State = "end"
)

// Limits is the budget value object passed into the orchestrator at
// construction. No limit appears as a literal in transition logic.
type Limits struct {
	// MaxRetries bounds support-driven revisions.
	MaxRetries int
	// MaxRewriteTries bounds query rewrites.
	MaxRewriteTries int
	// MaxSteps is the hard ceiling on stage dispatches per turn.
	MaxSteps int
	// TopK is the retrieval depth.
	TopK int
	// RelevanceConcurrency bounds parallel relevance-judge calls.
	RelevanceConcurrency int
}

// LimitsFromConfig builds Limits from the configuration surface.
func LimitsFromConfig(turnCfg config.TurnConfig, retrievalCfg config.RetrievalConfig) Limits {
	return Limits{
		MaxRetries:           turnCfg.MaxRetries,
		MaxRewriteTries:      turnCfg.MaxRewriteTries,
		MaxSteps:             turnCfg.MaxSteps,
		TopK:                 retrievalCfg.TopK,
		RelevanceConcurrency: turnCfg.RelevanceConcurrency,
	}
}
