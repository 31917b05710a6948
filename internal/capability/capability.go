// Package capability defines the typed ports the answer pipeline consumes:
// generation, classification, judging, retrieval, and query rewriting.
//
// Ports are pure contracts. Implementations live elsewhere (the langchaingo
// OpenAI client under capability/openai, the vector-store retriever under
// retrieval) and are responsible for validating raw model output into the
// exact enumerated result types; a validation failure is ErrMalformed at the
// boundary, never a silent default verdict.
package capability

import (
	"context"

	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// Classifier decides whether a question needs document retrieval.
// Bias when uncertain: retrieve.
type Classifier interface {
	NeedsRetrieval(ctx context.Context, question string) (bool, error)
}

// Generator produces an answer, from general knowledge when context is
// empty, or strictly from the supplied context otherwise.
type Generator interface {
	Generate(ctx context.Context, question, context_ string) (string, error)
}

// Retriever returns the top-k most similar documents for a query,
// most-similar first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]turn.Document, error)
}

// RelevanceJudge decides whether one document is topically relevant to the
// question. Bias when uncertain: relevant (recall over precision; strict
// grounding is checked later).
type RelevanceJudge interface {
	IsRelevant(ctx context.Context, question, document string) (bool, error)
}

// SupportVerdict is the result of support verification.
type SupportVerdict struct {
	Label turn.SupportLabel
	// Evidence holds at most three short verbatim quotes from context.
	Evidence []string
}

// SupportJudge verifies whether an answer is grounded in the context.
type SupportJudge interface {
	VerifySupport(ctx context.Context, question, answer, context_ string) (SupportVerdict, error)
}

// Reviser rewrites the answer as a bulleted list of verbatim quotes from
// the context, with no added prose.
type Reviser interface {
	Revise(ctx context.Context, question, answer, context_ string) (string, error)
}

// UsefulnessVerdict is the result of the usefulness check.
type UsefulnessVerdict struct {
	Label turn.UsefulnessLabel
	// Reason is a one-line rationale.
	Reason string
}

// UsefulnessJudge decides whether the answer actually addresses the
// question, independent of grounding.
type UsefulnessJudge interface {
	IsUseful(ctx context.Context, question, answer string) (UsefulnessVerdict, error)
}

// QueryRewriter produces a short retrieval-oriented query (6-16 words)
// preserving key entities, without answering the question.
type QueryRewriter interface {
	Rewrite(ctx context.Context, question, priorQuery, answer string) (string, error)
}

// Ports bundles every capability the orchestrator consumes. Clients are
// constructed once per process and shared across concurrent turns; all
// implementations must be safe for concurrent use.
type Ports struct {
	Classifier Classifier
	Generator  Generator
	Retriever  Retriever
	Relevance  RelevanceJudge
	Support    SupportJudge
	Reviser    Reviser
	Usefulness UsefulnessJudge
	Rewriter   QueryRewriter
}
