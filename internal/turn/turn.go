// Package turn defines the mutable state threading through one
// question-answering attempt, and the partial-update merge applied after
// each pipeline stage.
package turn

import "time"

// SupportLabel is the support-verification verdict for an answer.
type SupportLabel string

const (
	// SupportUnset means verification has not run yet.
	SupportUnset SupportLabel = ""
	// SupportFull means every meaningful claim is traceable to context.
	SupportFull SupportLabel = "fully_supported"
	// SupportPartial means core facts hold but the answer adds
	// interpretive phrasing absent from context.
	SupportPartial SupportLabel = "partially_supported"
	// SupportNone means the key claims are not supported by context.
	SupportNone SupportLabel = "no_support"
)

// Valid reports whether the label is one of the enumerated verdicts.
func (l SupportLabel) Valid() bool {
	switch l {
	case SupportFull, SupportPartial, SupportNone:
		return true
	}
	return false
}

// UsefulnessLabel is the usefulness verdict for an answer.
type UsefulnessLabel string

const (
	// UsefulnessUnset means the usefulness check has not run yet.
	UsefulnessUnset UsefulnessLabel = ""
	// Useful means the answer addresses what the user asked.
	Useful UsefulnessLabel = "useful"
	// NotUseful means the answer is generic, off-topic, or background only.
	NotUseful UsefulnessLabel = "not_useful"
)

// Valid reports whether the label is one of the enumerated verdicts.
func (l UsefulnessLabel) Valid() bool {
	return l == Useful || l == NotUseful
}

// Document is one retrieved passage with its source metadata.
type Document struct {
	Content  string
	Metadata map[string]any
}

// State is the record for one turn. It is owned exclusively by the
// orchestrator while the turn runs; stages never mutate it directly but
// return an Update that the orchestrator merges.
type State struct {
	// ID identifies the turn in logs and events.
	ID string
	// StartedAt is when the turn was created.
	StartedAt time.Time

	// Question is the inbound question. Immutable once set.
	Question string
	// RetrievalQuery is what is actually sent to similarity search.
	// Empty until the first rewrite; retrieval falls back to Question.
	RetrievalQuery string
	// NeedRetrieval is the retrieval-decision outcome.
	NeedRetrieval bool

	// Docs are the retrieved passages, most-similar first.
	Docs []Document
	// RelevantDocs is the order-preserving subsequence of Docs that passed
	// the relevance filter.
	RelevantDocs []Document
	// Context is the joined relevant content, or "".
	Context string

	// Answer is the current candidate answer. Overwritten by revision.
	Answer string

	// IsSup is the latest support verdict.
	IsSup SupportLabel
	// Evidence holds at most three verbatim quotes from Context.
	Evidence []string
	// Retries counts support-driven revisions. Bounded by the configured
	// maximum; strictly increases by one per revision.
	Retries int

	// IsUse is the latest usefulness verdict.
	IsUse UsefulnessLabel
	// UseReason is the one-line usefulness rationale.
	UseReason string
	// RewriteTries counts query rewrites. Bounded by the configured maximum.
	RewriteTries int

	// Steps counts stage dispatches, checked against the hard step ceiling.
	Steps int
}

// Update is a partial state change returned by a stage. Only fields whose
// pointer is non-nil (or, for slices, non-nil slices) are applied; anything
// a stage does not return is left unchanged.
type Update struct {
	RetrievalQuery *string
	NeedRetrieval  *bool
	Docs           []Document
	ResetDocs      bool
	RelevantDocs   []Document
	ResetRelevant  bool
	Context        *string
	Answer         *string
	IsSup          *SupportLabel
	Evidence       []string
	IsUse          *UsefulnessLabel
	UseReason      *string
	AddRetry       bool
	AddRewriteTry  bool
}

// Apply merges the update into the state.
func (s *State) Apply(u Update) {
	if u.RetrievalQuery != nil {
		s.RetrievalQuery = *u.RetrievalQuery
	}
	if u.NeedRetrieval != nil {
		s.NeedRetrieval = *u.NeedRetrieval
	}
	if u.ResetDocs {
		s.Docs = nil
	} else if u.Docs != nil {
		s.Docs = u.Docs
	}
	if u.ResetRelevant {
		s.RelevantDocs = nil
	} else if u.RelevantDocs != nil {
		s.RelevantDocs = u.RelevantDocs
	}
	if u.Context != nil {
		s.Context = *u.Context
	}
	if u.Answer != nil {
		s.Answer = *u.Answer
	}
	if u.IsSup != nil {
		s.IsSup = *u.IsSup
	}
	if u.Evidence != nil {
		s.Evidence = u.Evidence
	}
	if u.IsUse != nil {
		s.IsUse = *u.IsUse
	}
	if u.UseReason != nil {
		s.UseReason = *u.UseReason
	}
	if u.AddRetry {
		s.Retries++
	}
	if u.AddRewriteTry {
		s.RewriteTries++
	}
}

// EffectiveQuery returns the query to send to retrieval: the rewritten
// query when one exists, otherwise the original question.
func (s *State) EffectiveQuery() string {
	if s.RetrievalQuery != "" {
		return s.RetrievalQuery
	}
	return s.Question
}

// String helpers for Update construction. Stages return pointers for
// scalar fields; these keep call sites short.

func StringPtr(v string) *string                { return &v }
func BoolPtr(v bool) *bool                      { return &v }
func SupportPtr(v SupportLabel) *SupportLabel   { return &v }
func UsePtr(v UsefulnessLabel) *UsefulnessLabel { return &v }
