package orchestrator

import (
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// Transition describes where control goes after a state's stage returns.
// Exactly one of Next and Route is set: Next for a fixed edge, Route for a
// predicate over the merged turn state.
type Transition struct {
	Next  State
	Route func(s *turn.State) State
}

// Transitions returns the full transition table for the given budgets.
// The table is pure data plus pure predicates; it performs no capability
// calls and is independently testable.
func Transitions(limits Limits) map[State]Transition {
	return map[State]Transition{
		StateDecideRetrieval: {Route: func(s *turn.State) State {
			if s.NeedRetrieval {
				return StateRetrieve
			}
			return StateGenerateDirect
		}},

		StateGenerateDirect: {Next: StateEnd},

		StateRetrieve: {Next: StateFilterRelevance},

		StateFilterRelevance: {Route: func(s *turn.State) State {
			if len(s.RelevantDocs) > 0 {
				return StateGenerateFromContext
			}
			return StateNoAnswer
		}},

		StateGenerateFromContext: {Next: StateVerifySupport},

		StateVerifySupport: {Route: func(s *turn.State) State {
			if s.IsSup == turn.SupportFull {
				return StateCheckUsefulness
			}
			// Best-effort escape: once the revision budget is exhausted the
			// answer proceeds to the usefulness check regardless of verdict.
			if s.Retries >= limits.MaxRetries {
				return StateCheckUsefulness
			}
			return StateReviseAnswer
		}},

		StateReviseAnswer: {Next: StateVerifySupport},

		StateCheckUsefulness: {Route: func(s *turn.State) State {
			if s.IsUse == turn.Useful {
				return StateEnd
			}
			if s.RewriteTries < limits.MaxRewriteTries {
				return StateRewriteQuestion
			}
			return StateNoAnswer
		}},

		StateRewriteQuestion: {Next: StateRetrieve},

		StateNoAnswer: {Next: StateEnd},
	}
}
