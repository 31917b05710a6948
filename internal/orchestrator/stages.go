package orchestrator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// contextSeparator joins relevant document contents into the context block.
const contextSeparator = "\n\n---\n\n"

// StageFunc consumes the turn state and returns a partial update. Stages
// never mutate the state directly; the engine merges the update after the
// call returns.
type StageFunc func(ctx context.Context, s *turn.State) (turn.Update, error)

// stages binds the capability ports into one StageFunc per state.
type stages struct {
	ports  capability.Ports
	limits Limits
}

func (st *stages) byState() map[State]StageFunc {
	return map[State]StageFunc{
		StateDecideRetrieval:     st.decideRetrieval,
		StateGenerateDirect:      st.generateDirect,
		StateRetrieve:            st.retrieve,
		StateFilterRelevance:     st.filterRelevance,
		StateGenerateFromContext: st.generateFromContext,
		StateVerifySupport:       st.verifySupport,
		StateReviseAnswer:        st.reviseAnswer,
		StateCheckUsefulness:     st.checkUsefulness,
		StateRewriteQuestion:     st.rewriteQuestion,
		StateNoAnswer:            st.noAnswer,
	}
}

func (st *stages) decideRetrieval(ctx context.Context, s *turn.State) (turn.Update, error) {
	need, err := st.ports.Classifier.NeedsRetrieval(ctx, s.Question)
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{NeedRetrieval: turn.BoolPtr(need)}, nil
}

func (st *stages) generateDirect(ctx context.Context, s *turn.State) (turn.Update, error) {
	answer, err := st.ports.Generator.Generate(ctx, s.Question, "")
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{Answer: turn.StringPtr(answer)}, nil
}

func (st *stages) retrieve(ctx context.Context, s *turn.State) (turn.Update, error) {
	docs, err := st.ports.Retriever.Retrieve(ctx, s.EffectiveQuery(), st.limits.TopK)
	if err != nil {
		return turn.Update{}, err
	}
	if docs == nil {
		docs = []turn.Document{}
	}
	return turn.Update{Docs: docs}, nil
}

// filterRelevance judges every retrieved document independently. Calls run
// concurrently up to the configured limit; results are addressed by index
// so the kept subsequence always matches the original retrieval order, not
// call-completion order.
func (st *stages) filterRelevance(ctx context.Context, s *turn.State) (turn.Update, error) {
	keep := make([]bool, len(s.Docs))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(st.limits.RelevanceConcurrency)

	for i := range s.Docs {
		i := i
		g.Go(func() error {
			relevant, err := st.ports.Relevance.IsRelevant(groupCtx, s.Question, s.Docs[i].Content)
			if err != nil {
				return err
			}
			keep[i] = relevant
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return turn.Update{}, err
	}

	relevant := make([]turn.Document, 0, len(s.Docs))
	for i, doc := range s.Docs {
		if keep[i] {
			relevant = append(relevant, doc)
		}
	}
	return turn.Update{RelevantDocs: relevant}, nil
}

func (st *stages) generateFromContext(ctx context.Context, s *turn.State) (turn.Update, error) {
	parts := make([]string, len(s.RelevantDocs))
	for i, doc := range s.RelevantDocs {
		parts[i] = doc.Content
	}
	context_ := strings.TrimSpace(strings.Join(parts, contextSeparator))

	if context_ == "" {
		// Nothing to ground on; skip the generator entirely.
		return turn.Update{
			Answer:  turn.StringPtr(NoAnswerText),
			Context: turn.StringPtr(""),
		}, nil
	}

	answer, err := st.ports.Generator.Generate(ctx, s.Question, context_)
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{
		Answer:  turn.StringPtr(answer),
		Context: turn.StringPtr(context_),
	}, nil
}

func (st *stages) verifySupport(ctx context.Context, s *turn.State) (turn.Update, error) {
	verdict, err := st.ports.Support.VerifySupport(ctx, s.Question, s.Answer, s.Context)
	if err != nil {
		return turn.Update{}, err
	}
	evidence := verdict.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	return turn.Update{
		IsSup:    turn.SupportPtr(verdict.Label),
		Evidence: evidence,
	}, nil
}

func (st *stages) reviseAnswer(ctx context.Context, s *turn.State) (turn.Update, error) {
	revised, err := st.ports.Reviser.Revise(ctx, s.Question, s.Answer, s.Context)
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{
		Answer:   turn.StringPtr(revised),
		AddRetry: true,
	}, nil
}

func (st *stages) checkUsefulness(ctx context.Context, s *turn.State) (turn.Update, error) {
	verdict, err := st.ports.Usefulness.IsUseful(ctx, s.Question, s.Answer)
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{
		IsUse:     turn.UsePtr(verdict.Label),
		UseReason: turn.StringPtr(verdict.Reason),
	}, nil
}

// rewriteQuestion produces a fresh retrieval query and clears the document
// state so the next pass re-retrieves from scratch.
func (st *stages) rewriteQuestion(ctx context.Context, s *turn.State) (turn.Update, error) {
	query, err := st.ports.Rewriter.Rewrite(ctx, s.Question, s.RetrievalQuery, s.Answer)
	if err != nil {
		return turn.Update{}, err
	}
	return turn.Update{
		RetrievalQuery: turn.StringPtr(query),
		AddRewriteTry:  true,
		ResetDocs:      true,
		ResetRelevant:  true,
		Context:        turn.StringPtr(""),
	}, nil
}

// noAnswer is idempotent: no capability calls, same output for same state.
func (st *stages) noAnswer(_ context.Context, _ *turn.State) (turn.Update, error) {
	return turn.Update{
		Answer:  turn.StringPtr(NoAnswerText),
		Context: turn.StringPtr(""),
	}, nil
}
