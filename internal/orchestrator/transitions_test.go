package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/turn"
)

func testLimits() Limits {
	return Limits{
		MaxRetries:           10,
		MaxRewriteTries:      3,
		MaxSteps:             80,
		TopK:                 4,
		RelevanceConcurrency: 4,
	}
}

// resolve follows one transition for the given state.
func resolve(t *testing.T, table map[State]Transition, from State, s *turn.State) State {
	t.Helper()
	tr, ok := table[from]
	require.True(t, ok, "no transition for state %s", from)
	if tr.Route != nil {
		return tr.Route(s)
	}
	return tr.Next
}

func TestTransitions_Totality(t *testing.T) {
	table := Transitions(testLimits())

	nonTerminal := []State{
		StateDecideRetrieval, StateGenerateDirect, StateRetrieve,
		StateFilterRelevance, StateGenerateFromContext, StateVerifySupport,
		StateReviseAnswer, StateCheckUsefulness, StateRewriteQuestion,
		StateNoAnswer,
	}
	for _, state := range nonTerminal {
		tr, ok := table[state]
		require.True(t, ok, "state %s has no transition", state)
		assert.True(t, tr.Next != "" || tr.Route != nil, "state %s has neither edge", state)
	}

	_, ok := table[StateEnd]
	assert.False(t, ok, "terminal state must not have outgoing edges")
}

func TestTransitions_DecideRetrieval(t *testing.T) {
	table := Transitions(testLimits())

	assert.Equal(t, StateRetrieve,
		resolve(t, table, StateDecideRetrieval, &turn.State{NeedRetrieval: true}))
	assert.Equal(t, StateGenerateDirect,
		resolve(t, table, StateDecideRetrieval, &turn.State{NeedRetrieval: false}))
}

func TestTransitions_FilterRelevance(t *testing.T) {
	table := Transitions(testLimits())

	withDocs := &turn.State{RelevantDocs: []turn.Document{{Content: "x"}}}
	assert.Equal(t, StateGenerateFromContext, resolve(t, table, StateFilterRelevance, withDocs))

	assert.Equal(t, StateNoAnswer, resolve(t, table, StateFilterRelevance, &turn.State{}))
}

func TestTransitions_VerifySupport(t *testing.T) {
	table := Transitions(testLimits())

	tests := []struct {
		name    string
		issup   turn.SupportLabel
		retries int
		want    State
	}{
		{"fully supported proceeds", turn.SupportFull, 0, StateCheckUsefulness},
		{"partial support revises", turn.SupportPartial, 0, StateReviseAnswer},
		{"no support revises", turn.SupportNone, 9, StateReviseAnswer},
		{"budget exhausted escapes on partial", turn.SupportPartial, 10, StateCheckUsefulness},
		{"budget exhausted escapes even on no support", turn.SupportNone, 10, StateCheckUsefulness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &turn.State{IsSup: tt.issup, Retries: tt.retries}
			assert.Equal(t, tt.want, resolve(t, table, StateVerifySupport, s))
		})
	}
}

func TestTransitions_CheckUsefulness(t *testing.T) {
	table := Transitions(testLimits())

	tests := []struct {
		name         string
		isuse        turn.UsefulnessLabel
		rewriteTries int
		want         State
	}{
		{"useful terminates", turn.Useful, 0, StateEnd},
		{"not useful rewrites", turn.NotUseful, 0, StateRewriteQuestion},
		{"not useful rewrites at budget edge", turn.NotUseful, 2, StateRewriteQuestion},
		{"rewrite budget exhausted gives up", turn.NotUseful, 3, StateNoAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &turn.State{IsUse: tt.isuse, RewriteTries: tt.rewriteTries}
			assert.Equal(t, tt.want, resolve(t, table, StateCheckUsefulness, s))
		})
	}
}

func TestTransitions_FixedEdges(t *testing.T) {
	table := Transitions(testLimits())
	s := &turn.State{}

	assert.Equal(t, StateEnd, resolve(t, table, StateGenerateDirect, s))
	assert.Equal(t, StateFilterRelevance, resolve(t, table, StateRetrieve, s))
	assert.Equal(t, StateVerifySupport, resolve(t, table, StateGenerateFromContext, s))
	assert.Equal(t, StateVerifySupport, resolve(t, table, StateReviseAnswer, s))
	assert.Equal(t, StateRetrieve, resolve(t, table, StateRewriteQuestion, s))
	assert.Equal(t, StateEnd, resolve(t, table, StateNoAnswer, s))
}

func TestTransitions_LimitsAreNotLiterals(t *testing.T) {
	// A tighter budget changes routing without touching the table code.
	limits := testLimits()
	limits.MaxRetries = 1
	limits.MaxRewriteTries = 1
	table := Transitions(limits)

	s := &turn.State{IsSup: turn.SupportPartial, Retries: 1}
	assert.Equal(t, StateCheckUsefulness, resolve(t, table, StateVerifySupport, s))

	s = &turn.State{IsUse: turn.NotUseful, RewriteTries: 1}
	assert.Equal(t, StateNoAnswer, resolve(t, table, StateCheckUsefulness, s))
}
