package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/turn"
)

// fakeModel scripts chat completions: each call pops the next reply, or
// returns err on every call when set.
type fakeModel struct {
	replies []string
	err     error

	calls    int
	messages [][]llms.MessageContent
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	m.messages = append(m.messages, messages)
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func newTestClient(m *fakeModel) *Client {
	return &Client{
		model:            m,
		timeout:          time.Second,
		transportRetries: 1,
		logger:           zap.NewNop(),
	}
}

func TestNeedsRetrieval(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    bool
		wantErr bool
	}{
		{"true decision", `{"should_retrieve": true}`, true, false},
		{"false decision", `{"should_retrieve": false}`, false, false},
		{"fenced reply", "```json\n{\"should_retrieve\": true}\n```", true, false},
		{"missing key", `{"retrieve": true}`, false, true},
		{"not json", `definitely yes`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeModel{replies: []string{tt.reply}})
			got, err := c.NeedsRetrieval(context.Background(), "q")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, capability.ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_TrimsAndRoutesPrompts(t *testing.T) {
	m := &fakeModel{replies: []string{"  direct answer \n"}}
	c := newTestClient(m)

	answer, err := c.Generate(context.Background(), "what is Go?", "")
	require.NoError(t, err)
	assert.Equal(t, "direct answer", answer)

	// Direct generation carries no context block.
	systemText := m.messages[0][0].Parts[0].(llms.TextContent).Text
	userText := m.messages[0][1].Parts[0].(llms.TextContent).Text
	assert.Equal(t, directGenerationSystem, systemText)
	assert.NotContains(t, userText, "Context:")

	m2 := &fakeModel{replies: []string{"grounded answer"}}
	c2 := newTestClient(m2)

	_, err = c2.Generate(context.Background(), "what is Go?", "Go is a language.")
	require.NoError(t, err)
	systemText = m2.messages[0][0].Parts[0].(llms.TextContent).Text
	userText = m2.messages[0][1].Parts[0].(llms.TextContent).Text
	assert.Equal(t, contextGenerationSystem, systemText)
	assert.Contains(t, userText, "Go is a language.")
}

func TestIsRelevant(t *testing.T) {
	c := newTestClient(&fakeModel{replies: []string{`{"is_relevant": false}`}})
	got, err := c.IsRelevant(context.Background(), "q", "doc")
	require.NoError(t, err)
	assert.False(t, got)

	c = newTestClient(&fakeModel{replies: []string{`{}`}})
	_, err = c.IsRelevant(context.Background(), "q", "doc")
	assert.ErrorIs(t, err, capability.ErrMalformed)
}

func TestVerifySupport(t *testing.T) {
	t.Run("valid labels", func(t *testing.T) {
		for _, label := range []turn.SupportLabel{turn.SupportFull, turn.SupportPartial, turn.SupportNone} {
			c := newTestClient(&fakeModel{replies: []string{
				`{"issup": "` + string(label) + `", "evidence": ["quote"]}`,
			}})
			verdict, err := c.VerifySupport(context.Background(), "q", "a", "ctx")
			require.NoError(t, err)
			assert.Equal(t, label, verdict.Label)
			assert.Equal(t, []string{"quote"}, verdict.Evidence)
		}
	})

	t.Run("label outside enumerated set", func(t *testing.T) {
		c := newTestClient(&fakeModel{replies: []string{`{"issup": "mostly_supported"}`}})
		_, err := c.VerifySupport(context.Background(), "q", "a", "ctx")
		require.Error(t, err)
		assert.ErrorIs(t, err, capability.ErrMalformed)
	})

	t.Run("evidence capped", func(t *testing.T) {
		c := newTestClient(&fakeModel{replies: []string{
			`{"issup": "fully_supported", "evidence": ["a", "b", "c", "d", "e"]}`,
		}})
		verdict, err := c.VerifySupport(context.Background(), "q", "a", "ctx")
		require.NoError(t, err)
		assert.Len(t, verdict.Evidence, maxEvidenceQuotes)
		assert.Equal(t, []string{"a", "b", "c"}, verdict.Evidence)
	})
}

func TestIsUseful(t *testing.T) {
	c := newTestClient(&fakeModel{replies: []string{
		`{"isuse": "not_useful", "reason": "too vague\nand rambling"}`,
	}})
	verdict, err := c.IsUseful(context.Background(), "q", "a")
	require.NoError(t, err)
	assert.Equal(t, turn.NotUseful, verdict.Label)
	assert.Equal(t, "too vague", verdict.Reason, "rationale truncated to first line")

	c = newTestClient(&fakeModel{replies: []string{`{"isuse": "maybe"}`}})
	_, err = c.IsUseful(context.Background(), "q", "a")
	assert.ErrorIs(t, err, capability.ErrMalformed)
}

func TestRewrite(t *testing.T) {
	c := newTestClient(&fakeModel{replies: []string{
		`{"retrieval_query": "  sharper query  "}`,
	}})
	query, err := c.Rewrite(context.Background(), "q", "prior", "a")
	require.NoError(t, err)
	assert.Equal(t, "sharper query", query)

	c = newTestClient(&fakeModel{replies: []string{`{"retrieval_query": "   "}`}})
	_, err = c.Rewrite(context.Background(), "q", "prior", "a")
	assert.ErrorIs(t, err, capability.ErrMalformed)
}

func TestGenerate_ErrorClassification(t *testing.T) {
	t.Run("deadline maps to timeout after retry", func(t *testing.T) {
		m := &fakeModel{err: context.DeadlineExceeded}
		c := newTestClient(m)

		_, err := c.NeedsRetrieval(context.Background(), "q")
		require.Error(t, err)
		assert.ErrorIs(t, err, capability.ErrTimeout)
		assert.Equal(t, 2, m.calls, "one transparent retry on a transient timeout")

		var capErr *capability.Error
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "classifier", capErr.Port)
	})

	t.Run("caller cancellation passes through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &fakeModel{err: context.Canceled}
		c := newTestClient(m)

		_, err := c.NeedsRetrieval(ctx, "q")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		var capErr *capability.Error
		assert.False(t, errors.As(err, &capErr), "cancellation is not a capability failure")
		assert.Equal(t, 1, m.calls, "no retry once the caller is gone")
	})

	t.Run("transport failure maps to unavailable", func(t *testing.T) {
		m := &fakeModel{err: errors.New("connection refused")}
		c := newTestClient(m)

		_, err := c.Generate(context.Background(), "q", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, capability.ErrUnavailable)
		assert.Equal(t, 1, m.calls, "non-timeout failures are not retried")
	})
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}
