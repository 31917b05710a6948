// Package openai implements the chat-model capability ports on top of
// langchaingo's OpenAI-compatible client.
//
// Every port call carries a bounded timeout and classifies failures at the
// boundary: deadline -> ErrTimeout, transport -> ErrUnavailable, schema
// violations in the model's reply -> ErrMalformed. One transparent retry
// after a transient timeout is a local transport policy, unrelated to the
// turn-level revision and rewrite counters.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/config"
)

// Client implements every chat-backed capability port: Classifier,
// Generator, RelevanceJudge, SupportJudge, Reviser, UsefulnessJudge and
// QueryRewriter. It is safe for concurrent use.
type Client struct {
	model            llms.Model
	timeout          time.Duration
	transportRetries int
	logger           *zap.Logger
}

// New creates a Client from config.
func New(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey.Value()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	return &Client{
		model:            model,
		timeout:          cfg.Timeout.Duration(),
		transportRetries: cfg.TransportRetries,
		logger:           logger,
	}, nil
}

// Ports returns the capability bundle backed by this client, with the given
// retriever filling the one port a chat model cannot serve.
func (c *Client) Ports(retriever capability.Retriever) capability.Ports {
	return capability.Ports{
		Classifier: c,
		Generator:  c,
		Retriever:  retriever,
		Relevance:  c,
		Support:    c,
		Reviser:    c,
		Usefulness: c,
		Rewriter:   c,
	}
}

// generate performs one chat completion with system and user messages,
// retrying once on a transient timeout.
func (c *Client) generate(ctx context.Context, port, system, user string, jsonMode bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.transportRetries; attempt++ {
		out, err := c.generateOnce(ctx, system, user, jsonMode)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// Only transient timeouts are worth a transparent retry, and only
		// while the caller's context is still live.
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("capability call timed out, retrying",
			zap.String("port", port),
			zap.Int("attempt", attempt+1),
		)
	}

	return "", classify(port, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(callCtx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Content, nil
}

// classify maps a transport error to the port failure taxonomy.
func classify(port string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return capability.NewError(port, capability.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		// Caller cancellation propagates untouched so the session can tell
		// a dropped client from a failing capability.
		return err
	default:
		return capability.NewError(port, capability.ErrUnavailable, err)
	}
}
