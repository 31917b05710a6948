// Package embeddings provides embedding generation via langchaingo.
//
// It wraps langchaingo's OpenAI-compatible embedding client, which also
// covers local TEI (Text Embeddings Inference) servers exposing the same
// API surface.
package embeddings

import (
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// NewEmbedder creates a langchaingo embedder from config.
//
// The returned embedder is safe for concurrent use and is constructed once
// per process.
func NewEmbedder(cfg config.EmbeddingsConfig) (*lcembeddings.EmbedderImpl, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		// TEI ignores the token but the client requires one.
		apiKey = "not-required"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return embedder, nil
}
