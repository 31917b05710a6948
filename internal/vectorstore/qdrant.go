package vectorstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
	"go.uber.org/zap"
)

// QdrantConfig holds configuration for the Qdrant-backed store.
type QdrantConfig struct {
	// URL is the Qdrant server URL (e.g. http://localhost:6333).
	URL string

	// Collection is the Qdrant collection name. The collection must exist
	// with the embedder's vector size.
	Collection string
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	return nil
}

// QdrantStore implements Store for a remote Qdrant server through
// langchaingo's vector store wrapper.
type QdrantStore struct {
	store  vectorstores.VectorStore
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore creates a QdrantStore with the given configuration.
func NewQdrantStore(config QdrantConfig, embedder embeddings.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qdrantURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Qdrant URL: %w", err)
	}

	store, err := qdrant.New(
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(config.Collection),
		qdrant.WithEmbedder(embedder),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant store: %w", err)
	}

	return &QdrantStore{
		store:  store,
		config: config,
		logger: logger,
	}, nil
}

// AddDocuments embeds and stores documents.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	schemaDocs := make([]schema.Document, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}

		metadata := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		// Keep the document ID recoverable from search results.
		metadata["id"] = ids[i]

		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    metadata,
		}
	}

	if _, err := s.store.AddDocuments(ctx, schemaDocs); err != nil {
		return nil, fmt.Errorf("adding documents to store: %w", err)
	}

	s.logger.Debug("added documents to qdrant",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(docs)),
	)

	return ids, nil
}

// Search performs similarity search.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		id, _ := doc.Metadata["id"].(string)
		results[i] = SearchResult{
			ID:       id,
			Content:  doc.PageContent,
			Score:    doc.Score,
			Metadata: doc.Metadata,
		}
	}

	return results, nil
}

// Close releases store resources. The langchaingo wrapper holds no
// persistent connection.
func (s *QdrantStore) Close() error {
	return nil
}
