// Package vectorstore defines the interface for vector storage operations
// and its chromem-go (embedded) and Qdrant (remote) implementations.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Embedder generates vector embeddings from text.
//
// langchaingo's embeddings.Embedder satisfies this interface directly.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document represents a document to be stored in the vector store.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the text content of the document.
	Content string

	// Metadata contains additional key-value pairs.
	// Common fields: source, chunk, title.
	Metadata map[string]any
}

// SearchResult represents a similarity search result.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the document text content.
	Content string

	// Score is the similarity score (higher = more similar).
	Score float32

	// Metadata contains the document metadata.
	Metadata map[string]any
}

// Store is the interface for vector storage operations.
//
// Implementations must be safe for concurrent use: one Store is constructed
// at process start and shared by every in-flight turn.
type Store interface {
	// AddDocuments embeds and stores documents, returning their IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns the k most similar documents for the query,
	// most-similar first. A store with fewer than k documents returns
	// what it has; an empty store returns an empty slice.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Close releases store resources.
	Close() error
}
