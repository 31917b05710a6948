// Package retrieval implements the retriever capability port on top of the
// vector store: top-k similarity search, ranking passed through untouched.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/turn"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

const portName = "retriever"

// Retriever adapts a vectorstore.Store to the capability port.
type Retriever struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// New creates a Retriever over the given store.
func New(store vectorstore.Store, logger *zap.Logger) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, logger: logger}, nil
}

// Retrieve implements capability.Retriever. Results keep the store's
// similarity order, most-similar first. No re-ranking happens here.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]turn.Document, error) {
	results, err := r.store.Search(ctx, query, k)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, capability.NewError(portName, capability.ErrUnavailable, err)
	}

	docs := make([]turn.Document, len(results))
	for i, res := range results {
		docs[i] = turn.Document{
			Content:  res.Content,
			Metadata: res.Metadata,
		}
	}

	r.logger.Debug("retrieved documents",
		zap.Int("k", k),
		zap.Int("count", len(docs)),
	)

	return docs, nil
}
