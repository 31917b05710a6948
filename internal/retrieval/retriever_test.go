package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/capability"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

type fakeStore struct {
	results []vectorstore.SearchResult
	err     error
	lastK   int
}

func (f *fakeStore) AddDocuments(context.Context, []vectorstore.Document) ([]string, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) Search(_ context.Context, _ string, k int) ([]vectorstore.SearchResult, error) {
	f.lastK = k
	return f.results, f.err
}

func (f *fakeStore) Close() error { return nil }

func TestRetrieve_KeepsSimilarityOrder(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{ID: "1", Content: "best match", Score: 0.97, Metadata: map[string]any{"source": "a.md"}},
		{ID: "2", Content: "second", Score: 0.84},
		{ID: "3", Content: "third", Score: 0.61},
	}}
	r, err := New(store, zap.NewNop())
	require.NoError(t, err)

	docs, err := r.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, "best match", docs[0].Content)
	assert.Equal(t, "second", docs[1].Content)
	assert.Equal(t, "third", docs[2].Content)
	assert.Equal(t, "a.md", docs[0].Metadata["source"])
	assert.Equal(t, 4, store.lastK)
}

func TestRetrieve_EmptyStore(t *testing.T) {
	r, err := New(&fakeStore{results: []vectorstore.SearchResult{}}, zap.NewNop())
	require.NoError(t, err)

	docs, err := r.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieve_StoreFailureIsUnavailable(t *testing.T) {
	r, err := New(&fakeStore{err: errors.New("connection refused")}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "query", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, capability.ErrUnavailable)

	var capErr *capability.Error
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "retriever", capErr.Port)
}

func TestRetrieve_CancellationPassesThrough(t *testing.T) {
	r, err := New(&fakeStore{err: context.Canceled}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "query", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var capErr *capability.Error
	assert.False(t, errors.As(err, &capErr))
}
