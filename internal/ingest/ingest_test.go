package ingest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

type captureStore struct {
	docs []vectorstore.Document
}

func (s *captureStore) AddDocuments(_ context.Context, docs []vectorstore.Document) ([]string, error) {
	s.docs = append(s.docs, docs...)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (s *captureStore) Search(context.Context, string, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (s *captureStore) Close() error { return nil }

func testConfig() config.IngestConfig {
	return config.IngestConfig{ChunkSize: 100, ChunkOverlap: 10}
}

func TestIngestFile_DeterministicIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.md")
	content := strings.Repeat("Refunds are processed within thirty days of purchase. ", 10)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store := &captureStore{}
	in, err := New(testConfig(), store, zap.NewNop())
	require.NoError(t, err)

	n, err := in.IngestFile(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, n, 1, "long file splits into multiple chunks")
	require.Len(t, store.docs, n)

	for i, doc := range store.docs {
		assert.Equal(t, "policy.md", doc.Metadata["source"])
		assert.Equal(t, i, doc.Metadata["chunk"])
		assert.Contains(t, doc.ID, "policy.md#")
		assert.NotEmpty(t, doc.Content)
	}
	assert.Equal(t, "policy.md#0000", store.docs[0].ID)

	// Re-ingesting produces the same IDs, so changed files replace their
	// previous chunks instead of accumulating.
	before := len(store.docs)
	_, err = in.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, store.docs[0].ID, store.docs[before].ID)
}

func TestIngestFile_EmptyFileSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n\n  "), 0o600))

	store := &captureStore{}
	in, err := New(testConfig(), store, zap.NewNop())
	require.NoError(t, err)

	n, err := in.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.docs)
}

func TestIngestDir_OnlySupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("markdown content"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("plain text content"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.pdf"), []byte("binary"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "d.md"), []byte("nested content"), 0o600))

	store := &captureStore{}
	in, err := New(testConfig(), store, zap.NewNop())
	require.NoError(t, err)

	n, err := in.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sources := map[string]bool{}
	for _, doc := range store.docs {
		sources[doc.Metadata["source"].(string)] = true
	}
	assert.True(t, sources["a.md"])
	assert.True(t, sources["b.txt"])
	assert.True(t, sources["d.md"])
	assert.False(t, sources["c.pdf"])
}

// wordEmbedder yields deterministic normalized vectors so chunked content
// can round-trip through a real store in tests.
type wordEmbedder struct{}

func (wordEmbedder) embed(text string) []float32 {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func (w wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = w.embed(t)
	}
	return out, nil
}

func (w wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return w.embed(text), nil
}

func TestIngest_RoundTripsThroughChromem(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("NexaAI offers refunds within thirty days of purchase. ", 8)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refunds.md"), []byte(content), 0o600))

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Collection: "ingest-test"}, wordEmbedder{}, zap.NewNop())
	require.NoError(t, err)

	in, err := New(testConfig(), store, zap.NewNop())
	require.NoError(t, err)

	n, err := in.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	require.Greater(t, n, 1)
	assert.Equal(t, n, store.Count())

	results, err := store.Search(context.Background(), "NexaAI refunds thirty days", 4)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "refunds")
	assert.Equal(t, "refunds.md", results[0].Metadata["source"])
}

func TestIngestible(t *testing.T) {
	assert.True(t, ingestible("notes.txt"))
	assert.True(t, ingestible("README.MD"))
	assert.False(t, ingestible("report.pdf"))
	assert.False(t, ingestible("Makefile"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(testConfig(), nil, zap.NewNop())
	assert.Error(t, err)

	_, err = New(config.IngestConfig{ChunkSize: 50, ChunkOverlap: 50}, &captureStore{}, zap.NewNop())
	assert.Error(t, err)
}
