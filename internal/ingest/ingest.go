// Package ingest loads corpus files, chunks them, and upserts the chunks
// into the vector store. Supported sources are plain text and markdown
// files; chunking uses langchaingo's recursive character splitter.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
)

// Ingester chunks files and writes them to the vector store.
type Ingester struct {
	store    vectorstore.Store
	splitter textsplitter.RecursiveCharacter
	logger   *zap.Logger
}

// New creates an Ingester from config.
func New(cfg config.IngestConfig, store vectorstore.Store, logger *zap.Logger) (*Ingester, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
	)

	return &Ingester{
		store:    store,
		splitter: splitter,
		logger:   logger,
	}, nil
}

// ingestible reports whether the file extension is a supported source.
func ingestible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// IngestDir ingests every supported file under dir, returning the number
// of chunks stored.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	total := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingestible(path) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := in.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		total += n
		return nil
	})
	if err != nil {
		return total, err
	}

	in.logger.Info("directory ingested",
		zap.String("dir", dir),
		zap.Int("chunks", total),
	)
	return total, nil
}

// IngestFile chunks one file and upserts its chunks. Chunk IDs are
// deterministic (source path plus chunk index) so re-ingesting a changed
// file replaces its previous chunks in place.
func (in *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return 0, nil
	}

	chunks, err := in.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("splitting text: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	source := filepath.Base(path)
	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:      fmt.Sprintf("%s#%04d", source, i),
			Content: chunk,
			Metadata: map[string]any{
				"source": source,
				"chunk":  i,
			},
		}
	}

	if _, err := in.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	in.logger.Debug("file ingested",
		zap.String("source", source),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}
