package vectorstore

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

// New constructs the Store selected by configuration.
//
// "chromem" is the embedded default: no external service, persistence to a
// local directory. "qdrant" targets a remote Qdrant server via langchaingo.
func New(cfg config.VectorStoreConfig, embedder embeddings.Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Path,
			Collection: cfg.Collection,
		}, embedder, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			URL:        cfg.URL,
			Collection: cfg.Collection,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
