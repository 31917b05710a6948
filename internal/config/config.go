// Package config provides configuration loading for answerd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Every tunable the answer pipeline consumes (retry budgets,
// retrieval depth, step ceiling) lives here so that no limit is ever a
// literal inside transition logic.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for configuration validation.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the complete answerd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	LLM         LLMConfig         `koanf:"llm"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Turn        TurnConfig        `koanf:"turn"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Events      EventsConfig      `koanf:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LLMConfig holds chat model configuration shared by every capability port.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	// Timeout bounds every single model round-trip.
	Timeout Duration `koanf:"timeout"`
	// TransportRetries is the number of transparent retries after a
	// transient timeout. Distinct from the turn-level revision counter.
	TransportRetries int `koanf:"transport_retries"`
}

// EmbeddingsConfig holds embedding model configuration.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig holds vector store configuration.
type VectorStoreConfig struct {
	// Provider selects the store backend: "chromem" (embedded) or "qdrant".
	Provider string `koanf:"provider"`
	// Path is the persistence directory for the chromem provider.
	Path string `koanf:"path"`
	// URL is the Qdrant server URL for the qdrant provider.
	URL        string `koanf:"url"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// RetrievalConfig holds similarity search configuration.
type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
}

// TurnConfig holds the answer pipeline budgets.
type TurnConfig struct {
	// MaxRetries bounds support-driven answer revisions per turn.
	MaxRetries int `koanf:"max_retries"`
	// MaxRewriteTries bounds query rewrites (full re-retrievals) per turn.
	MaxRewriteTries int `koanf:"max_rewrite_tries"`
	// MaxSteps is the hard ceiling on total stage dispatches per turn,
	// independent of the two counters above.
	MaxSteps int `koanf:"max_steps"`
	// RelevanceConcurrency bounds parallel relevance-judge calls.
	RelevanceConcurrency int `koanf:"relevance_concurrency"`
}

// IngestConfig holds corpus ingestion configuration.
type IngestConfig struct {
	Dir          string `koanf:"dir"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
	Watch        bool   `koanf:"watch"`
}

// EventsConfig holds turn event publishing configuration.
// Publishing is disabled when NATSURL is empty.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = Duration(60 * time.Second)
	}
	if c.LLM.TransportRetries == 0 {
		c.LLM.TransportRetries = 1
	}
	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = c.LLM.BaseURL
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "text-embedding-3-small"
	}
	if c.Embeddings.APIKey == "" {
		c.Embeddings.APIKey = c.LLM.APIKey
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = "~/.config/answerd/vectorstore"
	}
	if c.VectorStore.URL == "" {
		c.VectorStore.URL = "http://localhost:6333"
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "answerd-docs"
	}
	if c.VectorStore.VectorSize == 0 {
		c.VectorStore.VectorSize = 1536
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 4
	}
	if c.Turn.MaxRetries == 0 {
		c.Turn.MaxRetries = 10
	}
	if c.Turn.MaxRewriteTries == 0 {
		c.Turn.MaxRewriteTries = 3
	}
	if c.Turn.MaxSteps == 0 {
		c.Turn.MaxSteps = 80
	}
	if c.Turn.RelevanceConcurrency == 0 {
		c.Turn.RelevanceConcurrency = 4
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 500
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 50
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "answerd"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be in [1, 65535], got %d", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format must be json or console, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: vectorstore provider must be chromem or qdrant, got %q", ErrInvalidConfig, c.VectorStore.Provider)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: retrieval top_k must be positive, got %d", ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Turn.MaxRetries < 0 {
		return fmt.Errorf("%w: turn max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Turn.MaxRewriteTries < 0 {
		return fmt.Errorf("%w: turn max_rewrite_tries cannot be negative", ErrInvalidConfig)
	}
	if c.Turn.MaxSteps < 1 {
		return fmt.Errorf("%w: turn max_steps must be positive, got %d", ErrInvalidConfig, c.Turn.MaxSteps)
	}
	// The step ceiling must leave room for at least one full pass through
	// the pipeline, otherwise every turn fails on dispatch.
	if c.Turn.MaxSteps < 6 {
		return fmt.Errorf("%w: turn max_steps %d is below the minimum pipeline length", ErrInvalidConfig, c.Turn.MaxSteps)
	}
	if c.Turn.RelevanceConcurrency < 1 {
		return fmt.Errorf("%w: turn relevance_concurrency must be positive", ErrInvalidConfig)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: ingest chunk_overlap %d must be smaller than chunk_size %d",
			ErrInvalidConfig, c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}
