package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout.Duration())
	assert.Equal(t, 1, cfg.LLM.TransportRetries)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "answerd-docs", cfg.VectorStore.Collection)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Turn.MaxRetries)
	assert.Equal(t, 3, cfg.Turn.MaxRewriteTries)
	assert.Equal(t, 80, cfg.Turn.MaxSteps)
	assert.Equal(t, 4, cfg.Turn.RelevanceConcurrency)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, "answerd", cfg.Events.SubjectPrefix)
}

func TestApplyDefaults_EmbeddingsInheritLLM(t *testing.T) {
	cfg := Config{
		LLM: LLMConfig{
			BaseURL: "http://llm.internal:8080/v1",
			APIKey:  Secret("sk-test"),
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "http://llm.internal:8080/v1", cfg.Embeddings.BaseURL)
	assert.Equal(t, "sk-test", cfg.Embeddings.APIKey.Value())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = -1 }, "server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server port"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
		{"bad provider", func(c *Config) { c.VectorStore.Provider = "pinecone" }, "vectorstore provider"},
		{"top_k zero", func(c *Config) { c.Retrieval.TopK = 0 }, "top_k"},
		{"negative retries", func(c *Config) { c.Turn.MaxRetries = -1 }, "max_retries"},
		{"negative rewrite tries", func(c *Config) { c.Turn.MaxRewriteTries = -1 }, "max_rewrite_tries"},
		{"step ceiling below pipeline length", func(c *Config) { c.Turn.MaxSteps = 5 }, "max_steps"},
		{"relevance concurrency zero", func(c *Config) { c.Turn.RelevanceConcurrency = -2 }, "relevance_concurrency"},
		{"overlap not below chunk size", func(c *Config) { c.Ingest.ChunkOverlap = 500 }, "chunk_overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
llm:
  model: llama3
  timeout: 30s
turn:
  max_retries: 5
vectorstore:
  provider: qdrant
  url: http://qdrant.internal:6333
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout.Duration())
	assert.Equal(t, 5, cfg.Turn.MaxRetries)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	// Unset fields still take defaults.
	assert.Equal(t, 3, cfg.Turn.MaxRewriteTries)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))

	t.Setenv("SERVER_PORT", "9200")
	t.Setenv("TURN_MAX_REWRITE_TRIES", "2")
	t.Setenv("LLM_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Turn.MaxRewriteTries)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey.Value())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Turn.MaxRetries)
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("turn:\n  max_steps: 3\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SERVER_PORT", "server.port"},
		{"SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
		{"TURN_MAX_REWRITE_TRIES", "turn.max_rewrite_tries"},
		{"VECTORSTORE_PROVIDER", "vectorstore.provider"},
		{"PATH", "path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransform(tt.in))
	}
}
