package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"overlap equals chunk size", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize }},
		{"overlap exceeds chunk size", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize + 10 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"zero evidence budget", func(c *Config) { c.Retrieval.MaxEvidenceChars = 0 }},
		{"negative retry budget", func(c *Config) { c.Correction.RetryBudget = -1 }},
		{"accept threshold over 100", func(c *Config) { c.Correction.AcceptThreshold = 101 }},
		{"floor above accept", func(c *Config) { c.Correction.FloorThreshold = c.Correction.AcceptThreshold + 1 }},
		{"max_k below top_k", func(c *Config) { c.Correction.MaxK = c.Retrieval.TopK - 1 }},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"zero embeddings timeout", func(c *Config) { c.Embeddings.Timeout = 0 }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "faiss" }},
		{"unknown logging format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
chunking:
  chunk_size: 800
  overlap: 100
correction:
  accept_threshold: 80
llm:
  timeout: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("LEXAUDIT_CORRECTION_ACCEPT_THRESHOLD", "75")
	t.Setenv("LEXAUDIT_PIPELINE_WORKERS", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File values override defaults.
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout.Duration())

	// Env values override file values.
	assert.Equal(t, float64(75), cfg.Correction.AcceptThreshold)
	assert.Equal(t, 6, cfg.Pipeline.Workers)

	// Untouched values keep defaults.
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Chunking, cfg.Chunking)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("LEXAUDIT_CHUNKING_OVERLAP", "5000")
	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-12345")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "sk-12345", s.Value())
	assert.Equal(t, "", Secret("").String())
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "correction.accept_threshold", envTransform("LEXAUDIT_CORRECTION_ACCEPT_THRESHOLD"))
	assert.Equal(t, "llm.base_url", envTransform("LEXAUDIT_LLM_BASE_URL"))
	assert.Equal(t, "chunking.chunk_size", envTransform("LEXAUDIT_CHUNKING_CHUNK_SIZE"))
}
