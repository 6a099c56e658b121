// Package config provides configuration loading for lexaudit.
//
// Configuration is loaded from an optional YAML file, then overridden by
// environment variables. The resulting Config is immutable after Load and is
// passed explicitly into each component at construction; no component reads
// ambient global state.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates invalid configuration. It is fatal at startup
// and never retried.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete lexaudit configuration.
type Config struct {
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Correction CorrectionConfig `koanf:"correction"`
	LLM        LLMConfig        `koanf:"llm"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Reports    ReportsConfig    `koanf:"reports"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ChunkingConfig controls how document text is split before indexing.
type ChunkingConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `koanf:"chunk_size"`

	// Overlap is the number of characters shared by adjacent chunks.
	// Must be strictly smaller than ChunkSize.
	Overlap int `koanf:"overlap"`
}

// RetrievalConfig controls evidence retrieval per extraction attempt.
type RetrievalConfig struct {
	// TopK is the number of hits requested per sub-query.
	TopK int `koanf:"top_k"`

	// MaxEvidenceChars caps the total evidence characters handed to the
	// extraction prompt. Lowest-scoring hits are dropped first when over
	// budget.
	MaxEvidenceChars int `koanf:"max_evidence_chars"`
}

// CorrectionConfig controls the self-correction loop.
type CorrectionConfig struct {
	// RetryBudget is the number of extra attempts beyond the first.
	RetryBudget int `koanf:"retry_budget"`

	// AcceptThreshold is the combined confidence (0-100) at or above which
	// a candidate is accepted without further retries.
	AcceptThreshold float64 `koanf:"accept_threshold"`

	// FloorThreshold is the combined confidence (0-100) below which a
	// terminal result is flagged low-confidence (EXHAUSTED).
	FloorThreshold float64 `koanf:"floor_threshold"`

	// MinEvidenceScore is the minimum similarity an evidence hit must reach
	// for the evidence set to count as sufficient.
	MinEvidenceScore float64 `koanf:"min_evidence_score"`

	// WidenStep is added to the retrieval k on each retry.
	WidenStep int `koanf:"widen_step"`

	// MaxK caps the widened retrieval k.
	MaxK int `koanf:"max_k"`
}

// LLMConfig holds completion service configuration. The endpoint is any
// OpenAI-compatible chat completions API (Groq, OpenAI, vLLM, ...).
type LLMConfig struct {
	BaseURL     string   `koanf:"base_url"`
	Model       string   `koanf:"model"`
	APIKey      Secret   `koanf:"api_key"`
	MaxTokens   int      `koanf:"max_tokens"`
	Temperature float64  `koanf:"temperature"`
	Timeout     Duration `koanf:"timeout"`
}

// EmbeddingsConfig holds embedding service configuration.
type EmbeddingsConfig struct {
	// Provider is "tei" (HTTP embeddings endpoint) or "fastembed" (local
	// ONNX models, requires CGO).
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	CacheDir string `koanf:"cache_dir"`

	// Timeout bounds each embedding call. A timed-out call fails like any
	// other embedding service failure and consumes retry budget downstream.
	Timeout Duration `koanf:"timeout"`
}

// ReportsConfig controls report output.
type ReportsConfig struct {
	// Dir is the directory reports are written to.
	Dir string `koanf:"dir"`
}

// PipelineConfig controls full-run orchestration.
type PipelineConfig struct {
	// Workers bounds the number of category loops running concurrently.
	Workers int `koanf:"workers"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// Default returns a Config with production defaults. Chunk sizes mirror a
// 400-token window with 50-token overlap at roughly four characters per
// token.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize: 1600,
			Overlap:   200,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			MaxEvidenceChars: 6000,
		},
		Correction: CorrectionConfig{
			RetryBudget:      2,
			AcceptThreshold:  70,
			FloorThreshold:   40,
			MinEvidenceScore: 0.35,
			WidenStep:        3,
			MaxK:             10,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   2048,
			Temperature: 0.1,
			Timeout:     Duration(30 * time.Second),
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
			BaseURL:  "http://localhost:8080",
			Timeout:  Duration(30 * time.Second),
		},
		Reports: ReportsConfig{
			Dir: "data/reports",
		},
		Pipeline: PipelineConfig{
			Workers: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for startup-fatal errors.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidConfig, c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.Chunking.Overlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: retrieval top_k must be >= 1, got %d", ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Retrieval.MaxEvidenceChars <= 0 {
		return fmt.Errorf("%w: max evidence chars must be positive, got %d", ErrInvalidConfig, c.Retrieval.MaxEvidenceChars)
	}
	if c.Correction.RetryBudget < 0 {
		return fmt.Errorf("%w: retry budget cannot be negative, got %d", ErrInvalidConfig, c.Correction.RetryBudget)
	}
	if c.Correction.AcceptThreshold < 0 || c.Correction.AcceptThreshold > 100 {
		return fmt.Errorf("%w: accept threshold must be in [0,100], got %g", ErrInvalidConfig, c.Correction.AcceptThreshold)
	}
	if c.Correction.FloorThreshold < 0 || c.Correction.FloorThreshold > c.Correction.AcceptThreshold {
		return fmt.Errorf("%w: floor threshold must be in [0,accept], got %g", ErrInvalidConfig, c.Correction.FloorThreshold)
	}
	if c.Correction.MaxK < c.Retrieval.TopK {
		return fmt.Errorf("%w: max_k %d must be >= retrieval top_k %d", ErrInvalidConfig, c.Correction.MaxK, c.Retrieval.TopK)
	}
	if c.LLM.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: llm timeout must be positive", ErrInvalidConfig)
	}
	if c.Embeddings.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: embeddings timeout must be positive", ErrInvalidConfig)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline workers must be >= 1, got %d", ErrInvalidConfig, c.Pipeline.Workers)
	}
	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("%w: unknown embeddings provider %q", ErrInvalidConfig, c.Embeddings.Provider)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format must be json or console, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
