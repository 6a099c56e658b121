package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces lexaudit environment variables.
	envPrefix = "LEXAUDIT_"

	// maxConfigFileSize rejects oversized config files.
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// configSections are the top-level keys of Config. The env transformer uses
// them to split LEXAUDIT_CORRECTION_ACCEPT_THRESHOLD into
// correction.accept_threshold without guessing where compound field names
// begin.
var configSections = []string{
	"chunking", "retrieval", "correction", "llm",
	"embeddings", "reports", "pipeline", "logging",
}

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LEXAUDIT_LLM_MODEL, LEXAUDIT_CHUNKING_OVERLAP, ...)
//  2. YAML config file (configPath; skipped when empty or absent)
//  3. Hardcoded defaults
//
// The returned Config has been validated; callers can rely on every field
// being usable as-is.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile reads and parses a YAML config file into k.
// The file is read once through an open descriptor so the size check and the
// parse cannot race against a file swap.
func loadFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("%w: config file %s exceeds %d bytes", ErrInvalidConfig, path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// envTransform maps LEXAUDIT_SECTION_FIELD_NAME to section.field_name.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range configSections {
		if s == section {
			return s
		}
		if strings.HasPrefix(s, section+"_") {
			return section + "." + s[len(section)+1:]
		}
	}
	return s
}
