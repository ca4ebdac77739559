// Package config handles loading and validating compIQ configuration
// from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all compIQ configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Financial enrichment service
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the LLM oracle.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai, genai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// SearchConfig configures comparable search behavior.
type SearchConfig struct {
	MinRequired   int    `yaml:"min_required"`
	MaxAllowed    int    `yaml:"max_allowed"`
	MaxAttempts   int    `yaml:"max_attempts"`
	MaxCandidates int    `yaml:"max_candidates"`
	BatchSize     int    `yaml:"batch_size"`
	BatchDelay    string `yaml:"batch_delay"`
	DeepFilter    bool   `yaml:"deep_filter"`
}

// DatabaseConfig configures search history persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EnrichmentConfig configures the financial data service.
type EnrichmentConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "compIQ",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},

		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},

		Search: SearchConfig{
			MinRequired:   3,
			MaxAllowed:    10,
			MaxAttempts:   3,
			MaxCandidates: 25,
			BatchSize:     5,
			BatchDelay:    "500ms",
		},

		Database: DatabaseConfig{
			Path: "data/compiq.db",
		},

		Enrichment: EnrichmentConfig{
			Enabled: false,
			BaseURL: "http://localhost:8085",
			Timeout: "30s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// LLM API key from environment (check in priority order)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
		if c.Embedding.APIKey == "" && (c.Embedding.Provider == "" || c.Embedding.Provider == "openai") {
			c.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
		if c.Embedding.APIKey == "" && c.Embedding.Provider == "genai" {
			c.Embedding.APIKey = key
		}
	}

	// Database path from environment
	if path := os.Getenv("COMPIQ_DB"); path != "" {
		c.Database.Path = path
	}

	// Enrichment service URL from environment
	if url := os.Getenv("COMPIQ_ENRICH_URL"); url != "" {
		c.Enrichment.BaseURL = url
		c.Enrichment.Enabled = true
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetBatchDelay returns the delay between verification batches.
func (c *Config) GetBatchDelay() time.Duration {
	d, err := time.ParseDuration(c.Search.BatchDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetEnrichTimeout returns the enrichment service timeout as a duration.
func (c *Config) GetEnrichTimeout() time.Duration {
	d, err := time.ParseDuration(c.Enrichment.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"openai", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set OPENAI_API_KEY or GEMINI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Search.MinRequired < 1 {
		return fmt.Errorf("search.min_required must be at least 1")
	}
	if c.Search.MaxAllowed < c.Search.MinRequired {
		return fmt.Errorf("search.max_allowed (%d) must be >= search.min_required (%d)",
			c.Search.MaxAllowed, c.Search.MinRequired)
	}
	if c.Search.MaxAttempts < 1 {
		return fmt.Errorf("search.max_attempts must be at least 1")
	}

	return nil
}
