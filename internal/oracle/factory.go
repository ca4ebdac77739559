package oracle

import (
	"fmt"
	"time"
)

// ClientConfig holds provider-agnostic client settings.
type ClientConfig struct {
	Provider string // openai, gemini
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient creates an LLM client for the configured provider.
func NewClient(cfg ClientConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case "openai", "":
		config := DefaultOpenAIConfig(cfg.APIKey)
		if cfg.Model != "" {
			config.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			config.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			config.Timeout = cfg.Timeout
		}
		return NewOpenAIClientWithConfig(config), nil
	case "gemini":
		config := DefaultGeminiConfig(cfg.APIKey)
		if cfg.Model != "" {
			config.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			config.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			config.Timeout = cfg.Timeout
		}
		return NewGeminiClientWithConfig(config), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (use 'openai' or 'gemini')", cfg.Provider)
	}
}
