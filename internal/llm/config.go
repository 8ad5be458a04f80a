package llm

import (
	"fmt"
	"time"
)

// Config selects and configures the model provider.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "mock".
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the API endpoint (Ollama, OpenRouter, test servers).
	BaseURL string
	// Timeout bounds a single model call. Zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// Defaults for the "openai" provider when no endpoint is configured: a local
// Ollama server, which accepts any key.
const (
	DefaultOpenAIBaseURL = "http://localhost:11434/v1"
	DefaultOpenAIKey     = "ollama"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet"
	case "openai":
		return "llama3.2"
	case "gemini":
		return "gemini-flash"
	default:
		return "mock"
	}
}

// withDefaults fills in the model and, for the OpenAI-compatible provider,
// the local endpoint and key. Other providers keep BaseURL empty so their
// SDK's own endpoint is used.
func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.Provider == "openai" {
		if c.BaseURL == "" {
			c.BaseURL = DefaultOpenAIBaseURL
		}
		if c.APIKey == "" {
			c.APIKey = DefaultOpenAIKey
		}
	}
	return c
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider", c.Provider)
		}
	case "openai":
		// Local OpenAI-compatible servers accept any key.
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
