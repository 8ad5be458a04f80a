package llm

import (
	"context"
	"fmt"
)

// NewProvider creates a Provider from configuration, wrapped with the timeout
// and logging decorators. recorder may be nil.
func NewProvider(ctx context.Context, cfg Config, recorder EventRecorder) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	modelName := cfg.Model

	var base Provider
	switch cfg.Provider {
	case "anthropic":
		base = NewAnthropicProvider(cfg.APIKey, modelName, cfg.BaseURL)
	case "openai":
		p := NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, modelName)
		if err := p.Ping(ctx); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		base = p
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg.APIKey, modelName)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini provider: %w", err)
		}
		base = p
	case "mock":
		base = newDemoProvider()
	}

	// caller → logging → timeout → base
	return WithLogging(WithTimeout(base, cfg.Timeout), cfg.Provider, recorder), nil
}
