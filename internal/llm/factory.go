package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/eduassist/internal/store"
)

// mockAnswer satisfies the structured answer schema so the mock provider
// works with either answer mode.
const mockAnswer = `{"answer":"This is a canned answer from the mock provider."}`

// NewProvider creates a Provider from configuration, wrapped with the
// timeout, retry and event-logging middleware:
//
//	caller → timeout → retry → logging → base
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewEchoProvider(json.RawMessage(mockAnswer))
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, eventRepo)
	retried := WithRetry(logged, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}
