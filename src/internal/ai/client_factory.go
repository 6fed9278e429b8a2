package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/w3guard/solidity-sentinel/src/internal/ai/client"
)

// Client is the contract every LLM backend implements.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	GetName() string
	Close() error
}

// ClientConfig selects and configures a backend.
type ClientConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Proxy    string
}

// NewClient builds the backend for the given provider name.
func NewClient(cfg ClientConfig) (Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case "openai", "gpt4":
		return client.NewOpenAIClient(client.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		})

	case "deepseek":
		return client.NewDeepSeekClient(client.DeepSeekConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		})

	case "local-llm", "ollama":
		return client.NewLocalLLMClient(client.LocalLLMConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: openai, deepseek, local-llm)", cfg.Provider)
	}
}

// ValidateProvider rejects unknown provider names before any network setup.
func ValidateProvider(provider string) error {
	validProviders := map[string]bool{
		"openai":    true,
		"gpt4":      true,
		"deepseek":  true,
		"local-llm": true,
		"ollama":    true,
	}

	if !validProviders[provider] {
		return fmt.Errorf("invalid provider '%s', must be one of: openai, gpt4, deepseek, local-llm, ollama", provider)
	}
	return nil
}
