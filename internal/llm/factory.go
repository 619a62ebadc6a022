package llm

import (
	"fmt"
	"strings"

	"github.com/codewright/codewright/internal/config"
)

// BuiltInProviderNames lists the provider types that work without an
// entry in the providers map, as long as their credentials are in the
// environment.
func BuiltInProviderNames() []string {
	return []string{"anthropic", "openai", "gemini", "ollama"}
}

// ParseProviderModel parses "provider:model" or just "provider" from a
// flag value. Returns (provider, model, error); model is empty when not
// specified.
func ParseProviderModel(s string, cfg *config.Config) (string, string, error) {
	parts := strings.SplitN(s, ":", 2)
	provider := strings.TrimSpace(parts[0])
	if provider == "" {
		return "", "", fmt.Errorf("invalid provider format: %q", s)
	}
	model := ""
	if len(parts) == 2 {
		model = strings.TrimSpace(parts[1])
	}

	if cfg != nil {
		if _, ok := cfg.Providers[provider]; ok {
			return provider, model, nil
		}
	}
	for _, name := range BuiltInProviderNames() {
		if provider == name {
			return provider, model, nil
		}
	}
	return "", "", fmt.Errorf("unknown provider: %s", provider)
}

// NewProvider creates the configured default provider.
// Providers are wrapped with automatic retry for rate limits (429) and
// transient errors.
func NewProvider(cfg *config.Config) (Provider, error) {
	return NewProviderByName(cfg, cfg.Provider)
}

// NewProviderByName creates a provider by name from the config. Useful
// for per-command provider overrides.
func NewProviderByName(cfg *config.Config, name string) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("no provider configured")
	}
	providerCfg := cfg.Providers[name]
	provider, err := createProviderFromConfig(name, &providerCfg)
	if err != nil {
		return nil, err
	}
	return WrapWithRetry(provider, DefaultRetryConfig()), nil
}

func createProviderFromConfig(name string, cfg *config.ProviderConfig) (Provider, error) {
	providerType := config.InferProviderType(name, cfg.Type)

	key, source, err := cfg.ResolveCredential(providerType)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", name, err)
	}

	switch providerType {
	case config.ProviderTypeAnthropic:
		return NewAnthropicProvider(key, source), nil

	case config.ProviderTypeOpenAI:
		return NewOpenAIProvider(key, source), nil

	case config.ProviderTypeGemini:
		return NewGeminiProvider(key, source), nil

	case config.ProviderTypeOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaURL
		}
		return NewOpenAICompatProviderWithHeaders(baseURL, key, name, source, cfg.Headers), nil

	case config.ProviderTypeOpenAICompat:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %q requires base_url", name)
		}
		return NewOpenAICompatProviderWithHeaders(cfg.BaseURL, key, name, source, cfg.Headers), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}
