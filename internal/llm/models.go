package llm

import (
	"sort"
	"strings"

	"github.com/codewright/codewright/internal/config"
)

// ProviderModels contains the curated list of common models per provider
// type. Live listings come from ListModels when the provider supports it.
var ProviderModels = map[string][]string{
	"anthropic": {
		"claude-sonnet-4-6",
		"claude-opus-4-6",
		"claude-haiku-4-5",
		"claude-sonnet-4-5",
		"claude-opus-4-5",
	},
	"openai": {
		"gpt-5.2",
		"gpt-5.1",
		"gpt-5",
		"gpt-5-mini",
		"gpt-5-nano",
		"o3-mini",
	},
	"gemini": {
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
	},
	"ollama": {
		"qwen3-coder",
		"llama3.3",
		"deepseek-v3.2",
	},
}

// modelAliases maps short names to full model IDs.
var modelAliases = map[string]string{
	"sonnet": "claude-sonnet-4-6",
	"opus":   "claude-opus-4-6",
	"haiku":  "claude-haiku-4-5",
	"gpt":    "gpt-5.2",
	"flash":  "gemini-3-flash-preview",
	"pro":    "gemini-3-pro-preview",
}

// ResolveModelAlias expands a short model name to its full ID, or
// returns the input unchanged.
func ResolveModelAlias(model string) string {
	if full, ok := modelAliases[strings.ToLower(strings.TrimSpace(model))]; ok {
		return full
	}
	return model
}

// ModelAlias is one short-name to model-ID mapping.
type ModelAlias struct {
	Alias string
	Model string
}

// ModelAliases returns the alias table sorted by alias name.
func ModelAliases() []ModelAlias {
	aliases := make([]ModelAlias, 0, len(modelAliases))
	for alias, model := range modelAliases {
		aliases = append(aliases, ModelAlias{Alias: alias, Model: model})
	}
	sort.Slice(aliases, func(i, j int) bool {
		return aliases[i].Alias < aliases[j].Alias
	})
	return aliases
}

// DefaultModelForProvider returns the model used when neither config nor
// flags name one.
func DefaultModelForProvider(providerType string) string {
	switch providerType {
	case config.ProviderTypeAnthropic:
		return "claude-sonnet-4-6"
	case config.ProviderTypeOpenAI:
		return "gpt-5.2"
	case config.ProviderTypeGemini:
		return "gemini-3-flash-preview"
	case config.ProviderTypeOllama:
		return "qwen3-coder"
	}
	return ""
}

// GetProviderNames returns valid provider names from config plus
// built-in types. If cfg is nil, returns only built-in provider names.
func GetProviderNames(cfg *config.Config) []string {
	names := make(map[string]bool)
	for _, name := range BuiltInProviderNames() {
		names[name] = true
	}
	if cfg != nil {
		for name := range cfg.Providers {
			names[name] = true
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// GetProviderCompletions returns completions for the --provider flag.
// It handles both provider-only and provider:model completion.
func GetProviderCompletions(toComplete string, cfg *config.Config) []string {
	if strings.Contains(toComplete, ":") {
		parts := strings.SplitN(toComplete, ":", 2)
		provider := parts[0]
		modelPrefix := parts[1]

		models := modelsForCompletion(provider, cfg)
		var completions []string
		for _, model := range models {
			if strings.HasPrefix(model, modelPrefix) {
				completions = append(completions, provider+":"+model)
			}
		}
		return completions
	}

	var completions []string
	for _, name := range GetProviderNames(cfg) {
		if strings.HasPrefix(name, toComplete) {
			completions = append(completions, name)
		}
	}
	return completions
}

func modelsForCompletion(provider string, cfg *config.Config) []string {
	var configured []string
	var configModel string
	var providerType string
	if cfg != nil {
		if providerCfg, ok := cfg.Providers[provider]; ok {
			configured = providerCfg.Models
			configModel = providerCfg.Model
			providerType = config.InferProviderType(provider, providerCfg.Type)
		}
	}
	if providerType == "" {
		providerType = config.InferProviderType(provider, "")
	}

	// A config-defined models list wins over the curated catalog.
	if len(configured) > 0 {
		seen := make(map[string]bool)
		var models []string
		if configModel != "" {
			models = append(models, configModel)
			seen[configModel] = true
		}
		for _, m := range configured {
			if !seen[m] {
				models = append(models, m)
				seen[m] = true
			}
		}
		return models
	}

	if models, ok := ProviderModels[providerType]; ok {
		return models
	}
	if models, ok := ProviderModels[provider]; ok {
		return models
	}
	if configModel != "" {
		return []string{configModel}
	}
	return nil
}
