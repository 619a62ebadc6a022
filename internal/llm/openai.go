package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider using the OpenAI API. Streaming
// goes through the chat completions dialect shared with every
// OpenAI-compatible server; the SDK client only serves model listing.
type OpenAIProvider struct {
	compat *OpenAICompatProvider
	client *openai.Client
}

func NewOpenAIProvider(apiKey, credential string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		compat: NewOpenAICompatProvider(openAIBaseURL, apiKey, "openai", credential),
		client: &client,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Credential() string {
	return p.compat.Credential()
}

func (p *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true}
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:      m.ID,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return p.compat.Stream(ctx, req)
}
