package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// AnthropicProvider streams responses from the Anthropic Messages API.
// It forwards the API's content-block events as wire events; assembling
// tool inputs out of fragments is the interpreter's job, not the
// provider's.
type AnthropicProvider struct {
	client     anthropic.Client
	credential string
}

// NewAnthropicProvider creates a provider using the given API key.
// credential names where the key came from ("api_key", "env") for
// diagnostics only.
func NewAnthropicProvider(apiKey, credential string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: client, credential: credential}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Credential() string {
	return p.credential
}

func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true}
}

// ListModels returns available models from Anthropic.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Created:     m.CreatedAt.Unix(),
		})
	}
	return models, nil
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	params, err := buildAnthropicParams(req)
	if err != nil {
		return nil, err
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		// Upstream usage arrives as cumulative snapshots spread over
		// message_start and message_delta; keep the latest merged view so
		// every emitted usage event is itself a complete snapshot.
		var usage Usage

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.InputTokens = int(variant.Message.Usage.InputTokens)
				usage.OutputTokens = int(variant.Message.Usage.OutputTokens)
				usage.CachedInputTokens = int(variant.Message.Usage.CacheReadInputTokens)
				u := usage
				if err := emit(ctx, events, Event{Type: EventUsage, Use: &u}); err != nil {
					return err
				}

			case anthropic.ContentBlockStartEvent:
				var block BlockStart
				switch cb := variant.ContentBlock.AsAny().(type) {
				case anthropic.ToolUseBlock:
					block = BlockStart{
						Kind:  BlockToolUse,
						ID:    cb.ID,
						Name:  cb.Name,
						Input: toolInputToRaw(cb.Input),
					}
				case anthropic.TextBlock:
					block = BlockStart{Kind: BlockText}
				default:
					continue
				}
				if err := emit(ctx, events, Event{Type: EventBlockStart, Index: variant.Index, Block: &block}); err != nil {
					return err
				}

			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text == "" {
						continue
					}
					if err := emit(ctx, events, Event{Type: EventTextDelta, Index: variant.Index, Text: delta.Text}); err != nil {
						return err
					}
				case anthropic.InputJSONDelta:
					if delta.PartialJSON == "" {
						continue
					}
					if err := emit(ctx, events, Event{Type: EventInputJSONDelta, Index: variant.Index, PartialJSON: delta.PartialJSON}); err != nil {
						return err
					}
				}

			case anthropic.ContentBlockStopEvent:
				if err := emit(ctx, events, Event{Type: EventBlockStop, Index: variant.Index}); err != nil {
					return err
				}

			case anthropic.MessageDeltaEvent:
				if variant.Usage.InputTokens > 0 {
					usage.InputTokens = int(variant.Usage.InputTokens)
				}
				if variant.Usage.OutputTokens > 0 {
					usage.OutputTokens = int(variant.Usage.OutputTokens)
				}
				u := usage
				if err := emit(ctx, events, Event{Type: EventUsage, Use: &u}); err != nil {
					return err
				}

			case anthropic.MessageStopEvent:
				if err := emit(ctx, events, Event{Type: EventMessageEnd}); err != nil {
					return err
				}
			}
		}

		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic streaming error: %w", err)
		}
		return nil
	}), nil
}

func buildAnthropicParams(req Request) (anthropic.MessageNewParams, error) {
	system, messages, err := buildAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens(req.MaxOutputTokens, 4096),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if len(req.Tools) > 0 {
		params.Tools = buildAnthropicTools(req.Tools)
		params.ToolChoice = buildAnthropicToolChoice(req.ToolChoice, req.ParallelToolCalls)
	}
	return params, nil
}

// buildAnthropicMessages converts conversation messages into Anthropic
// params. System messages fold into the dedicated system field, and tool
// results travel as tool_result blocks inside user messages, which is
// where the Messages API expects them.
func buildAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	var system strings.Builder
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			for _, part := range msg.Parts {
				if part.Type == PartText && part.Text != "" {
					if system.Len() > 0 {
						system.WriteString("\n\n")
					}
					system.WriteString(part.Text)
				}
			}

		case RoleUser:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				if part.Type == PartText && part.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(part.Text))
				}
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}

		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				switch part.Type {
				case PartText:
					if part.Text != "" {
						blocks = append(blocks, anthropic.NewTextBlock(part.Text))
					}
				case PartToolCall:
					if part.ToolCall == nil {
						continue
					}
					args := part.ToolCall.Arguments
					if len(args) == 0 {
						args = json.RawMessage("{}")
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCall.ID, args, part.ToolCall.Name))
				}
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				if part.Type != PartToolResult || part.ToolResult == nil {
					continue
				}
				result := part.ToolResult
				content := result.Content
				if content == "" {
					content = "(no output)"
				}
				block := anthropic.ToolResultBlockParam{
					ToolUseID: result.ID,
					IsError:   anthropic.Bool(result.IsError),
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: content}},
					},
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolResult: &block})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}

		default:
			return "", nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return system.String(), out, nil
}

func buildAnthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if props, ok := spec.Schema["properties"]; ok {
			inputSchema.Properties = props
		}
		if required := schemaRequired(spec.Schema); len(required) > 0 {
			inputSchema.Required = required
		}
		tool := anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
		if spec.Description != "" {
			tool.OfTool.Description = anthropic.String(spec.Description)
		}
		tools = append(tools, tool)
	}
	return tools
}

func buildAnthropicToolChoice(choice ToolChoice, parallel bool) anthropic.ToolChoiceUnionParam {
	disableParallel := anthropic.Bool(!parallel)
	switch choice.Mode {
	case ToolChoiceNone:
		none := anthropic.NewToolChoiceNoneParam()
		return anthropic.ToolChoiceUnionParam{OfNone: &none}
	case ToolChoiceRequired:
		return anthropic.ToolChoiceUnionParam{
			OfAny: &anthropic.ToolChoiceAnyParam{DisableParallelToolUse: disableParallel},
		}
	case ToolChoiceName:
		param := anthropic.ToolChoiceParamOfTool(choice.Name)
		if param.OfTool != nil {
			param.OfTool.DisableParallelToolUse = disableParallel
		}
		return param
	default:
		return anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{DisableParallelToolUse: disableParallel},
		}
	}
}

// schemaRequired extracts the required-property names from a JSON schema.
func schemaRequired(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toolInputToRaw normalizes the SDK's tool input value to raw JSON.
func toolInputToRaw(input any) json.RawMessage {
	switch v := input.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return v
	case []byte:
		return json.RawMessage(v)
	case string:
		if v == "" {
			return nil
		}
		return json.RawMessage(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return data
	}
}

func maxTokens(requested, fallback int) int64 {
	if requested > 0 {
		return int64(requested)
	}
	return int64(fallback)
}
