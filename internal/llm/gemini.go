package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider using the Google Gemini API.
// Function calls arrive complete rather than as streamed fragments, so
// each one is forwarded as a block that opens with its full input and
// closes immediately.
type GeminiProvider struct {
	apiKey     string
	credential string
}

func NewGeminiProvider(apiKey, credential string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, credential: credential}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Credential() string {
	return p.credential
}

func (p *GeminiProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true}
}

func (p *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("gemini: no model specified")
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		client, err := p.newClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}

		system, contents := buildGeminiContents(req.Messages)
		if len(contents) == 0 {
			return fmt.Errorf("no user content provided")
		}

		config := &genai.GenerateContentConfig{}
		if system != "" {
			config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}
		if len(req.Tools) > 0 {
			config.Tools = buildGeminiTools(req.Tools)
			config.ToolConfig = buildGeminiToolConfig(req.ToolChoice)
		}

		// Tool-use responses only come back whole, so requests with tools
		// use the non-streaming call and replay its parts as events.
		if len(req.Tools) > 0 {
			resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
			if err != nil {
				return fmt.Errorf("gemini API error: %w", err)
			}
			var blockIndex int64
			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					if part.Text != "" && !part.Thought {
						if err := emit(ctx, events, Event{Type: EventTextDelta, Text: part.Text}); err != nil {
							return err
						}
					}
					if part.FunctionCall == nil {
						continue
					}
					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						args = []byte("{}")
					}
					block := BlockStart{
						Kind:  BlockToolUse,
						ID:    part.FunctionCall.ID,
						Name:  part.FunctionCall.Name,
						Input: json.RawMessage(args),
					}
					if err := emit(ctx, events, Event{Type: EventBlockStart, Index: blockIndex, Block: &block}); err != nil {
						return err
					}
					if err := emit(ctx, events, Event{Type: EventBlockStop, Index: blockIndex}); err != nil {
						return err
					}
					blockIndex++
				}
			}
			if err := emitGeminiUsage(ctx, events, resp); err != nil {
				return err
			}
			return emit(ctx, events, Event{Type: EventMessageEnd})
		}

		var lastResp *genai.GenerateContentResponse
		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				return fmt.Errorf("gemini streaming error: %w", err)
			}
			lastResp = resp
			if text := resp.Text(); text != "" {
				if err := emit(ctx, events, Event{Type: EventTextDelta, Text: text}); err != nil {
					return err
				}
			}
		}
		if err := emitGeminiUsage(ctx, events, lastResp); err != nil {
			return err
		}
		return emit(ctx, events, Event{Type: EventMessageEnd})
	}), nil
}

func emitGeminiUsage(ctx context.Context, events chan<- Event, resp *genai.GenerateContentResponse) error {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	if resp.UsageMetadata.TotalTokenCount == 0 {
		return nil
	}
	u := Usage{
		InputTokens:       int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens:      int(resp.UsageMetadata.CandidatesTokenCount),
		CachedInputTokens: int(resp.UsageMetadata.CachedContentTokenCount),
	}
	return emit(ctx, events, Event{Type: EventUsage, Use: &u})
}

func buildGeminiContents(messages []Message) (string, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if text := collectTextParts(msg.Parts); text != "" {
				systemParts = append(systemParts, text)
			}
		case RoleUser:
			if content := buildGeminiContent(genai.RoleUser, msg.Parts); content != nil {
				contents = append(contents, content)
			}
		case RoleAssistant:
			if content := buildGeminiContent(genai.RoleModel, msg.Parts); content != nil {
				contents = append(contents, content)
			}
		case RoleTool:
			if content := buildGeminiToolResultContent(msg.Parts); content != nil {
				contents = append(contents, content)
			}
		}
	}

	return strings.Join(systemParts, "\n\n"), contents
}

func buildGeminiContent(role string, parts []Part) *genai.Content {
	content := &genai.Content{Role: role}
	for _, part := range parts {
		switch part.Type {
		case PartText:
			if part.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: part.Text})
			}
		case PartToolCall:
			if part.ToolCall == nil {
				continue
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   part.ToolCall.ID,
					Name: part.ToolCall.Name,
					Args: toolArgsToMap(part.ToolCall.Arguments),
				},
			})
		}
	}
	if len(content.Parts) == 0 {
		return nil
	}
	return content
}

func buildGeminiToolResultContent(parts []Part) *genai.Content {
	content := &genai.Content{Role: genai.RoleUser}
	for _, part := range parts {
		if part.Type != PartToolResult || part.ToolResult == nil {
			continue
		}
		result := part.ToolResult
		content.Parts = append(content.Parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       result.ID,
				Name:     result.Name,
				Response: map[string]any{"output": result.Content},
			},
		})
	}
	if len(content.Parts) == 0 {
		return nil
	}
	return content
}

func toolArgsToMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err == nil {
		return args
	}
	return map[string]any{"_raw": string(raw)}
}

func buildGeminiTools(specs []ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]*genai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        spec.Name,
					Description: spec.Description,
					Parameters:  geminiSchema(spec.Schema),
				},
			},
		})
	}
	return tools
}

func buildGeminiToolConfig(choice ToolChoice) *genai.ToolConfig {
	mode := genai.FunctionCallingConfigModeAuto
	var allowed []string

	switch choice.Mode {
	case ToolChoiceNone:
		mode = genai.FunctionCallingConfigModeNone
	case ToolChoiceRequired:
		mode = genai.FunctionCallingConfigModeAny
	case ToolChoiceName:
		if strings.TrimSpace(choice.Name) != "" {
			mode = genai.FunctionCallingConfigModeAny
			allowed = []string{choice.Name}
		}
	}

	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 mode,
			AllowedFunctionNames: allowed,
		},
	}
}

// geminiSchema converts a JSON schema map into the genai schema type.
// Only the keywords the API accepts are carried over; everything else
// (format, bounds, additionalProperties) is dropped. The API also wants
// every property listed as required.
func geminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	out := &genai.Schema{Type: geminiSchemaType(schema)}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}

	if props, ok := schema["properties"].(map[string]any); ok && len(props) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(props))
		names := make([]string, 0, len(props))
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			out.Properties[name] = geminiSchema(propMap)
			names = append(names, name)
		}
		sort.Strings(names)
		out.Required = names
	}

	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = geminiSchema(items)
	}

	if enum, ok := schema["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	return out
}

func geminiSchemaType(schema map[string]any) genai.Type {
	t, _ := schema["type"].(string)
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeString
}

// collectTextParts joins the text parts of a message.
func collectTextParts(parts []Part) string {
	var texts []string
	for _, part := range parts {
		if part.Type == PartText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
