package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// httpClientTimeout is the default timeout for HTTP requests
const httpClientTimeout = 10 * time.Minute

// defaultHTTPClient is a shared HTTP client with reasonable timeouts
var defaultHTTPClient = &http.Client{
	Timeout: httpClientTimeout,
}

// HTTPError is a non-2xx response from an HTTP API. RetryAfter carries
// the parsed Retry-After header when the server sent one.
type HTTPError struct {
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	if body == "" {
		return fmt.Sprintf("API error (status %d)", e.Status)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, body)
}

// OpenAICompatProvider implements Provider for OpenAI-compatible chat
// completion APIs. Used for OpenAI itself, Ollama, LM Studio, and other
// servers that speak the same SSE dialect. Tool-call fragments are
// forwarded as wire events; assembly happens downstream in the
// interpreter.
type OpenAICompatProvider struct {
	baseURL    string
	apiKey     string // Optional, local servers ignore it
	name       string // "openai", "ollama", ...
	credential string
	headers    map[string]string
}

func NewOpenAICompatProvider(baseURL, apiKey, name, credential string) *OpenAICompatProvider {
	return NewOpenAICompatProviderWithHeaders(baseURL, apiKey, name, credential, nil)
}

func NewOpenAICompatProviderWithHeaders(baseURL, apiKey, name, credential string, headers map[string]string) *OpenAICompatProvider {
	// Ensure baseURL doesn't have trailing slash
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &OpenAICompatProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		name:       name,
		credential: credential,
		headers:    headers,
	}
}

func (p *OpenAICompatProvider) Name() string {
	return p.name
}

func (p *OpenAICompatProvider) Credential() string {
	return p.credential
}

func (p *OpenAICompatProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true}
}

// OpenAI-compatible request/response structures
// Tool choice can be string ("none"/"auto"/"required") or object.
type oaiChatRequest struct {
	Model             string            `json:"model"`
	Messages          []oaiMessage      `json:"messages"`
	Tools             []oaiTool         `json:"tools,omitempty"`
	ToolChoice        any               `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool             `json:"parallel_tool_calls,omitempty"`
	Temperature       *float64          `json:"temperature,omitempty"`
	MaxTokens         *int              `json:"max_tokens,omitempty"`
	Stream            bool              `json:"stream,omitempty"`
	StreamOptions     *oaiStreamOptions `json:"stream_options,omitempty"`
}

type oaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiTool struct {
	Type     string      `json:"type"`
	Function oaiFunction `json:"function"`
}

type oaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type oaiToolCall struct {
	Index    int    `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function,omitempty"`
}

type oaiChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []oaiChoice  `json:"choices"`
	Usage   *oaiUsage    `json:"usage,omitempty"`
	Error   *oaiAPIError `json:"error,omitempty"`
}

type oaiChoice struct {
	Index        int         `json:"index"`
	Message      *oaiMessage `json:"message,omitempty"`
	Delta        *oaiMessage `json:"delta,omitempty"`
	FinishReason string      `json:"finish_reason"`
}

type oaiUsage struct {
	PromptTokens        int                     `json:"prompt_tokens"`
	CompletionTokens    int                     `json:"completion_tokens"`
	TotalTokens         int                     `json:"total_tokens"`
	PromptTokensDetails *oaiPromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

type oaiPromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type oaiAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Model listing structures
type oaiModelsResponse struct {
	Data []oaiModel `json:"data"`
}

type oaiModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

func (p *OpenAICompatProvider) makeRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	url := p.baseURL + endpoint

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for key, value := range p.headers {
		if value == "" {
			continue
		}
		httpReq.Header.Set(key, value)
	}

	return defaultHTTPClient.Do(httpReq)
}

// ListModels returns available models from the server.
func (p *OpenAICompatProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := p.makeRequest(ctx, "GET", "/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			RetryAfter: retryAfterFromHeader(resp.Header),
			Body:       string(body),
		}
	}

	var modelsResp oaiModelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	models := make([]ModelInfo, len(modelsResp.Data))
	for i, m := range modelsResp.Data {
		models[i] = ModelInfo{
			ID:      m.ID,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		}
	}

	return models, nil
}

func (p *OpenAICompatProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("%s: no model specified", p.name)
	}
	body, err := p.buildChatBody(req)
	if err != nil {
		return nil, err
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		resp, err := p.makeRequest(ctx, "POST", "/chat/completions", body)
		if err != nil {
			return fmt.Errorf("%s API request failed: %w", p.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			errBody, _ := io.ReadAll(resp.Body)
			return &HTTPError{
				Status:     resp.StatusCode,
				RetryAfter: retryAfterFromHeader(resp.Header),
				Body:       string(errBody),
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		// Tool-call fragments carry a call index; the first fragment for
		// an index opens a block, later ones stream its input JSON.
		started := make(map[int]bool)
		var order []int
		var lastEventType string

		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				lastEventType = strings.TrimPrefix(line, "event: ")
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var chatResp oaiChatResponse
			if err := json.Unmarshal([]byte(data), &chatResp); err != nil {
				continue
			}

			if lastEventType == "error" || chatResp.Error != nil {
				errMsg := "unknown error"
				if chatResp.Error != nil {
					errMsg = chatResp.Error.Message
				}
				return fmt.Errorf("%s API error: %s", p.name, errMsg)
			}

			if chatResp.Usage != nil {
				u := Usage{
					InputTokens:  chatResp.Usage.PromptTokens,
					OutputTokens: chatResp.Usage.CompletionTokens,
				}
				if details := chatResp.Usage.PromptTokensDetails; details != nil {
					u.CachedInputTokens = details.CachedTokens
				}
				if err := emit(ctx, events, Event{Type: EventUsage, Use: &u}); err != nil {
					return err
				}
			}

			for _, choice := range chatResp.Choices {
				if choice.Delta == nil {
					continue
				}
				if choice.Delta.Content != "" {
					if err := emit(ctx, events, Event{Type: EventTextDelta, Text: choice.Delta.Content}); err != nil {
						return err
					}
				}
				for _, call := range choice.Delta.ToolCalls {
					idx := call.Index
					if !started[idx] {
						started[idx] = true
						order = append(order, idx)
						block := BlockStart{Kind: BlockToolUse, ID: call.ID, Name: call.Function.Name}
						if err := emit(ctx, events, Event{Type: EventBlockStart, Index: int64(idx), Block: &block}); err != nil {
							return err
						}
					}
					if call.Function.Arguments != "" {
						if err := emit(ctx, events, Event{Type: EventInputJSONDelta, Index: int64(idx), PartialJSON: call.Function.Arguments}); err != nil {
							return err
						}
					}
				}
			}

			lastEventType = ""
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("%s streaming error: %w", p.name, err)
		}

		// The dialect has no per-call stop signal; every open block closes
		// when the stream ends.
		for _, idx := range order {
			if err := emit(ctx, events, Event{Type: EventBlockStop, Index: int64(idx)}); err != nil {
				return err
			}
		}
		return emit(ctx, events, Event{Type: EventMessageEnd})
	}), nil
}

func (p *OpenAICompatProvider) buildChatBody(req Request) ([]byte, error) {
	messages := buildCompatMessages(req.Messages)
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	tools, err := buildCompatTools(req.Tools)
	if err != nil {
		return nil, err
	}

	chatReq := oaiChatRequest{
		Model:         req.Model,
		Messages:      messages,
		Tools:         tools,
		Stream:        true,
		StreamOptions: &oaiStreamOptions{IncludeUsage: true},
	}

	if len(tools) > 0 {
		if req.ToolChoice.Mode != "" {
			chatReq.ToolChoice = buildCompatToolChoice(req.ToolChoice)
		}
		parallel := req.ParallelToolCalls
		chatReq.ParallelToolCalls = &parallel
	}
	if req.Temperature > 0 {
		v := float64(req.Temperature)
		chatReq.Temperature = &v
	}
	if req.MaxOutputTokens > 0 {
		v := req.MaxOutputTokens
		chatReq.MaxTokens = &v
	}

	return json.Marshal(chatReq)
}

func buildCompatMessages(messages []Message) []oaiMessage {
	var result []oaiMessage
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
			text, toolCalls := splitParts(msg.Parts)
			if msg.Role == RoleAssistant && len(toolCalls) > 0 {
				result = append(result, oaiMessage{
					Role:      "assistant",
					Content:   text,
					ToolCalls: toolCalls,
				})
				continue
			}
			if text == "" {
				continue
			}
			result = append(result, oaiMessage{Role: string(msg.Role), Content: text})
		case RoleTool:
			for _, part := range msg.Parts {
				if part.Type != PartToolResult || part.ToolResult == nil {
					continue
				}
				result = append(result, oaiMessage{
					Role:       "tool",
					Content:    part.ToolResult.Content,
					ToolCallID: part.ToolResult.ID,
				})
			}
		}
	}
	return result
}

func splitParts(parts []Part) (string, []oaiToolCall) {
	var textParts []string
	var toolCalls []oaiToolCall
	for _, part := range parts {
		switch part.Type {
		case PartText:
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
		case PartToolCall:
			if part.ToolCall == nil {
				continue
			}
			call := oaiToolCall{ID: part.ToolCall.ID, Type: "function"}
			call.Function.Name = part.ToolCall.Name
			call.Function.Arguments = string(part.ToolCall.Arguments)
			toolCalls = append(toolCalls, call)
		}
	}
	return strings.Join(textParts, ""), toolCalls
}

func buildCompatTools(specs []ToolSpec) ([]oaiTool, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	tools := make([]oaiTool, 0, len(specs))
	for _, spec := range specs {
		schema, err := json.Marshal(spec.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal tool schema %s: %w", spec.Name, err)
		}
		tools = append(tools, oaiTool{
			Type: "function",
			Function: oaiFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  schema,
			},
		})
	}
	return tools, nil
}

func buildCompatToolChoice(choice ToolChoice) any {
	switch choice.Mode {
	case ToolChoiceNone:
		return "none"
	case ToolChoiceRequired:
		return "required"
	case ToolChoiceName:
		return map[string]any{
			"type":     "function",
			"function": map[string]string{"name": choice.Name},
		}
	case ToolChoiceAuto:
		return "auto"
	default:
		return nil
	}
}

// retryAfterFromHeader parses a Retry-After header, accepting both the
// delta-seconds and HTTP-date forms.
func retryAfterFromHeader(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
