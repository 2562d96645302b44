// Package openrouter is a completion client for the OpenRouter
// chat-completions API (OpenAI-compatible wire format).
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
	"github.com/cloudiagent/cloudiagent/internal/registry"
)

// ProviderName is the registry key and the Provider of returned *core.APIError values.
const ProviderName = "openrouter"

func init() {
	registry.RegisterClient(ProviderName, func(_ context.Context, opts registry.ClientOptions) (core.LLMClient, error) {
		c := NewClient(opts.APIKey, opts.Model)
		if opts.BaseURL != "" {
			c.BaseURL = opts.BaseURL
		}
		if opts.Timeout > 0 {
			c.HTTP = &http.Client{Timeout: opts.Timeout}
		}
		c.Health = opts.Tracker
		return c, nil
	})
}

const BaseURL = "https://openrouter.ai/api/v1"

// parseContent parses API content that may be string, null, or array of parts (e.g. [{"type":"text","text":"..."}]).
func parseContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			if p.Type == "text" {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return parseContentArrayGeneric(raw)
}

// parseContentArrayGeneric extracts text from an array of objects that may have "text" key.
func parseContentArrayGeneric(raw json.RawMessage) string {
	var parts []map[string]interface{}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p["text"].(string); ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

// ChatRequest is the request body for chat completions with optional tools.
type ChatRequest struct {
	Model      string                `json:"model"`
	Messages   []core.Message        `json:"messages"`
	Tools      []core.ToolDefinition `json:"tools,omitempty"`
	ToolChoice interface{}           `json:"tool_choice,omitempty"` // "auto" or object
}

// ChatResponse includes tool_calls in the choice message.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content   json.RawMessage `json:"content"`
			Role      string          `json:"role"`
			ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// Client calls the OpenRouter API. It never retries; transient failures are
// reported to the caller as *core.APIError.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
	Health  *health.Tracker
}

// NewClient creates a client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: BaseURL,
		HTTP:    http.DefaultClient,
	}
}

// ChatCompletionWithTools sends messages and optional tools; returns content and any tool_calls.
func (c *Client) ChatCompletionWithTools(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (string, []core.ToolCall, error) {
	content, calls, err := c.complete(ctx, messages, tools)
	c.Health.Record(err)
	return content, calls, err
}

func (c *Client) complete(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (string, []core.ToolCall, error) {
	if c.APIKey == "" {
		return "", nil, &core.APIError{Provider: ProviderName, StatusCode: http.StatusUnauthorized, Message: "API key not set"}
	}
	if c.Model == "" {
		return "", nil, &core.APIError{Provider: ProviderName, StatusCode: http.StatusBadRequest, Message: "invalid request: model not set"}
	}
	body := ChatRequest{
		Model:    c.Model,
		Messages: messages,
		Tools:    tools,
	}
	if len(tools) > 0 {
		body.ToolChoice = "auto"
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", nil, err
	}

	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("openrouter: %w", err)
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("openrouter: read body: %w", err)
	}

	var out ChatResponse
	decodeErr := json.Unmarshal(bodyBytes, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(bodyBytes))
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", nil, &core.APIError{Provider: ProviderName, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", nil, fmt.Errorf("openrouter: decode: %w", decodeErr)
	}
	if out.Error != nil {
		// Some upstream providers answer 200 with an error object.
		status, _ := strconv.Atoi(strings.Trim(string(out.Error.Code), `"`))
		return "", nil, &core.APIError{Provider: ProviderName, StatusCode: status, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return "", nil, fmt.Errorf("openrouter: no choices in response (body: %s)", string(bodyBytes))
	}
	msg := out.Choices[0].Message
	return parseContent(msg.Content), msg.ToolCalls, nil
}
