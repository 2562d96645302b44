// Package gemini is a completion client backed by the Google GenAI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
	"github.com/cloudiagent/cloudiagent/internal/registry"
)

// ProviderName is the registry key and the Provider of returned *core.APIError values.
const ProviderName = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

func init() {
	registry.RegisterClient(ProviderName, func(ctx context.Context, opts registry.ClientOptions) (core.LLMClient, error) {
		c, err := NewClient(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		c.Health = opts.Tracker
		return c, nil
	})
}

// generator is the slice of the SDK the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client adapts genai's GenerateContent to core.LLMClient.
type Client struct {
	models generator
	model  string
	Health *health.Tracker
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

// ChatCompletionWithTools converts the OpenAI-shaped conversation to genai
// contents and returns the text and function calls of the first candidate.
func (c *Client) ChatCompletionWithTools(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (string, []core.ToolCall, error) {
	text, calls, err := c.complete(ctx, messages, tools)
	c.Health.Record(err)
	return text, calls, err
}

func (c *Client) complete(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (string, []core.ToolCall, error) {
	contents, system := toContents(messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if decls := toDeclarations(tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", nil, wrapError(err)
	}

	var calls []core.ToolCall
	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return "", nil, fmt.Errorf("gemini: encode args of %s: %w", fc.Name, err)
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, core.NewToolCall(id, fc.Name, string(args)))
	}
	return resp.Text(), calls, nil
}

// toContents maps roles: system messages become the system instruction,
// assistant becomes model, everything else user.
func toContents(messages []core.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			if m.Content != "" {
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
			}
		default:
			if m.Content != "" {
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
			}
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func toDeclarations(tools []core.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Function.Name,
			Description:          t.Function.Description,
			ParametersJsonSchema: t.Function.Parameters,
		})
	}
	return decls
}

// wrapError turns SDK API errors into *core.APIError so callers can classify
// them by status code.
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Status != "" {
			msg = apiErr.Status + ": " + msg
		}
		return &core.APIError{Provider: ProviderName, StatusCode: apiErr.Code, Message: msg}
	}
	return fmt.Errorf("gemini: %w", err)
}
