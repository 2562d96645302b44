package core

import (
	"context"
)

// LLMClient abstracts the completion service (OpenRouter, Gemini, ...).
// The reply is free text, tool calls, or both; callers decide what to keep.
type LLMClient interface {
	ChatCompletionWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error)
}

// Tagger asks the asset service to classify an asset and returns its tags in
// the order the service reports them. Re-calling is safe.
type Tagger interface {
	RequestTags(ctx context.Context, publicID string) ([]string, error)
}
