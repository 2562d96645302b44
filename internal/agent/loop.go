// Package agent runs one dispatch: it records the user's turn, asks the
// completion service what to do, executes at most one tool, and records the
// assistant's turn.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/thread"
	"github.com/cloudiagent/cloudiagent/internal/tools"
	"github.com/cloudiagent/cloudiagent/internal/transform"
)

// MaxTags caps the tags returned by the tagging tool.
const MaxTags = 10

// FallbackText is the reply when the model returns neither text nor a tool call.
const FallbackText = "(No text in model response; try rephrasing or a different model.)"

// Tool result types as they appear in the envelope.
const (
	ResultCloudinaryURL = "cloudinaryUrl"
	ResultTagList       = "tagList"
	ResultCapabilities  = "capabilities"
)

// Request is one user message.
type Request struct {
	Prompt string `json:"prompt"`
	// ThreadID continues an existing thread; empty starts a new one.
	ThreadID string `json:"threadId,omitempty"`
	// AssetID is the public id of an image the user just uploaded.
	AssetID string `json:"publicId,omitempty"`
}

// ToolResult is the outcome of the executed tool.
type ToolResult struct {
	Type         string             `json:"type"`
	Tool         tools.Kind         `json:"tool"`
	URL          string             `json:"url,omitempty"`
	Descriptor   string             `json:"descriptor,omitempty"`
	Segments     []string           `json:"segments,omitempty"`
	PublicID     string             `json:"publicId,omitempty"`
	Tags         []string           `json:"tags"`
	Capabilities []tools.Capability `json:"capabilities,omitempty"`
	Message      string             `json:"message,omitempty"`
}

// MarshalJSON always writes "tags" for a tag list, even when empty, and
// leaves it out of every other result type.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	type plain ToolResult
	if r.Type == ResultTagList {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		return json.Marshal(struct {
			plain
			Tags []string `json:"tags"`
		}{plain(r), tags})
	}
	return json.Marshal(struct {
		plain
		Tags []string `json:"tags,omitempty"`
	}{plain(r), r.Tags})
}

// Result is the dispatch envelope. Exactly one of Text and ToolResult is set.
type Result struct {
	ThreadID           string      `json:"threadId"`
	Text               *string     `json:"text,omitempty"`
	ToolResult         *ToolResult `json:"toolResult,omitempty"`
	DiscardedToolCalls int         `json:"discardedToolCalls,omitempty"`
}

// Dispatcher wires the thread manager, the tool registry, the completion
// client and the tagging collaborator. Safe for concurrent use.
type Dispatcher struct {
	Threads *thread.Manager
	Tools   *tools.Registry
	Client  core.LLMClient
	// Tagger serves tagImage; nil makes tag calls fail.
	Tagger core.Tagger
	// Cloud and BaseURL build delivery locators.
	Cloud   string
	BaseURL string
	// Timeout bounds the completion call and the tagging call separately;
	// 0 = no limit beyond ctx.
	Timeout      time.Duration
	HistoryLimit int
	Log          *zap.Logger

	systemPrompt string
}

// NewDispatcher returns a dispatcher with the default history limit.
func NewDispatcher(threads *thread.Manager, reg *tools.Registry, client core.LLMClient, tagger core.Tagger, cloud string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		Threads:      threads,
		Tools:        reg,
		Client:       client,
		Tagger:       tagger,
		Cloud:        cloud,
		BaseURL:      transform.DefaultBaseURL,
		HistoryLimit: DefaultHistoryLimit,
		Log:          log,
		systemPrompt: BuildSystemPrompt(reg),
	}
}

// Dispatch handles one user message. Errors are *Error. The user turn is
// appended before the completion call and stays in the thread when a later
// step fails; no assistant turn is appended on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, emptyPrompt()
	}
	log := d.logger()

	threadID, err := d.Threads.Resolve(ctx, req.ThreadID)
	if err != nil {
		e := Classify(err)
		log.Info("thread resolve failed", zap.String("thread_id", req.ThreadID), zap.String("kind", string(e.Kind)))
		return nil, e
	}
	log = log.With(zap.String("thread_id", threadID))
	fail := func(e *Error) (*Result, error) {
		e.ThreadID = threadID
		log.Warn("dispatch failed", zap.String("kind", string(e.Kind)), zap.Bool("retryable", e.Retryable), zap.Error(e.Err))
		return nil, e
	}

	var userTurns []thread.Turn
	if asset := strings.TrimSpace(req.AssetID); asset != "" {
		userTurns = append(userTurns, thread.ImageTurn(asset))
	}
	userTurns = append(userTurns, thread.TextTurn(thread.RoleUser, prompt))
	if err := d.Threads.AppendTurn(ctx, threadID, userTurns...); err != nil {
		return fail(Classify(err))
	}

	history, err := d.Threads.History(ctx, threadID)
	if err != nil {
		return fail(Classify(err))
	}
	messages := []core.Message{{Role: "system", Content: d.prompt()}}
	messages = append(messages, historyMessages(history, d.HistoryLimit)...)

	content, toolCalls, err := d.complete(ctx, messages)
	log.Debug("completion returned", zap.Int("content_len", len(content)), zap.Int("tool_calls", len(toolCalls)), zap.Error(err))
	if err != nil {
		return fail(Classify(err))
	}

	// Content-based tool parsing (e.g. XML)
	if len(toolCalls) == 0 {
		if parsed, cleaned := ParseContentToolCalls(content); len(parsed) > 0 {
			toolCalls, content = parsed, cleaned
		}
	}

	res := &Result{ThreadID: threadID}
	if len(toolCalls) == 0 {
		text := StripInlineToolCallMarkers(content)
		if text == "" {
			text = FallbackText
		}
		if err := d.Threads.AppendTurn(ctx, threadID, thread.TextTurn(thread.RoleAssistant, text)); err != nil {
			return fail(Classify(err))
		}
		res.Text = &text
		return res, nil
	}

	call := toolCalls[0]
	if n := len(toolCalls) - 1; n > 0 {
		res.DiscardedToolCalls = n
		log.Warn("discarding extra tool calls", zap.String("tool", call.Function.Name), zap.Int("discarded", n))
	}
	if strings.TrimSpace(content) != "" {
		log.Debug("dropping text accompanying tool call", zap.Int("content_len", len(content)))
	}

	inv, err := d.Tools.Validate(tools.Kind(call.Function.Name), call.Function.Arguments)
	if err != nil {
		return fail(invalidToolCall(call.Function.Name, err))
	}
	result, err := d.execute(ctx, inv)
	if err != nil {
		return fail(Classify(err))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fail(Classify(err))
	}
	if err := d.Threads.AppendTurn(ctx, threadID, thread.ToolResultTurn(raw)); err != nil {
		return fail(Classify(err))
	}
	log.Info("tool executed", zap.String("tool", string(inv.Kind())), zap.String("type", result.Type))
	res.ToolResult = result
	return res, nil
}

func (d *Dispatcher) complete(ctx context.Context, messages []core.Message) (string, []core.ToolCall, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return d.Client.ChatCompletionWithTools(ctx, messages, d.Tools.Definitions())
}

// execute runs a validated invocation. Transform kinds never touch the network.
func (d *Dispatcher) execute(ctx context.Context, inv tools.Invocation) (*ToolResult, error) {
	switch inv.Kind().Class() {
	case tools.ClassTransform:
		desc, err := transform.Encode(inv)
		if err != nil {
			return nil, err
		}
		return &ToolResult{
			Type:       ResultCloudinaryURL,
			Tool:       inv.Kind(),
			URL:        transform.Locator(d.BaseURL, d.Cloud, desc),
			Descriptor: desc.String(),
			Segments:   desc.Segments(),
			PublicID:   desc.AssetID(),
		}, nil

	case tools.ClassTag:
		if d.Tagger == nil {
			return nil, errors.New("tagging is not configured")
		}
		tagCtx := ctx
		if d.Timeout > 0 {
			var cancel context.CancelFunc
			tagCtx, cancel = context.WithTimeout(ctx, d.Timeout)
			defer cancel()
		}
		tags, err := d.Tagger.RequestTags(tagCtx, inv.PublicID())
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", inv.PublicID(), err)
		}
		if len(tags) > MaxTags {
			tags = tags[:MaxTags]
		}
		if tags == nil {
			tags = []string{}
		}
		return &ToolResult{Type: ResultTagList, Tool: inv.Kind(), PublicID: inv.PublicID(), Tags: tags}, nil

	case tools.ClassInfo:
		caps := d.Tools.Capabilities()
		names := make([]string, 0, len(caps))
		for _, c := range caps {
			names = append(names, c.Summary)
		}
		return &ToolResult{
			Type:         ResultCapabilities,
			Tool:         inv.Kind(),
			Capabilities: caps,
			Message:      strings.Join(names, " · "),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", tools.ErrUnknownKind, inv.Kind())
}

func (d *Dispatcher) prompt() string {
	if d.systemPrompt == "" {
		return BuildSystemPrompt(d.Tools)
	}
	return d.systemPrompt
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}
