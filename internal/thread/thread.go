// Package thread owns conversation threads: ordered, append-only turn
// histories keyed by an opaque id.
package thread

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrUnknownThread is returned when a thread id has no record in the store.
var ErrUnknownThread = errors.New("thread: unknown thread")

// Role is who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind says which Turn field carries the content.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentImage      ContentKind = "image"
	ContentToolResult ContentKind = "tool_result"
)

// Turn is one entry of a thread.
type Turn struct {
	Role      Role            `json:"role"`
	Kind      ContentKind     `json:"kind"`
	Text      string          `json:"text,omitempty"`
	AssetID   string          `json:"asset_id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TextTurn builds a text turn.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Kind: ContentText, Text: text}
}

// ImageTurn builds a user turn referencing an uploaded asset.
func ImageTurn(assetID string) Turn {
	return Turn{Role: RoleUser, Kind: ContentImage, AssetID: assetID}
}

// ToolResultTurn builds an assistant turn holding a JSON tool result.
func ToolResultTurn(result json.RawMessage) Turn {
	return Turn{Role: RoleAssistant, Kind: ContentToolResult, Result: result}
}

// Store persists threads. Implementations must keep turns in append order;
// callers serialize Append per thread id.
type Store interface {
	// Create records a new, empty thread.
	Create(ctx context.Context, id string) error
	// Exists reports whether id has been created.
	Exists(ctx context.Context, id string) (bool, error)
	// Append adds a turn at the end of the thread. Returns ErrUnknownThread
	// if the thread does not exist.
	Append(ctx context.Context, id string, turn Turn) error
	// Turns returns the thread's turns in order, or ErrUnknownThread.
	Turns(ctx context.Context, id string) ([]Turn, error)
}
