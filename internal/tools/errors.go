package tools

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a tool call names a kind the registry does not hold.
var ErrUnknownKind = errors.New("tools: unknown tool kind")

// ValidationError reports an argument that does not satisfy the tool's schema.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("tools: invalid %s call: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("tools: invalid %s.%s: %s", e.Kind, e.Field, e.Reason)
}

// DiscriminantError reports a tool call whose "type" argument names a
// different kind than the tool it was routed to.
type DiscriminantError struct {
	Kind Kind
	Got  string
}

func (e *DiscriminantError) Error() string {
	return fmt.Sprintf("tools: %s call carries discriminant %q", e.Kind, e.Got)
}
