package agent

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/thread"
	"github.com/cloudiagent/cloudiagent/internal/tools"
)

// Kind buckets a dispatch failure.
type Kind string

const (
	KindEmptyPrompt     Kind = "EmptyPrompt"
	KindUnknownThread   Kind = "UnknownThread"
	KindToolCallInvalid Kind = "ToolCallInvalid"
	KindRateLimited     Kind = "RateLimited"
	KindUnauthorized    Kind = "Unauthorized"
	KindInvalidRequest  Kind = "InvalidRequest"
	KindUnknown         Kind = "Unknown"
)

// HTTPStatus is the status the HTTP surface answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindEmptyPrompt, KindInvalidRequest:
		return http.StatusBadRequest
	case KindUnknownThread:
		return http.StatusNotFound
	case KindToolCallInvalid:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode is the process exit status the CLI uses.
func (k Kind) ExitCode() int {
	switch k {
	case KindEmptyPrompt, KindInvalidRequest:
		return 2
	case KindUnknownThread:
		return 3
	case KindToolCallInvalid:
		return 4
	case KindRateLimited:
		return 5
	case KindUnauthorized:
		return 6
	default:
		return 1
	}
}

// Error is the error returned by Dispatch.
type Error struct {
	Kind    Kind
	Message string
	// ToolKind and Field are set for ToolCallInvalid.
	ToolKind string
	Field    string
	// Retryable marks transient upstream failures (timeouts, 429, 5xx).
	Retryable bool
	// ThreadID is set once the thread was resolved; its user turn stays appended.
	ThreadID string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.ToolKind != "" {
		b.WriteString(" (")
		b.WriteString(e.ToolKind)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is a short message fit to show an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindEmptyPrompt:
		return "Message is required"
	case KindUnknownThread:
		return "Conversation not found; start a new one"
	case KindToolCallInvalid:
		return "The assistant produced an invalid edit request; try rephrasing"
	case KindRateLimited:
		return "Rate limit exceeded"
	case KindUnauthorized:
		return "Authentication error"
	case KindInvalidRequest:
		return "Invalid request"
	default:
		return "Internal server error"
	}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var (
	rateLimitRx    = regexp.MustCompile(`rate limit|quota`)
	unauthorizedRx = regexp.MustCompile(`unauthorized|authentication`)
	invalidReqRx   = regexp.MustCompile(`invalid request`)
)

// Classify maps an upstream error to a Kind. The HTTP status of a
// *core.APIError decides first; otherwise the lowercased message is matched.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, thread.ErrUnknownThread) {
		return &Error{Kind: KindUnknownThread, Message: err.Error(), Err: err}
	}
	if isTimeout(err) {
		return &Error{Kind: KindUnknown, Message: err.Error(), Retryable: true, Err: err}
	}

	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Message: err.Error(), Retryable: true, Err: err}
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return &Error{Kind: KindUnauthorized, Message: err.Error(), Err: err}
		case apiErr.StatusCode == http.StatusBadRequest:
			return &Error{Kind: KindInvalidRequest, Message: err.Error(), Err: err}
		case apiErr.StatusCode >= 500:
			return &Error{Kind: KindUnknown, Message: err.Error(), Retryable: true, Err: err}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case rateLimitRx.MatchString(msg):
		return &Error{Kind: KindRateLimited, Message: err.Error(), Retryable: true, Err: err}
	case unauthorizedRx.MatchString(msg):
		return &Error{Kind: KindUnauthorized, Message: err.Error(), Err: err}
	case invalidReqRx.MatchString(msg):
		return &Error{Kind: KindInvalidRequest, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// invalidToolCall wraps a registry rejection.
func invalidToolCall(name string, err error) *Error {
	e := &Error{Kind: KindToolCallInvalid, ToolKind: name, Message: err.Error(), Err: err}
	var ve *tools.ValidationError
	var de *tools.DiscriminantError
	switch {
	case errors.As(err, &ve):
		e.Field = ve.Field
	case errors.As(err, &de):
		e.Field = tools.DiscriminantField
	}
	return e
}

func emptyPrompt() *Error {
	return &Error{Kind: KindEmptyPrompt, Message: "prompt is empty"}
}
