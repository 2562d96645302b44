package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/thread"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"429 status", &core.APIError{Provider: "openrouter", StatusCode: 429, Message: "slow down"}, KindRateLimited, true},
		{"401 status", &core.APIError{Provider: "openrouter", StatusCode: 401, Message: "no"}, KindUnauthorized, false},
		{"403 status", &core.APIError{Provider: "gemini", StatusCode: 403, Message: "no"}, KindUnauthorized, false},
		{"400 status", &core.APIError{Provider: "openrouter", StatusCode: 400, Message: "bad"}, KindInvalidRequest, false},
		{"503 status", &core.APIError{Provider: "openrouter", StatusCode: 503, Message: "down"}, KindUnknown, true},
		{"status wins over text", &core.APIError{Provider: "openrouter", StatusCode: 401, Message: "quota exceeded"}, KindUnauthorized, false},
		{"quota text", errors.New("Quota exceeded for model"), KindRateLimited, true},
		{"rate limit text", fmt.Errorf("wrapped: %w", errors.New("Rate limit reached")), KindRateLimited, true},
		{"authentication text", errors.New("Authentication failed"), KindUnauthorized, false},
		{"invalid request text", errors.New("Invalid request: messages"), KindInvalidRequest, false},
		{"deadline", fmt.Errorf("openrouter: %w", context.DeadlineExceeded), KindUnknown, true},
		{"unknown thread", fmt.Errorf("x: %w", thread.ErrUnknownThread), KindUnknownThread, false},
		{"other", errors.New("boom"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(tt.err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.ErrorIs(t, e, tt.err)
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindEmptyPrompt.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindUnknownThread.HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, KindToolCallInvalid.HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, KindRateLimited.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindUnauthorized.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindUnknown.HTTPStatus())
}

func TestErrorString(t *testing.T) {
	e := &Error{Kind: KindToolCallInvalid, ToolKind: "resize", Field: "width", Message: "must be > 0"}
	assert.Equal(t, "ToolCallInvalid (resize.width): must be > 0", e.Error())
	assert.Equal(t, KindToolCallInvalid, KindOf(fmt.Errorf("x: %w", e)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
