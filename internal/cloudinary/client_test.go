package cloudinary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
)

const resourceJSON = `{
	"public_id": "folder/cat",
	"tags": ["pet", "cat"],
	"info": {"categorization": {"aws_rek_tagging": {"status": "complete", "data": [
		{"tag": "Cat", "confidence": 0.98},
		{"tag": "pet", "confidence": 0.91},
		{"tag": "Animal", "confidence": 0.88}
	]}}}
}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient("demo", "key", "secret", zaptest.NewLogger(t))
	c.BaseURL = srv.URL
	c.Health = health.NewTracker(ProviderName)
	return c
}

func TestRequestTags(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/demo/resources/image/upload/folder/cat", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, Categorization, r.PostForm.Get("categorization"))
		assert.Equal(t, AutoTagging, r.PostForm.Get("auto_tagging"))
		_, _ = w.Write([]byte(resourceJSON))
	})

	tags, err := c.RequestTags(context.Background(), " folder/cat ")
	require.NoError(t, err)
	assert.Equal(t, []string{"pet", "cat", "Cat", "Animal"}, tags)
	ok, _ := c.Health.Counts()
	assert.Equal(t, int64(1), ok)
}

func TestResource(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, Categorization, r.URL.Query().Get("with_field"))
		assert.Equal(t, "/demo/resources/image/upload/my%20folder/a%3Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(resourceJSON))
	})

	res, err := c.Resource(context.Background(), "my folder/a?b")
	require.NoError(t, err)
	assert.Equal(t, "folder/cat", res.PublicID)
	assert.Equal(t, "complete", res.Info.Categorization.AwsRekTagging.Status)
	assert.Len(t, res.Info.Categorization.AwsRekTagging.Data, 3)
}

func TestRequestTags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
		msg    string
	}{
		{"rate limited", 420, `{"error":{"message":"Rate Limit Exceeded"}}`, http.StatusTooManyRequests, "rate limit: Rate Limit Exceeded"},
		{"not found", http.StatusNotFound, `{"error":{"message":"Resource not found - cat"}}`, http.StatusNotFound, "Resource not found - cat"},
		{"bad credentials", http.StatusUnauthorized, `unauthorized`, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.RequestTags(context.Background(), "cat")
			var apiErr *core.APIError
			require.True(t, errors.As(err, &apiErr), "got %T: %v", err, err)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.msg, apiErr.Message)
			assert.Equal(t, "error", c.Health.HealthCheck().Status)
		})
	}
}

func TestRequestTags_MissingCredentials(t *testing.T) {
	c := NewClient("demo", "", "", nil)
	_, err := c.RequestTags(context.Background(), "cat")
	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.RequestTags(context.Background(), "  ")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestRequestTags_SharesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = w.Write([]byte(resourceJSON))
	})

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]string, callers)
	errs := make([]error, callers)
	start := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.RequestTags(context.Background(), "folder/cat")
		}()
	}
	start(0)
	<-arrived
	for i := 1; i < callers; i++ {
		start(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"pet", "cat", "Cat", "Animal"}, results[i])
	}
	results[0][0] = "changed"
	assert.Equal(t, "pet", results[1][0])
}

func TestRequestTags_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(resourceJSON))
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.RequestTags(ctx, "cat")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestTags_SharedCallKeepsCallerDeadline(t *testing.T) {
	ended := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(ended)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.RequestTags(ctx, "cat")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request outlived the caller's deadline")
	}
}

func TestRequestTags_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.RequestTags(context.Background(), "cat")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "error", c.Health.HealthCheck().Status)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{" a", "", "b", "a", "b "}))
	assert.Empty(t, Dedupe(nil))
}
