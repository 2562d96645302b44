// Package cloudinary talks to the hosted asset service's Admin API: it asks
// the service to auto-tag an asset and reads back existing tags.
package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
)

// ProviderName is the Provider of returned *core.APIError values.
const ProviderName = "cloudinary"

// DefaultAPIBase is the Admin API root.
const DefaultAPIBase = "https://api.cloudinary.com/v1_1"

// Categorization settings sent with every tag request: Rekognition tagging,
// keeping tags at or above 70% confidence.
const (
	Categorization = "aws_rek_tagging"
	AutoTagging    = "0.7"
)

// Client is an Admin API client for one cloud.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string
	HTTP      *http.Client
	Health    *health.Tracker
	// Timeout bounds each Admin API call, including shared tag requests that
	// outlive the caller that started them. 0 = only the caller's deadline.
	Timeout time.Duration

	log   *zap.Logger
	group singleflight.Group
}

// NewClient returns a client for cloud. A nil logger disables logging.
func NewClient(cloud, apiKey, apiSecret string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		CloudName: cloud,
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   DefaultAPIBase,
		HTTP:      http.DefaultClient,
		log:       log,
	}
}

// Resource is the subset of an Admin API resource the agent reads.
type Resource struct {
	PublicID string   `json:"public_id"`
	Tags     []string `json:"tags"`
	Info     struct {
		Categorization struct {
			AwsRekTagging struct {
				Status string `json:"status"`
				Data   []struct {
					Tag        string  `json:"tag"`
					Confidence float64 `json:"confidence"`
				} `json:"data"`
			} `json:"aws_rek_tagging"`
		} `json:"categorization"`
	} `json:"info"`
}

// MergedTags returns the resource tags followed by Rekognition tags,
// de-duplicated, first occurrence wins.
func (r *Resource) MergedTags() []string {
	all := make([]string, 0, len(r.Tags)+len(r.Info.Categorization.AwsRekTagging.Data))
	all = append(all, r.Tags...)
	for _, d := range r.Info.Categorization.AwsRekTagging.Data {
		all = append(all, d.Tag)
	}
	return Dedupe(all)
}

// Dedupe drops empty and repeated tags, keeping order.
func Dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// RequestTags runs auto-tagging on publicID and returns the tags the service
// reports, merged with Rekognition data. Concurrent calls for the same asset
// share one upstream request.
func (c *Client) RequestTags(ctx context.Context, publicID string) ([]string, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, &core.APIError{Provider: ProviderName, StatusCode: http.StatusBadRequest, Message: "invalid request: empty public id"}
	}
	ch := c.group.DoChan("tag:"+publicID, func() (interface{}, error) {
		form := url.Values{}
		form.Set("categorization", Categorization)
		form.Set("auto_tagging", AutoTagging)
		// Detached from the first caller's cancellation: other callers may
		// still be waiting. Its deadline and the client timeout still apply.
		callCtx, cancel := c.detach(ctx)
		defer cancel()
		res, err := c.do(callCtx, http.MethodPost, publicID, form)
		if err != nil {
			return nil, err
		}
		return res.MergedTags(), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		tags := r.Val.([]string)
		c.log.Debug("tagged asset", zap.String("public_id", publicID), zap.Int("tags", len(tags)), zap.Bool("shared", r.Shared))
		return append([]string(nil), tags...), nil
	}
}

func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		out, cancelDeadline = context.WithDeadline(out, dl)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	if c.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		out, cancelTimeout = context.WithTimeout(out, c.Timeout)
		prev := cancel
		cancel = func() { cancelTimeout(); prev() }
	}
	return out, cancel
}

// Resource fetches publicID including Rekognition categorization data.
func (c *Client) Resource(ctx context.Context, publicID string) (*Resource, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, &core.APIError{Provider: ProviderName, StatusCode: http.StatusBadRequest, Message: "invalid request: empty public id"}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.do(ctx, http.MethodGet, publicID, nil)
}

func (c *Client) do(ctx context.Context, method, publicID string, form url.Values) (*Resource, error) {
	res, err := c.roundTrip(ctx, method, publicID, form)
	c.Health.Record(err)
	return res, err
}

func (c *Client) roundTrip(ctx context.Context, method, publicID string, form url.Values) (*Resource, error) {
	if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
		return nil, &core.APIError{Provider: ProviderName, StatusCode: http.StatusUnauthorized, Message: "credentials not configured"}
	}
	endpoint := c.resourceURL(publicID)
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + url.Values{"with_field": {Categorization}}.Encode()
	} else if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.APIKey, c.APISecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, raw)
	}
	var out Resource
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cloudinary: decode: %w", err)
	}
	return &out, nil
}

// resourceURL escapes each folder of publicID separately so '/' survives.
func (c *Client) resourceURL(publicID string) string {
	parts := strings.Split(publicID, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return fmt.Sprintf("%s/%s/resources/image/upload/%s", base, url.PathEscape(c.CloudName), strings.Join(parts, "/"))
}

func apiError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	// The Admin API signals rate limiting with 420.
	if status == 420 {
		status = http.StatusTooManyRequests
		msg = "rate limit: " + msg
	}
	return &core.APIError{Provider: ProviderName, StatusCode: status, Message: msg}
}

var _ core.Tagger = (*Client)(nil)
