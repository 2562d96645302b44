// Package server exposes the dispatcher and its helpers over HTTP JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudiagent/cloudiagent/internal/agent"
	"github.com/cloudiagent/cloudiagent/internal/cloudinary"
	"github.com/cloudiagent/cloudiagent/internal/health"
	"github.com/cloudiagent/cloudiagent/internal/tools"
	"github.com/cloudiagent/cloudiagent/internal/transform"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Dispatcher runs one user message.
type Dispatcher interface {
	Dispatch(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// ResourceFetcher reads an asset's tags from the asset service.
type ResourceFetcher interface {
	Resource(ctx context.Context, publicID string) (*cloudinary.Resource, error)
}

// Server serves the dispatch API and health endpoint.
type Server struct {
	Addr       string
	Dispatcher Dispatcher
	Tools      *tools.Registry
	// Resources serves /api/tags; nil answers 503.
	Resources    ResourceFetcher
	Health       *health.Registry
	Log          *zap.Logger
	MaxBodyBytes int64

	HealthPath   string
	DispatchPath string
	ToolsPath    string
	TagsPath     string
	ExplainPath  string
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	if s.HealthPath == "" {
		s.HealthPath = "/health"
	}
	if s.DispatchPath == "" {
		s.DispatchPath = "/api/dispatch"
	}
	if s.ToolsPath == "" {
		s.ToolsPath = "/api/tools"
	}
	if s.TagsPath == "" {
		s.TagsPath = "/api/tags"
	}
	if s.ExplainPath == "" {
		s.ExplainPath = "/api/explain"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(s.HealthPath, s.handleHealth)
	mux.HandleFunc(s.DispatchPath, s.handleDispatch)
	mux.HandleFunc(s.ToolsPath, s.handleTools)
	mux.HandleFunc(s.TagsPath, s.handleTags)
	mux.HandleFunc(s.ExplainPath, s.handleExplain)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger().Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	report := s.Health.Check()
	status := http.StatusOK
	if report.Status == "error" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

type dispatchRequest struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"threadId"`
	PublicID string `json:"publicId"`
}

// errorBody mirrors the friendly error mapping: a short message, the
// failure kind and the raw details.
type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Details  string `json:"details,omitempty"`
	ThreadID string `json:"threadId,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Field    string `json:"field,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dispatchRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request", Kind: string(agent.KindInvalidRequest), Details: err.Error()})
		return
	}
	res, err := s.Dispatcher.Dispatch(r.Context(), agent.Request{
		Prompt:   req.Prompt,
		ThreadID: req.ThreadID,
		AssetID:  req.PublicID,
	})
	if err != nil {
		e := agent.Classify(err)
		s.logger().Info("dispatch error", zap.String("kind", string(e.Kind)), zap.String("thread_id", e.ThreadID), zap.Error(err))
		writeJSON(w, e.Kind.HTTPStatus(), errorBody{
			Error:    e.UserMessage(),
			Kind:     string(e.Kind),
			Details:  e.Message,
			ThreadID: e.ThreadID,
			Tool:     e.ToolKind,
			Field:    e.Field,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"capabilities": s.Tools.Capabilities(),
		"tools":        s.Tools.Definitions(),
	})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	publicID := strings.TrimSpace(r.URL.Query().Get("publicId"))
	if publicID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"tags": []string{}, "error": "publicId is required"})
		return
	}
	if s.Resources == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"tags": []string{}, "error": "tagging is not configured"})
		return
	}
	res, err := s.Resources.Resource(r.Context(), publicID)
	if err != nil {
		e := agent.Classify(err)
		s.logger().Warn("tags fetch failed", zap.String("public_id", publicID), zap.Error(err))
		writeJSON(w, e.Kind.HTTPStatus(), map[string]interface{}{"tags": []string{}, "error": e.UserMessage(), "details": e.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"publicId": publicID, "tags": res.MergedTags()})
}

type explainRequest struct {
	Descriptor string `json:"descriptor"`
	URL        string `json:"url"`
}

// ExplainResult is a decoded descriptor with its human explanation.
type ExplainResult struct {
	Descriptor  string              `json:"descriptor"`
	PublicID    string              `json:"publicId,omitempty"`
	Segments    []transform.Segment `json:"segments"`
	Explanation string              `json:"explanation"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req explainRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request", Kind: string(agent.KindInvalidRequest), Details: err.Error()})
		return
	}
	out, err := Explain(req.Descriptor, req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request", Kind: string(agent.KindInvalidRequest), Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Explain decodes a descriptor, or the descriptor part of a delivery URL.
func Explain(descriptor, locator string) (*ExplainResult, error) {
	out := &ExplainResult{Descriptor: strings.TrimSpace(descriptor)}
	if locator = strings.TrimSpace(locator); locator != "" {
		p, err := transform.ParseLocator(locator)
		if err != nil {
			return nil, err
		}
		out.Descriptor, out.PublicID = p.Descriptor, p.AssetID
	}
	if out.Descriptor == "" {
		return nil, errors.New("descriptor or url is required")
	}
	segs, err := transform.Decode(out.Descriptor)
	if err != nil {
		return nil, err
	}
	out.Segments = segs
	out.Explanation = transform.Explain(segs)
	return out, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
