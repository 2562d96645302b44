// Package wiring assembles the dispatcher and its collaborators from config.
package wiring

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cloudiagent/cloudiagent/internal/agent"
	"github.com/cloudiagent/cloudiagent/internal/cloudinary"
	"github.com/cloudiagent/cloudiagent/internal/config"
	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
	"github.com/cloudiagent/cloudiagent/internal/registry"
	"github.com/cloudiagent/cloudiagent/internal/store"
	"github.com/cloudiagent/cloudiagent/internal/thread"
	"github.com/cloudiagent/cloudiagent/internal/tools"
	"github.com/cloudiagent/cloudiagent/internal/transform"

	// Completion providers register themselves with the registry.
	_ "github.com/cloudiagent/cloudiagent/internal/gemini"
	_ "github.com/cloudiagent/cloudiagent/internal/openrouter"
)

// App holds everything a surface (server, chat, one-shot) needs.
type App struct {
	Config     *config.Config
	Dispatcher *agent.Dispatcher
	Tools      *tools.Registry
	// Cloudinary is nil when tagging credentials are missing.
	Cloudinary *cloudinary.Client
	Health     *health.Registry
	DB         *store.DB
}

// Close releases the database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Build opens the thread store and builds the completion client, the tagger
// and the dispatcher.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{Config: cfg, Tools: tools.Default(), Health: health.NewRegistry()}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	app.DB = db
	app.Health.Register("database", db)
	threadStore, err := store.NewThreadStore(db, cfg.KnownThreadsCache)
	if err != nil {
		db.Close()
		return nil, err
	}

	llmHealth := health.NewTracker(cfg.Provider)
	app.Health.Register("llm_client", llmHealth)
	opts := registry.ClientOptions{
		APIKey:  cfg.ProviderAPIKey(),
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
		Tracker: llmHealth,
	}
	if cfg.Provider == config.ProviderOpenRouter {
		opts.BaseURL = cfg.OpenRouterBaseURL
	}
	client, err := LoadClient(ctx, cfg.Provider, opts)
	if err != nil {
		db.Close()
		return nil, err
	}

	var tagger core.Tagger
	if cfg.TaggingEnabled() {
		c := cloudinary.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, log.Named("cloudinary"))
		c.HTTP = &http.Client{Timeout: cfg.RequestTimeout}
		c.Timeout = cfg.RequestTimeout
		c.Health = health.NewTracker("cloudinary")
		app.Health.Register("cloudinary", c.Health)
		app.Cloudinary = c
		tagger = c
	} else {
		log.Warn("cloudinary admin credentials missing; tagging disabled")
	}

	d := agent.NewDispatcher(thread.NewManager(threadStore), app.Tools, client, tagger, cfg.CloudinaryCloudName, log.Named("agent"))
	d.Timeout = cfg.RequestTimeout
	if cfg.DeliveryBaseURL != "" {
		d.BaseURL = cfg.DeliveryBaseURL
	} else {
		d.BaseURL = transform.DefaultBaseURL
	}
	app.Dispatcher = d
	return app, nil
}

// LoadClient builds the named provider's client. A panicking factory is
// reported as an error.
func LoadClient(ctx context.Context, name string, opts registry.ClientOptions) (core.LLMClient, error) {
	factory, ok := registry.GetClientFactory(name)
	if !ok {
		return nil, fmt.Errorf("completion provider %q not found (have %v)", name, registry.Providers())
	}
	c, err := safeInitClient(ctx, factory, opts)
	if err != nil {
		return nil, fmt.Errorf("init completion provider %q: %w", name, err)
	}
	return c, nil
}

func safeInitClient(ctx context.Context, f registry.ClientFactory, opts registry.ClientOptions) (c core.LLMClient, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = logPanic(r)
		}
	}()
	return f(ctx, opts)
}

func logPanic(r interface{}) error {
	return logPanicError{r}
}

type logPanicError struct {
	Reason interface{}
}

func (e logPanicError) Error() string {
	return fmt.Sprintf("panic during initialization: %v", e.Reason)
}
