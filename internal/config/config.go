package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers the agent can complete with.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

const (
	DefaultModel          = "openai/gpt-4o-mini"
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 60 * time.Second
	DefaultLogLevel       = "info"
	ConfigFileName        = "config.yaml"
	DBFileName            = "cloudiagent.db"
)

// Config holds runtime configuration. Secrets are read from the environment
// or from the config dir at runtime; never committed.
type Config struct {
	// Provider selects the completion backend: "openrouter" or "gemini".
	Provider string `yaml:"provider"`
	// OpenRouterAPIKey is set from env OPENROUTER_API_KEY or from config file.
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
	// OpenRouterBaseURL overrides the API root (tests, proxies).
	OpenRouterBaseURL string `yaml:"openrouter_base_url"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	// Model is the provider's model id.
	Model string `yaml:"model"`

	CloudinaryCloudName string `yaml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `yaml:"cloudinary_api_key"`
	CloudinaryAPISecret string `yaml:"cloudinary_api_secret"`
	// DeliveryBaseURL is the root of rendered locators.
	DeliveryBaseURL string `yaml:"delivery_base_url"`

	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	// LogFormat is "json" (default) or "console".
	LogFormat string `yaml:"log_format"`
	// KnownThreadsCache bounds the thread-id cache of the SQLite store; 0 = default.
	KnownThreadsCache int `yaml:"known_threads_cache"`

	// ConfigDir is where config.yaml and the database live.
	ConfigDir string `yaml:"-"`
	// DBPath is the path to cloudiagent.db. ":memory:" keeps threads in process.
	DBPath string `yaml:"db_path"`
}

// DefaultConfigDir returns the default config directory (project-local .cloudiagent if present, else ~/.config/cloudiagent).
func DefaultConfigDir() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".cloudiagent")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cloudiagent")
}

// New builds config from env and optional config dir. ConfigDir can be empty to use default.
// Values in config.yaml override the environment. A malformed file is an error;
// a missing one is not.
func New(configDir string) (*Config, error) {
	if configDir == "" {
		if d := os.Getenv("CLOUDIAGENT_CONFIG_DIR"); d != "" {
			configDir = d
		} else {
			configDir = DefaultConfigDir()
		}
	}
	cfg := &Config{
		Provider:            envOr("CLOUDIAGENT_PROVIDER", ProviderOpenRouter),
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:   os.Getenv("OPENROUTER_BASE_URL"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		Model:               os.Getenv("CLOUDIAGENT_MODEL"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		DeliveryBaseURL:     os.Getenv("CLOUDIAGENT_DELIVERY_BASE_URL"),
		ListenAddr:          envOr("CLOUDIAGENT_LISTEN_ADDR", DefaultListenAddr),
		RequestTimeout:      DefaultRequestTimeout,
		LogLevel:            envOr("CLOUDIAGENT_LOG_LEVEL", DefaultLogLevel),
		LogFormat:           envOr("CLOUDIAGENT_LOG_FORMAT", "json"),
		ConfigDir:           configDir,
		DBPath:              filepath.Join(configDir, DBFileName),
	}
	if v := os.Getenv("CLOUDIAGENT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: CLOUDIAGENT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	// Priority: Env < Config File.
	// Keys missing in the file leave the env value untouched.
	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Model == "" && cfg.Provider == ProviderOpenRouter {
		cfg.Model = DefaultModel
	}
	return cfg, nil
}

// ProviderAPIKey returns the key of the selected provider.
func (c *Config) ProviderAPIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenRouterAPIKey
}

// TaggingEnabled reports whether all Cloudinary Admin API credentials are set.
func (c *Config) TaggingEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			errs = append(errs, errors.New("OPENROUTER_API_KEY is not set"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.CloudinaryCloudName == "" {
		errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME is not set"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
