package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CLOUDIAGENT_CONFIG_DIR", "CLOUDIAGENT_PROVIDER", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL",
	"GEMINI_API_KEY", "CLOUDIAGENT_MODEL", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY",
	"CLOUDINARY_API_SECRET", "CLOUDIAGENT_DELIVERY_BASE_URL", "CLOUDIAGENT_LISTEN_ADDR",
	"CLOUDIAGENT_REQUEST_TIMEOUT", "CLOUDIAGENT_LOG_LEVEL", "CLOUDIAGENT_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, filepath.Join(dir, DBFileName), cfg.DBPath)
	assert.False(t, cfg.TaggingEnabled())
}

func TestNew_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLOUDIAGENT_PROVIDER", " Gemini ")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "k")
	t.Setenv("CLOUDINARY_API_SECRET", "s")
	t.Setenv("CLOUDIAGENT_REQUEST_TIMEOUT", "15s")

	cfg, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "g-key", cfg.ProviderAPIKey())
	assert.Empty(t, cfg.Model, "gemini picks its own default model")
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.TaggingEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestNew_BadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLOUDIAGENT_REQUEST_TIMEOUT", "soon")
	_, err := New(t.TempDir())
	assert.Error(t, err)
}

func TestNew_FileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("CLOUDIAGENT_MODEL", "env/model")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "env-cloud")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(
		"model: file/model\nrequest_timeout: 90s\nlisten_addr: 127.0.0.1:9000\n"), 0o600))

	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenRouterAPIKey)
	assert.Equal(t, "file/model", cfg.Model)
	assert.Equal(t, "env-cloud", cfg.CloudinaryCloudName)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, dir, cfg.ConfigDir)
}

func TestNew_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("model: [unclosed\n"), 0o600))
	_, err := New(dir)
	assert.Error(t, err)
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := &Config{Provider: "acme", RequestTimeout: 0}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{`unknown provider "acme"`, "CLOUDINARY_CLOUD_NAME", "request_timeout"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = &Config{Provider: ProviderOpenRouter, CloudinaryCloudName: "demo", RequestTimeout: time.Second}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
}

func TestSaveLoadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	f, err := LoadFile(dir)
	require.NoError(t, err)
	assert.Nil(t, f)

	want := &File{Provider: ProviderOpenRouter, OpenRouterAPIKey: "sk", Model: "m", CloudinaryCloudName: "demo"}
	require.NoError(t, SaveFile(dir, want))

	info, err := os.Stat(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	clearEnv(t)
	cfg, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk", cfg.OpenRouterAPIKey)
	assert.Equal(t, "demo", cfg.CloudinaryCloudName)
}
