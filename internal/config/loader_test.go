package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini-3-flash-preview", cfg.AI.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.AI.BaseURL)
	assert.Equal(t, 50, cfg.Store.MaxNotifications)
	assert.Equal(t, 8000, cfg.Web.Port)
	assert.Empty(t, cfg.Storage.DBPath)
	assert.Empty(t, cfg.Storage.SnapshotPath)
}

func TestLoadFromMissingFilesUsesDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromProjectOverridesGlobal(t *testing.T) {
	clearKeyEnv(t)

	global := writeFile(t, t.TempDir(), `
ai:
  model: gemini-global
  api_key: global-key
web:
  port: 9000
`)
	project := writeFile(t, t.TempDir(), `
ai:
  model: gemini-project
storage:
  db_path: .zenflow/zenflow.db
`)

	cfg, err := LoadFrom(global, project)
	require.NoError(t, err)

	assert.Equal(t, "gemini-project", cfg.AI.Model)
	assert.Equal(t, "global-key", cfg.AI.APIKey)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, ".zenflow/zenflow.db", cfg.Storage.DBPath)
	assert.Equal(t, 50, cfg.Store.MaxNotifications)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("ZENFLOW_WEB_PORT", "8123")
	t.Setenv("ZENFLOW_STORE_MAX_NOTIFICATIONS", "0")

	path := writeFile(t, t.TempDir(), "web:\n  port: 9000\n")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Web.Port)
	assert.Equal(t, 0, cfg.Store.MaxNotifications)
}

func TestLoadFromAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "plain-key")

	cfg, err := LoadFrom()
	require.NoError(t, err)
	assert.Equal(t, "plain-key", cfg.AI.APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err = LoadFrom()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.AI.APIKey)
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ai: [unclosed\n")

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), ".zenflow", "config.yaml")

	require.NoError(t, WriteDefault(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "max_notifications: 50")
	assert.Contains(t, string(content), "# ZenFlow configuration")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
