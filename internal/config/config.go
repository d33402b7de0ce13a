// Package config loads ZenFlow settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/zenflow/internal/gateway"
	"gopkg.in/yaml.v3"
)

// Config represents the full ZenFlow configuration
type Config struct {
	AI      AIConfig      `yaml:"ai" mapstructure:"ai"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Web     WebConfig     `yaml:"web" mapstructure:"web"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// AIConfig configures the Gemini client
type AIConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

type StoreConfig struct {
	// Maximum notifications kept, oldest evicted first (0 = unlimited)
	MaxNotifications int `yaml:"max_notifications" mapstructure:"max_notifications"`
}

// StorageConfig selects where a session is archived. Both empty means the
// session lives in memory only.
type StorageConfig struct {
	DBPath       string `yaml:"db_path" mapstructure:"db_path"`
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
}

type WebConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	File  string `yaml:"file" mapstructure:"file"`
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Model:   gateway.DefaultModel,
			BaseURL: gateway.DefaultBaseURL,
		},
		Store: StoreConfig{
			MaxNotifications: 50,
		},
		Web: WebConfig{
			Port: 8000,
		},
		Log: LogConfig{
			File:  filepath.Join(".zenflow", "zenflow.log"),
			Level: "info",
		},
	}
}

const defaultHeader = `# ZenFlow configuration
# Environment variables override these values: ZENFLOW_AI_MODEL, ZENFLOW_WEB_PORT, ...
# ai.api_key falls back to GEMINI_API_KEY, then API_KEY.
# storage.db_path and storage.snapshot_path are empty for an in-memory session.

`

// WriteDefault writes the default configuration to path, creating its
// directory.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
