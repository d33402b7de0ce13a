package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load merges defaults, the global config, the project config and ZENFLOW_*
// environment variables, later sources winning.
func Load() (*Config, error) {
	return LoadFrom(GlobalConfigPath(), ProjectConfigPath())
}

// LoadFile is Load with a single explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	return LoadFrom(path)
}

// LoadFrom merges the given files in order over the defaults. Missing files
// are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("ZENFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("API_KEY")
	}
	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("store.max_notifications", d.Store.MaxNotifications)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("storage.snapshot_path", d.Storage.SnapshotPath)
	v.SetDefault("web.port", d.Web.Port)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zenflow", "config.yaml")
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".zenflow", "config.yaml")
}
