package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for persistence. viper reads
// via mapstructure; writing goes through yaml.v3 directly.
type fileConfig struct {
	BasePath string `yaml:"base_path"`
	Fetch    struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"fetch"`
	Cache struct {
		Enabled    bool `yaml:"enabled"`
		TTLSeconds int  `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Log struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
		Level   string `yaml:"level"`
	} `yaml:"log"`
	Tracing struct {
		Enabled      bool   `yaml:"enabled"`
		Exporter     string `yaml:"exporter"`
		FilePath     string `yaml:"file_path"`
		OTLPEndpoint string `yaml:"otlp_endpoint"`
		ServiceName  string `yaml:"service_name"`
	} `yaml:"tracing"`
	Watcher struct {
		DebounceMillis int      `yaml:"debounce_ms"`
		Extensions     []string `yaml:"extensions"`
	} `yaml:"watcher"`
}

func toFileConfig(cfg Config) fileConfig {
	var out fileConfig
	out.BasePath = cfg.BasePath
	out.Fetch.TimeoutSeconds = cfg.Fetch.TimeoutSeconds
	out.Cache.Enabled = cfg.Cache.Enabled
	out.Cache.TTLSeconds = cfg.Cache.TTLSeconds
	out.Log.Enabled = cfg.Log.Enabled
	out.Log.Path = cfg.Log.Path
	out.Log.Level = cfg.Log.Level
	out.Tracing.Enabled = cfg.Tracing.Enabled
	out.Tracing.Exporter = cfg.Tracing.Exporter
	out.Tracing.FilePath = cfg.Tracing.FilePath
	out.Tracing.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	out.Tracing.ServiceName = cfg.Tracing.ServiceName
	out.Watcher.DebounceMillis = cfg.Watcher.DebounceMillis
	out.Watcher.Extensions = cfg.Watcher.Extensions
	return out
}

// WriteDefaultConfig writes the default configuration to path, creating
// parent directories as needed. Refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(toFileConfig(Defaults()))
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	header := []byte("# graphml-canvas configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
