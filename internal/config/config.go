// Package config provides configuration types, defaults, and persistence
// for the graphml-canvas loader host.
package config

import (
	"time"

	"github.com/fzeeshan/graphml-canvas/internal/tracing"
)

// FetchConfig controls external resource fetching.
type FetchConfig struct {
	// TimeoutSeconds bounds a single HTTP fetch. File fetches are not
	// bounded beyond context cancellation.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// CacheConfig controls the fetched-payload cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LogConfig controls the structured debug log.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Level   string `mapstructure:"level"` // "debug", "info", "warn", "error"
}

// WatcherConfig controls the development-mode resource watcher.
type WatcherConfig struct {
	DebounceMillis int      `mapstructure:"debounce_ms"`
	Extensions     []string `mapstructure:"extensions"`
}

// Debounce returns the watcher debounce as a duration.
func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// Config holds all configuration options.
type Config struct {
	// BasePath is the default prefix resource identifiers resolve
	// against when a load does not supply its own.
	BasePath string `mapstructure:"base_path"`

	Fetch   FetchConfig    `mapstructure:"fetch"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Log     LogConfig      `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`
	Watcher WatcherConfig  `mapstructure:"watcher"`
}

// Defaults returns the configuration used when no config file exists.
func Defaults() Config {
	return Config{
		BasePath: "",
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 600,
		},
		Log: LogConfig{
			Enabled: false,
			Path:    "graphml-canvas.log",
			Level:   "debug",
		},
		Tracing: tracing.DefaultConfig(),
		Watcher: WatcherConfig{
			DebounceMillis: 1000,
			Extensions:     []string{".js"},
		},
	}
}
