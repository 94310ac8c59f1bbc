// Package cmd implements the graphml-canvas command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fzeeshan/graphml-canvas/internal/config"
	"github.com/fzeeshan/graphml-canvas/internal/loader"
	"github.com/fzeeshan/graphml-canvas/internal/log"
	"github.com/fzeeshan/graphml-canvas/internal/tracing"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "graphml-canvas",
	Short:   "Namespace registry and sequential resource loader for canvas extensions",
	Long: `graphml-canvas manages namespaces of canvas capabilities and loads their
implementations from external JavaScript resources. Resources are fetched
strictly one at a time in request order; a failed fetch is skipped and the
intended capability is simply absent afterwards.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/graphml-canvas/config.yaml)")
	rootCmd.PersistentFlags().StringP("base-path", "b", "",
		"prefix resource identifiers resolve against")

	// Bind flags to viper
	_ = viper.BindPFlag("base_path", rootCmd.PersistentFlags().Lookup("base-path"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("base_path", defaults.BasePath)
	viper.SetDefault("fetch.timeout_seconds", defaults.Fetch.TimeoutSeconds)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	viper.SetDefault("log.enabled", defaults.Log.Enabled)
	viper.SetDefault("log.path", defaults.Log.Path)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("watcher.debounce_ms", defaults.Watcher.DebounceMillis)
	viper.SetDefault("watcher.extensions", defaults.Watcher.Extensions)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .graphml-canvas/config.yaml (current directory)
		// 2. ~/.config/graphml-canvas/config.yaml (user config)
		if _, err := os.Stat(".graphml-canvas/config.yaml"); err == nil {
			viper.SetConfigFile(".graphml-canvas/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "graphml-canvas"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at
		// .graphml-canvas/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".graphml-canvas/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// initLogging enables the debug log if configured and returns its cleanup.
func initLogging() func() {
	if !cfg.Log.Enabled {
		return func() {}
	}
	cleanup, err := log.Init(cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file: %v\n", err)
		return func() {}
	}
	log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	return cleanup
}

// buildLoader assembles a loader from the active configuration.
func buildLoader(ctx context.Context, materializer loader.Materializer, useCache bool) (*loader.Loader, *tracing.Provider, error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}

	fetcher := loader.NewSchemeFetcher(cfg.Fetch.Timeout())
	opts := []loader.Option{
		loader.WithContext(ctx),
		loader.WithTracer(provider.Tracer()),
	}
	if useCache && cfg.Cache.Enabled {
		opts = append(opts, loader.WithCache(cfg.Cache.TTL()))
	}

	return loader.New(fetcher, materializer, opts...), provider, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
