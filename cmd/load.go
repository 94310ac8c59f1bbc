package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fzeeshan/graphml-canvas/internal/loader"
	"github.com/fzeeshan/graphml-canvas/internal/namespace"
	"github.com/fzeeshan/graphml-canvas/internal/script"
	"github.com/fzeeshan/graphml-canvas/internal/watcher"
)

var (
	loadID        string
	loadResources []string
	loadUnscoped  bool
	loadWatch     bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load resources into a namespace and print its capabilities",
	Long: `Load constructs a namespace, fetches its resources strictly in order,
and prints the capability names that registered. Resources that fail to
fetch or do not declare the expected function are skipped silently; they
show up only as missing capabilities.

Examples:
  # Load two local resources into ns://demo
  graphml-canvas load --id ns://demo -b ./resources/ -r nodes.js -r edges.js

  # Load over HTTP
  graphml-canvas load --id ns://remote -b https://example.com/ext/ -r ShapeNode.js

  # Construct without claiming the identifier
  graphml-canvas load --id ns://demo -r nodes.js --unscoped

  # Keep running and reload when resource files change
  graphml-canvas load --id ns://demo -b ./resources/ -r nodes.js --watch`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadID, "id", "", "namespace identifier (e.g. ns://demo)")
	loadCmd.Flags().StringArrayVarP(&loadResources, "resource", "r", nil,
		"resource identifier relative to the base path (repeatable)")
	loadCmd.Flags().BoolVar(&loadUnscoped, "unscoped", false,
		"construct the namespace without claiming its identifier")
	loadCmd.Flags().BoolVarP(&loadWatch, "watch", "w", false,
		"watch the base path directory and reload changed resources")
	_ = loadCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup := initLogging()
	defer cleanup()

	// Watch mode re-fetches changed files; the payload cache would serve
	// stale content there, so it stays off.
	ld, provider, err := buildLoader(ctx, script.NewEngine(), !loadWatch)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	reg := namespace.NewRegistry()
	opts := []namespace.Option{
		namespace.WithResources(ld, cfg.BasePath, loadResources...),
	}
	if loadUnscoped {
		opts = append(opts, namespace.Unscoped())
	}
	ns := namespace.New(reg, loadID, opts...)

	if err := ld.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for loads: %w", err)
	}
	printCapabilities(cmd, ns)

	if !loadWatch {
		return nil
	}
	return watchAndReload(ctx, cmd, ns, ld)
}

// watchAndReload re-enqueues changed resource files until interrupted.
func watchAndReload(ctx context.Context, cmd *cobra.Command, ns *namespace.Namespace, ld *loader.Loader) error {
	dir := cfg.BasePath
	if dir == "" {
		dir = "."
	}

	wcfg := watcher.DefaultConfig(dir)
	if len(cfg.Watcher.Extensions) > 0 {
		wcfg.Extensions = cfg.Watcher.Extensions
	}
	if d := cfg.Watcher.Debounce(); d > 0 {
		wcfg.DebounceDur = d
	}

	w, err := watcher.New(wcfg)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	cmd.Printf("watching %s for changes\n", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			identifiers := make([]string, 0, len(paths))
			for _, path := range paths {
				identifiers = append(identifiers, filepath.Base(path))
			}
			if err := reloadResources(ctx, ns, ld, identifiers); err != nil {
				return err
			}
			printCapabilities(cmd, ns)
		}
	}
}

// reloadResources re-fetches the given identifiers into ns. A scoped
// namespace refuses capability overwrites, so the slot is vacated for the
// drain and reclaimed once it finishes; without this, a modified resource
// would re-fetch and then be discarded at registration.
func reloadResources(ctx context.Context, ns *namespace.Namespace, ld *loader.Loader, identifiers []string) error {
	wasScoped := ns.Scoped()
	if wasScoped {
		ns.Descope()
	}

	ld.Enqueue(ns, cfg.BasePath, identifiers...)
	if err := ld.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for reload: %w", err)
	}

	if wasScoped {
		ns.Scope(false)
	}
	return nil
}

func printCapabilities(cmd *cobra.Command, ns *namespace.Namespace) {
	capabilities := ns.Capabilities()
	names := make([]string, 0, len(capabilities))
	for name := range capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Printf("%s (%d capabilities)\n", ns.Identifier(), len(names))
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
}
