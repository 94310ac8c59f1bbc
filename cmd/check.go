package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fzeeshan/graphml-canvas/internal/loader"
	"github.com/fzeeshan/graphml-canvas/internal/script"
)

var checkResources []string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify resources fetch and declare their expected implementations",
	Long: `Check fetches each resource and evaluates it without registering
anything. A resource passes when it fetches successfully and declares a
function named after its final path segment with the extension stripped
("classes/ShapeNode.js" must declare ShapeNode).

Examples:
  graphml-canvas check -b ./resources/ -r nodes.js -r edges.js
  graphml-canvas check -b https://example.com/ext/ -r ShapeNode.js`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringArrayVarP(&checkResources, "resource", "r", nil,
		"resource identifier relative to the base path (repeatable)")
	_ = checkCmd.MarkFlagRequired("resource")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup := initLogging()
	defer cleanup()

	fetcher := loader.NewSchemeFetcher(cfg.Fetch.Timeout())
	engine := script.NewEngine()

	failed := 0
	for _, identifier := range checkResources {
		location := cfg.BasePath + identifier
		name := loader.DeriveName(identifier)

		payload, err := fetcher.Fetch(ctx, location)
		if err != nil {
			cmd.Printf("FAIL  %s: %v\n", identifier, err)
			failed++
			continue
		}

		if _, ok := engine.Materialize(name, payload); !ok {
			cmd.Printf("FAIL  %s: does not declare function %q\n", identifier, name)
			failed++
			continue
		}

		cmd.Printf("OK    %s -> %s\n", identifier, name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d resources failed", failed, len(checkResources))
	}
	return nil
}
