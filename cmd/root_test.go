package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/fzeeshan/graphml-canvas/internal/config"
	"github.com/fzeeshan/graphml-canvas/internal/loader"
	"github.com/fzeeshan/graphml-canvas/internal/namespace"
	"github.com/fzeeshan/graphml-canvas/internal/script"
)

// captureCommand returns a throwaway command whose output is buffered.
func captureCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetOut(buf)
	c.SetErr(buf)
	return c, buf
}

func TestRunCheck_ClassifiesResources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.js"),
		[]byte("function nodes(canvas, graph, data, attrs) {}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.js"),
		[]byte("function somethingElse() {}"), 0600))

	cfg = config.Defaults()
	cfg.BasePath = dir + "/"
	checkResources = []string{"nodes.js", "broken.js", "missing.js"}

	c, buf := captureCommand()
	err := runCheck(c, nil)

	require.Error(t, err)
	require.Contains(t, err.Error(), "2 of 3 resources failed")

	out := buf.String()
	require.Contains(t, out, "OK    nodes.js -> nodes")
	require.Contains(t, out, `FAIL  broken.js: does not declare function "broken"`)
	require.Contains(t, out, "FAIL  missing.js:")
}

func TestRunCheck_AllPass(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.js"),
		[]byte("function edges() {}"), 0600))

	cfg = config.Defaults()
	cfg.BasePath = dir + "/"
	checkResources = []string{"edges.js"}

	c, _ := captureCommand()
	require.NoError(t, runCheck(c, nil))
}

func TestReloadResources_ReplacesModifiedCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.js")
	require.NoError(t, os.WriteFile(path,
		[]byte("function nodes() { return 1 }"), 0600))

	cfg = config.Defaults()
	cfg.BasePath = dir + "/"

	ctx := context.Background()
	reg := namespace.NewRegistry()
	ld := loader.New(loader.NewSchemeFetcher(cfg.Fetch.Timeout()), script.NewEngine(),
		loader.WithContext(ctx))
	ns := namespace.New(reg, "ns://live",
		namespace.WithResources(ld, cfg.BasePath, "nodes.js"))
	require.NoError(t, ld.Wait(ctx))

	first, ok := ns.Capability("nodes")
	require.True(t, ok)
	require.True(t, ns.Scoped())

	require.NoError(t, os.WriteFile(path,
		[]byte("function nodes() { return 2 }"), 0600))
	require.NoError(t, reloadResources(ctx, ns, ld, []string{"nodes.js"}))

	second, ok := ns.Capability("nodes")
	require.True(t, ok)
	require.NotSame(t, first, second,
		"a modified resource must replace its capability on reload")
	require.True(t, ns.Scoped(),
		"the namespace reclaims its identifier after the reload")
}

func TestReloadResources_KeepsUnscopedNamespaceUnscoped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.js"),
		[]byte("function edges() {}"), 0600))

	cfg = config.Defaults()
	cfg.BasePath = dir + "/"

	ctx := context.Background()
	reg := namespace.NewRegistry()
	ld := loader.New(loader.NewSchemeFetcher(cfg.Fetch.Timeout()), script.NewEngine(),
		loader.WithContext(ctx))
	ns := namespace.New(reg, "ns://shadow", namespace.Unscoped(),
		namespace.WithResources(ld, cfg.BasePath, "edges.js"))
	require.NoError(t, ld.Wait(ctx))

	require.NoError(t, reloadResources(ctx, ns, ld, []string{"edges.js"}))

	_, ok := ns.Capability("edges")
	require.True(t, ok)
	require.False(t, ns.Scoped())
}

func TestRunLoad_PrintsRegisteredCapabilities(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.js"),
		[]byte("function nodes() {}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.js"),
		[]byte("function edges() {}"), 0600))

	cfg = config.Defaults()
	cfg.BasePath = dir + "/"
	loadID = "ns://demo"
	loadResources = []string{"nodes.js", "edges.js", "missing.js"}
	loadUnscoped = false
	loadWatch = false

	c, buf := captureCommand()
	require.NoError(t, runLoad(c, nil))

	out := buf.String()
	require.Contains(t, out, "ns://demo (2 capabilities)")
	require.Contains(t, out, "  edges")
	require.Contains(t, out, "  nodes")
}
