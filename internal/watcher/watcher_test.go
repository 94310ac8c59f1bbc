package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func writeEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("resources")

	require.Equal(t, "resources", cfg.Dir)
	require.Equal(t, []string{".js"}, cfg.Extensions)
	require.Equal(t, time.Second, cfg.DebounceDur)
}

func TestWatcher_ReportsChangedResources(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{
		Dir:         dir,
		Extensions:  []string{".js"},
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Stop()

	changes, err := w.Start()
	require.NoError(t, err)

	path := filepath.Join(dir, "nodes.js")
	require.NoError(t, os.WriteFile(path, []byte("function nodes() {}"), 0600))

	select {
	case paths := <-changes:
		require.Contains(t, paths, path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcher_CoalescesBurstsIntoOneNotification(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{
		Dir:         dir,
		Extensions:  []string{".js"},
		DebounceDur: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Stop()

	changes, err := w.Start()
	require.NoError(t, err)

	first := filepath.Join(dir, "a.js")
	second := filepath.Join(dir, "b.js")
	require.NoError(t, os.WriteFile(first, []byte("1"), 0600))
	require.NoError(t, os.WriteFile(second, []byte("2"), 0600))

	select {
	case paths := <-changes:
		require.Contains(t, paths, first)
		require.Contains(t, paths, second)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	// The burst produced exactly one batch.
	select {
	case paths := <-changes:
		t.Fatalf("unexpected second notification: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Config{
		Dir:         dir,
		Extensions:  []string{".js"},
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Stop()

	changes, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	select {
	case paths := <-changes:
		t.Fatalf("unexpected notification for ignored file: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsRelevantEvent(t *testing.T) {
	w := &Watcher{extensions: []string{".js", ".MJS"}}

	// === Matching extensions, case-insensitive ===
	require.True(t, w.isRelevantEvent(writeEvent("shapes.js")))
	require.True(t, w.isRelevantEvent(writeEvent("shapes.JS")))
	require.True(t, w.isRelevantEvent(writeEvent("shapes.mjs")))

	// === Non-resource files ===
	require.False(t, w.isRelevantEvent(writeEvent("shapes.txt")))
	require.False(t, w.isRelevantEvent(writeEvent("shapes")))
}
