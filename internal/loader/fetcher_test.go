package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fzeeshan/graphml-canvas/internal/loader"
)

func TestFileFetcher_ReadsLocalResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ShapeNode.js")
	require.NoError(t, os.WriteFile(path, []byte("function ShapeNode() {}"), 0644))

	fetcher := loader.NewFileFetcher()
	data, err := fetcher.Fetch(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, []byte("function ShapeNode() {}"), data)
}

func TestFileFetcher_MissingResource(t *testing.T) {
	fetcher := loader.NewFileFetcher()
	_, err := fetcher.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.js"))
	require.Error(t, err)
}

func TestFileFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := loader.NewFileFetcher()
	_, err := fetcher.Fetch(ctx, "irrelevant.js")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_FetchesRemoteResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/classes/EdgeStyle.js", r.URL.Path)
		_, _ = w.Write([]byte("function EdgeStyle() {}"))
	}))
	defer server.Close()

	fetcher := loader.NewHTTPFetcher(5 * time.Second)
	data, err := fetcher.Fetch(context.Background(), server.URL+"/classes/EdgeStyle.js")
	require.NoError(t, err)
	require.Equal(t, []byte("function EdgeStyle() {}"), data)
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := loader.NewHTTPFetcher(5 * time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.js")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}

func TestSchemeFetcher_RoutesBySchemePrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "local.js")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0644))

	fetcher := loader.NewSchemeFetcher(5 * time.Second)

	remote, err := fetcher.Fetch(context.Background(), server.URL+"/r.js")
	require.NoError(t, err)
	require.Equal(t, []byte("remote"), remote)

	local, err := fetcher.Fetch(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, []byte("local"), local)

	viaFileScheme, err := fetcher.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Equal(t, []byte("local"), viaFileScheme)
}
