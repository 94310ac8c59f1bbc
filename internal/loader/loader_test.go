package loader_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fzeeshan/graphml-canvas/internal/loader"
	"github.com/fzeeshan/graphml-canvas/internal/namespace"
	"github.com/fzeeshan/graphml-canvas/internal/pubsub"
	"github.com/fzeeshan/graphml-canvas/internal/script"
	"github.com/fzeeshan/graphml-canvas/internal/testutil"
	"github.com/fzeeshan/graphml-canvas/internal/tracing"
)

// === Helpers ===

type testCapability struct {
	name string
}

func (c *testCapability) Setup(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error {
	return nil
}

// recordingMaterializer yields a testCapability for every name except the
// ones marked malformed, and records materialization order.
type recordingMaterializer struct {
	mu        sync.Mutex
	names     []string
	malformed map[string]bool
}

func newRecordingMaterializer(malformed ...string) *recordingMaterializer {
	m := &recordingMaterializer{malformed: make(map[string]bool)}
	for _, name := range malformed {
		m.malformed[name] = true
	}
	return m
}

func (m *recordingMaterializer) Materialize(name string, src []byte) (namespace.Capability, bool) {
	m.mu.Lock()
	m.names = append(m.names, name)
	bad := m.malformed[name]
	m.mu.Unlock()

	if bad {
		return nil, false
	}
	return &testCapability{name: name}, true
}

func (m *recordingMaterializer) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func waitIdle(t *testing.T, l *loader.Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

// === Unit Tests: name derivation and path resolution ===

func TestDeriveName(t *testing.T) {
	tests := []struct {
		identifier string
		expected   string
	}{
		{"WidgetClass.ext", "WidgetClass"},
		{"classes/ShapeNode.js", "ShapeNode"},
		{"a/b/c/EdgeStyle.impl", "EdgeStyle"},
		{"noextension", "noextension"},
		{"dir/archive.tar.gz", "archive.tar"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			require.Equal(t, tt.expected, loader.DeriveName(tt.identifier))
		})
	}
}

func TestTask_ResolveIsPlainConcatenation(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().RespondScript("base/../up.js", "up")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())
	namespace.New(reg, "ns://resolve", namespace.WithResources(l, "base/", "../up.js"))
	waitIdle(t, l)

	// No "." or ".." normalization happens on resolution.
	require.Equal(t, []string{"base/../up.js"}, fetcher.Calls())
}

// === Integration Tests: draining ===

func TestLoader_EndToEndRegistersDerivedNames(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		RespondScript("res/a.impl", "a").
		RespondScript("res/b.impl", "b")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())
	namespace.New(reg, "ns://demo", namespace.WithResources(l, "res/", "a.impl", "b.impl"))
	waitIdle(t, l)

	require.Equal(t, []string{"res/a.impl", "res/b.impl"}, fetcher.Calls(),
		"resources must be fetched in list order")

	ns, found := reg.Get("ns://demo")
	require.True(t, found)
	_, hasA := ns.Capability("a")
	_, hasB := ns.Capability("b")
	require.True(t, hasA)
	require.True(t, hasB)
}

func TestLoader_TasksDrainStrictlyInOrder(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		Delay(10 * time.Millisecond).
		RespondScript("first/A.js", "A").
		RespondScript("first/B.js", "B").
		RespondScript("first/C.js", "C").
		RespondScript("second/X.js", "X")

	materializer := newRecordingMaterializer()
	reg := namespace.NewRegistry()
	l := loader.New(fetcher, materializer)

	namespace.New(reg, "ns://first", namespace.WithResources(l, "first/", "A.js", "B.js", "C.js"))
	namespace.New(reg, "ns://second", namespace.WithResources(l, "second/", "X.js"))
	waitIdle(t, l)

	require.Equal(t, []string{"A", "B", "C", "X"}, materializer.Names(),
		"all of the first task must complete before the second task starts")
}

func TestLoader_FetchFailureToleranceMidTask(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		RespondScript("res/A.js", "A").
		Fail("res/B.js", errors.New("connection refused")).
		RespondScript("res/C.js", "C")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())
	ns := namespace.New(reg, "ns://tolerant", namespace.WithResources(l, "res/", "A.js", "B.js", "C.js"))
	waitIdle(t, l)

	require.Equal(t, []string{"res/A.js", "res/B.js", "res/C.js"}, fetcher.Calls(),
		"a failed fetch must not stop the remaining resources from being attempted")

	_, hasA := ns.Capability("A")
	_, hasB := ns.Capability("B")
	_, hasC := ns.Capability("C")
	require.True(t, hasA)
	require.False(t, hasB, "failed resource's capability is simply absent")
	require.True(t, hasC)
}

func TestLoader_MalformedResourceSkippedSilently(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		Respond("res/Broken.js", []byte("function SomethingElse() {}")).
		RespondScript("res/Fine.js", "Fine")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())
	ns := namespace.New(reg, "ns://partial", namespace.WithResources(l, "res/", "Broken.js", "Fine.js"))
	waitIdle(t, l)

	_, hasBroken := ns.Capability("Broken")
	_, hasFine := ns.Capability("Fine")
	require.False(t, hasBroken)
	require.True(t, hasFine)
}

func TestLoader_NilTargetIsFetchOnly(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().RespondScript("res/A.js", "A")
	l := loader.New(fetcher, script.NewEngine())

	l.Enqueue(nil, "res/", "A.js")
	waitIdle(t, l)

	require.Equal(t, []string{"res/A.js"}, fetcher.Calls())
}

func TestLoader_RestartsAfterGoingIdle(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		RespondScript("res/A.js", "A").
		RespondScript("res/B.js", "B")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())
	ns := namespace.New(reg, "ns://restart", namespace.WithResources(l, "res/", "A.js"))
	waitIdle(t, l)
	require.True(t, l.Idle())

	l.Enqueue(ns, "res/", "B.js")
	waitIdle(t, l)

	_, hasB := ns.Capability("B")
	require.True(t, hasB)
}

func TestLoader_CacheAvoidsRefetch(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().RespondScript("res/A.js", "A")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine(), loader.WithCache(time.Minute))

	first := namespace.New(reg, "ns://one", namespace.WithResources(l, "res/", "A.js"))
	waitIdle(t, l)
	second := namespace.New(reg, "ns://two", namespace.WithResources(l, "res/", "A.js"))
	waitIdle(t, l)

	require.Equal(t, []string{"res/A.js"}, fetcher.Calls(),
		"second load of the same location must be served from cache")

	_, ok := first.Capability("A")
	require.True(t, ok)
	_, ok = second.Capability("A")
	require.True(t, ok)
}

// === Integration Tests: events ===

func TestLoader_PublishesResourceEvents(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		RespondScript("res/A.js", "A").
		Fail("res/B.js", errors.New("not found"))

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := l.Subscribe(ctx)

	namespace.New(reg, "ns://events", namespace.WithResources(l, "res/", "A.js", "B.js"))
	waitIdle(t, l)

	var seen []pubsub.EventType
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			seen = append(seen, event.Type)
			if event.Type == loader.EventTaskCompleted {
				require.Equal(t, []pubsub.EventType{
					loader.EventTaskEnqueued,
					loader.EventResourceLoaded,
					loader.EventResourceFailed,
					loader.EventTaskCompleted,
				}, seen)
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for task completion, saw %v", seen)
		}
	}
}

func TestLoader_EnqueuedEventPrecedesResourceEventsPerTask(t *testing.T) {
	fetcher := testutil.NewFakeFetcher().
		Delay(20 * time.Millisecond).
		RespondScript("res/A.js", "A").
		RespondScript("res/B.js", "B")

	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := l.Subscribe(ctx)

	// The second Enqueue lands while the first task's fetch is in flight.
	namespace.New(reg, "ns://busy", namespace.WithResources(l, "res/", "A.js"))
	secondID := l.Enqueue(nil, "res/", "B.js")
	waitIdle(t, l)

	seen := make(map[pubsub.EventType]bool)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Payload.TaskID != secondID {
				continue
			}
			if event.Type == loader.EventResourceLoaded || event.Type == loader.EventTaskCompleted {
				require.True(t, seen[loader.EventTaskEnqueued],
					"a task's enqueued event must precede its resource events")
			}
			seen[event.Type] = true
			if event.Type == loader.EventTaskCompleted {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for second task completion")
		}
	}
}

// === Integration Tests: tracing ===

func TestLoader_FetchSpansCarryResourceAttributes(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:     true,
		Exporter:    "file",
		FilePath:    tracePath,
		ServiceName: "loader-test",
	})
	require.NoError(t, err)

	fetcher := testutil.NewFakeFetcher().RespondScript("res/A.js", "A")
	reg := namespace.NewRegistry()
	l := loader.New(fetcher, script.NewEngine(), loader.WithTracer(provider.Tracer()))

	namespace.New(reg, "ns://traced", namespace.WithResources(l, "res/", "A.js"))
	waitIdle(t, l)
	require.NoError(t, provider.Shutdown(context.Background()))

	file, err := os.Open(tracePath)
	require.NoError(t, err)
	defer file.Close()

	found := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record tracing.SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		if record.Name != "loader.fetch" {
			continue
		}
		found = true
		require.Equal(t, "A.js", record.Attributes[tracing.AttrResourceIdentifier])
		require.Equal(t, "res/A.js", record.Attributes[tracing.AttrResourceLocation])
		require.Equal(t, "ns://traced", record.Attributes[tracing.AttrNamespaceID])
		require.NotEmpty(t, record.Attributes[tracing.AttrTaskID])
	}
	require.NoError(t, scanner.Err())
	require.True(t, found, "expected a loader.fetch span in the trace file")
}
