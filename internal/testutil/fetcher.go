// Package testutil provides shared test doubles for the loader and
// namespace packages.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeFetcher serves canned payloads by resolved location and records the
// order fetches arrive in. Safe for concurrent use.
type FakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  map[string]error
	calls     []string
	delay     time.Duration
}

// NewFakeFetcher creates an empty fake fetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		responses: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

// Respond registers a payload for a resolved location.
func (f *FakeFetcher) Respond(location string, payload []byte) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[location] = payload
	return f
}

// RespondScript registers a payload defining a script function under name,
// matching the derived-name contract the loader registers capabilities by.
func (f *FakeFetcher) RespondScript(location, name string) *FakeFetcher {
	return f.Respond(location, []byte(fmt.Sprintf("function %s(canvas, graph, data, attrs) {}", name)))
}

// Fail registers an error for a resolved location.
func (f *FakeFetcher) Fail(location string, err error) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[location] = err
	return f
}

// Delay makes every fetch sleep first, for exercising in-flight behavior.
func (f *FakeFetcher) Delay(d time.Duration) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// Fetch records the call and returns the canned response.
func (f *FakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, location)
	delay := f.delay
	err, failed := f.failures[location]
	payload, ok := f.responses[location]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failed {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no response registered for %s", location)
	}
	return payload, nil
}

// Calls returns the fetch locations in arrival order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
