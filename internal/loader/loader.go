// Package loader implements the strictly sequential external-resource
// loader. Load tasks queue FIFO; a single drain goroutine fetches one
// resource at a time system-wide, registering each successfully
// materialized implementation into the task's target namespace. Individual
// fetch failures are skipped, never retried, and never stall the queue.
package loader

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fzeeshan/graphml-canvas/internal/cachemanager"
	"github.com/fzeeshan/graphml-canvas/internal/log"
	"github.com/fzeeshan/graphml-canvas/internal/namespace"
	"github.com/fzeeshan/graphml-canvas/internal/pubsub"
	"github.com/fzeeshan/graphml-canvas/internal/tracing"
)

// Event types published on the loader broker.
const (
	EventTaskEnqueued    pubsub.EventType = "loader.task_enqueued"
	EventTaskCompleted   pubsub.EventType = "loader.task_completed"
	EventResourceLoaded  pubsub.EventType = "loader.resource_loaded"
	EventResourceFailed  pubsub.EventType = "loader.resource_failed"
	EventResourceSkipped pubsub.EventType = "loader.resource_skipped"
)

// Report is the payload for loader events.
type Report struct {
	TaskID     string
	Identifier string
	Location   string
	Capability string
	Reason     string
}

// Materializer turns a fetched resource into a capability implementation
// looked up by its derived name. Absence (the resource did not define the
// expected name) is not an error: the registration step is skipped.
type Materializer interface {
	Materialize(name string, src []byte) (namespace.Capability, bool)
}

// Loader drains load tasks strictly in order with exactly one fetch in
// flight at any time, process-wide. The concurrency bound of one is
// deliberate: it guarantees deterministic registration order even when
// several namespaces request loads at once.
type Loader struct {
	mu       sync.Mutex
	tasks    []*Task
	draining bool
	idleCh   chan struct{}

	ctx          context.Context
	fetch        func(ctx context.Context, location string) ([]byte, error)
	materializer Materializer
	broker       *pubsub.Broker[Report]
	tracer       trace.Tracer
}

type options struct {
	ctx      context.Context
	tracer   trace.Tracer
	cacheTTL time.Duration
}

// Option configures a Loader.
type Option func(*options)

// WithContext sets the context the drain goroutine passes to fetches.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithTracer wraps each fetch in a span from the given tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithCache caches fetched payloads by resolved location for ttl.
func WithCache(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// New creates a Loader draining fetches through fetcher and registering
// implementations produced by materializer. A nil materializer downgrades
// every task to fetch-only.
func New(fetcher Fetcher, materializer Materializer, opts ...Option) *Loader {
	o := options{
		ctx:    context.Background(),
		tracer: noop.NewTracerProvider().Tracer("loader"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loader{
		ctx:          o.ctx,
		fetch:        fetcher.Fetch,
		materializer: materializer,
		broker:       pubsub.NewBroker[Report](),
		tracer:       o.tracer,
	}

	if o.cacheTTL > 0 {
		cache := cachemanager.NewInMemoryManager[string, []byte]("loader",
			o.cacheTTL, cachemanager.DefaultCleanupInterval)
		rt := cachemanager.NewReadThroughCache(cache, fetcher.Fetch, o.cacheTTL)
		l.fetch = rt.Get
	}

	return l
}

// Enqueue appends a load task for the given identifiers and returns its
// task ID. If the queue was empty, draining begins immediately; otherwise
// the task waits its turn. The target may be nil for fetch-only tasks.
func (l *Loader) Enqueue(target *namespace.Namespace, basePath string, identifiers ...string) string {
	task := newTask(target, basePath, identifiers)

	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	start := !l.draining
	if start {
		l.draining = true
	}
	// Published under the lock so a running drain cannot emit the task's
	// first resource event before its enqueued event. Publish never blocks.
	l.broker.Publish(EventTaskEnqueued, Report{TaskID: task.ID})
	l.mu.Unlock()

	log.Debug(log.CatLoader, "task enqueued", "task", task.ID, "resources", len(identifiers))

	if start {
		go l.drain()
	}
	return task.ID
}

// drain processes the queue until it is empty. It is the only goroutine
// touching task internals, which is what enforces the one-fetch-in-flight
// bound.
func (l *Loader) drain() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.draining = false
			if l.idleCh != nil {
				close(l.idleCh)
				l.idleCh = nil
			}
			l.mu.Unlock()
			return
		}

		task := l.tasks[0]
		if len(task.pending) == 0 {
			l.tasks = l.tasks[1:]
			l.mu.Unlock()
			log.Debug(log.CatLoader, "task completed", "task", task.ID)
			l.broker.Publish(EventTaskCompleted, Report{TaskID: task.ID})
			continue
		}

		identifier := task.pending[0]
		task.pending = task.pending[1:]
		l.mu.Unlock()

		l.fetchOne(task, identifier)
	}
}

// fetchOne fetches a single resource and, on success, registers the
// materialized implementation into the task's target namespace. Failures
// are reported and skipped; the intended capability is simply absent
// afterwards.
func (l *Loader) fetchOne(task *Task, identifier string) {
	location := task.Resolve(identifier)

	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrResourceIdentifier, identifier),
		attribute.String(tracing.AttrResourceLocation, location),
		attribute.String(tracing.AttrTaskID, task.ID),
	}
	if task.Target != nil {
		attrs = append(attrs, attribute.String(tracing.AttrNamespaceID, task.Target.Identifier()))
	}

	ctx, span := l.tracer.Start(l.ctx, "loader.fetch", trace.WithAttributes(attrs...))
	defer span.End()

	payload, err := l.fetch(ctx, location)
	if err != nil {
		span.RecordError(err)
		log.ErrorErr(log.CatFetch, "resource fetch failed", err,
			"task", task.ID, "identifier", identifier, "location", location)
		l.broker.Publish(EventResourceFailed, Report{TaskID: task.ID,
			Identifier: identifier, Location: location, Reason: err.Error()})
		return
	}

	name := DeriveName(identifier)
	log.Debug(log.CatFetch, "resource fetched", "task", task.ID,
		"identifier", identifier, "capability", name, "bytes", len(payload))

	if task.Target == nil || l.materializer == nil {
		l.broker.Publish(EventResourceLoaded, Report{TaskID: task.ID,
			Identifier: identifier, Location: location, Capability: name})
		return
	}

	impl, ok := l.materializer.Materialize(name, payload)
	if !ok {
		// The resource did not yield the expected implementation.
		// Silently skipped: the host later observes the capability as
		// absent, not as an error.
		log.Warn(log.CatLoader, "resource did not yield expected implementation",
			"task", task.ID, "identifier", identifier, "capability", name)
		l.broker.Publish(EventResourceSkipped, Report{TaskID: task.ID,
			Identifier: identifier, Location: location, Capability: name,
			Reason: "no implementation under derived name"})
		return
	}

	task.Target.SetCapability(name, impl)
	l.broker.Publish(EventResourceLoaded, Report{TaskID: task.ID,
		Identifier: identifier, Location: location, Capability: name})
}

// Idle reports whether the queue is empty and no drain is running.
func (l *Loader) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.draining && len(l.tasks) == 0
}

// Wait blocks until the queue drains or ctx is cancelled.
func (l *Loader) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		if !l.draining && len(l.tasks) == 0 {
			l.mu.Unlock()
			return nil
		}
		if l.idleCh == nil {
			l.idleCh = make(chan struct{})
		}
		idle := l.idleCh
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Subscribe returns a channel of loader events for the lifetime of ctx.
func (l *Loader) Subscribe(ctx context.Context) <-chan pubsub.Event[Report] {
	return l.broker.Subscribe(ctx)
}
