// Package namespace implements uniquely identified groupings of named
// capability implementations and the process-wide registry that scopes
// them. Data tagged with a namespace identifier is resolved by the
// rendering host through the registry to the capability table of the
// single instance scoped under that identifier.
package namespace

import (
	"context"
	"sync"

	"github.com/fzeeshan/graphml-canvas/internal/log"
)

// Loader enqueues an ordered batch of resource identifiers to fetch and
// register into a target namespace. Implemented by the loader package;
// declared here so construction can trigger loading without an import
// cycle.
type Loader interface {
	Enqueue(target *Namespace, basePath string, identifiers ...string) string
}

// SetupFunc is the signature of the polymorphic setup hook.
type SetupFunc func(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error

// Namespace groups named capability implementations under a globally
// unique identifier. At most one instance is scoped per identifier at any
// time; the registry mapping and the instance's own scoped flag always
// agree.
type Namespace struct {
	mu           sync.RWMutex
	reg          *Registry
	identifier   string
	capabilities map[string]Capability
	scoped       bool
	setup        SetupFunc
}

type config struct {
	unscoped  bool
	setup     SetupFunc
	loader    Loader
	basePath  string
	resources []string
}

// Option configures a Namespace during construction.
type Option func(*config)

// Unscoped constructs the namespace without attempting to scope it.
func Unscoped() Option {
	return func(c *config) { c.unscoped = true }
}

// WithSetup overrides the setup hook. Every concrete namespace variant is
// expected to provide one; the default only emits a diagnostic notice.
func WithSetup(fn SetupFunc) Option {
	return func(c *config) { c.setup = fn }
}

// WithResources enqueues a load task for the given resource identifiers at
// construction time. Identifiers are fetched strictly in order, resolved
// against basePath, and registered into this namespace as they complete.
func WithResources(l Loader, basePath string, identifiers ...string) Option {
	return func(c *config) {
		c.loader = l
		c.basePath = basePath
		c.resources = identifiers
	}
}

// New constructs a Namespace bound to reg under identifier.
//
// Unless Unscoped is given, the new instance auto-attempts a non-overwrite
// scope; if the identifier is already occupied by a different instance the
// conflict is reported and the instance simply remains unscoped. When
// WithResources is given, a load task is enqueued before returning.
func New(reg *Registry, identifier string, opts ...Option) *Namespace {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	ns := &Namespace{
		reg:          reg,
		identifier:   identifier,
		capabilities: make(map[string]Capability),
		setup:        cfg.setup,
	}

	if !cfg.unscoped && reg != nil {
		reg.Scope(ns, false)
	}

	if cfg.loader != nil && len(cfg.resources) > 0 {
		cfg.loader.Enqueue(ns, cfg.basePath, cfg.resources...)
	}

	return ns
}

// Identifier returns the namespace's current identifier.
func (n *Namespace) Identifier() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.identifier
}

// Scoped reports whether this exact instance is the one registered under
// its identifier.
func (n *Namespace) Scoped() bool {
	return n.isScoped()
}

func (n *Namespace) isScoped() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scoped
}

// setScoped is only called by the registry while holding its own lock.
func (n *Namespace) setScoped(v bool) {
	n.mu.Lock()
	n.scoped = v
	n.mu.Unlock()
}

// Scope attempts to register this instance under its identifier.
func (n *Namespace) Scope(overwrite bool) bool {
	if n.reg == nil {
		return false
	}
	return n.reg.Scope(n, overwrite)
}

// Descope removes this instance's identifier from the registry and clears
// the scoped flag. Always succeeds.
func (n *Namespace) Descope() bool {
	if n.reg == nil {
		return true
	}
	return n.reg.Descope(n)
}

// Rename changes the namespace identifier.
//
// Renaming to the current identifier is a no-op success. A scoped instance
// whose old identifier is still present in the registry refuses the rename
// (the slot must be vacated first); this keeps the registry key and the
// instance's self-reported identifier from diverging. When permitted, the
// registry entry (if this instance holds it) moves to the new key and the
// identifier is updated in the same step.
func (n *Namespace) Rename(newIdentifier string) bool {
	if n.reg != nil {
		return n.reg.rename(n, newIdentifier)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.identifier = newIdentifier
	return true
}

// Capabilities returns the live capability mapping. Read access only:
// callers must not mutate through this accessor.
func (n *Namespace) Capabilities() map[string]Capability {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.capabilities
}

// Capability looks up a single capability by name.
func (n *Namespace) Capability(name string) (Capability, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	impl, ok := n.capabilities[name]
	return impl, ok
}

// SetCapability stores impl under name.
//
// Rejects a nil implementation. When name is empty it is resolved from the
// implementation's own declared name (Namer); with no resolvable name the
// registration is rejected. Re-registering the same implementation is a
// silent success. A different implementation under an existing name is
// refused while the namespace is scoped and the registry still recognizes
// this instance, protecting consumers that already resolved the old one;
// an unscoped (or unrecognized) instance may overwrite freely.
func (n *Namespace) SetCapability(name string, impl Capability) bool {
	if isNilCapability(impl) {
		log.Warn(log.CatNamespace, "capability registration rejected: nil implementation",
			"identifier", n.Identifier(), "name", name)
		return false
	}

	if name == "" {
		if namer, ok := impl.(Namer); ok {
			name = namer.Name()
		}
	}
	if name == "" {
		log.Warn(log.CatNamespace, "capability registration rejected: no resolvable name",
			"identifier", n.Identifier())
		return false
	}

	// Registry recognition is read before taking the namespace lock to
	// keep the registry-before-namespace lock order.
	recognized := n.reg != nil && n.reg.recognizes(n)

	n.mu.Lock()
	existing, exists := n.capabilities[name]
	if exists && !sameImplementation(existing, impl) {
		if n.scoped && recognized {
			n.mu.Unlock()
			log.Warn(log.CatNamespace, "capability overwrite refused while scoped",
				"identifier", n.Identifier(), "name", name)
			if n.reg != nil {
				n.reg.publish(EventCapabilityNoSet, Notice{Identifier: n.Identifier(),
					Capability: name, Reason: "overwrite refused while scoped"})
			}
			return false
		}
	}
	n.capabilities[name] = impl
	id := n.identifier
	n.mu.Unlock()

	if n.reg != nil {
		n.reg.publish(EventCapabilitySet, Notice{Identifier: id, Capability: name})
	}
	return true
}

// Equal reports namespace equivalence: identifiers match. Capability
// mappings are never compared.
func (n *Namespace) Equal(other *Namespace) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Identifier() == other.Identifier()
}

// Setup is the polymorphic extension point the rendering host invokes to
// materialize graph elements. The default emits a diagnostic notice and
// does nothing else; concrete namespace variants override it via
// WithSetup.
func (n *Namespace) Setup(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error {
	n.mu.RLock()
	fn := n.setup
	id := n.identifier
	n.mu.RUnlock()

	if fn == nil {
		log.Warn(log.CatNamespace, "setup not implemented", "identifier", id)
		return nil
	}
	return fn(ctx, canvas, graph, data, attrs)
}
