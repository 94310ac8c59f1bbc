package namespace

import (
	"context"
	"sort"
	"sync"

	"github.com/fzeeshan/graphml-canvas/internal/log"
	"github.com/fzeeshan/graphml-canvas/internal/pubsub"
)

// Registry is the process-wide mapping from identifier to the single
// Namespace currently occupying that identifier ("the scope"). It holds
// non-owning references: instances enter via Scope and leave via Descope
// or by being displaced with explicit overwrite permission, and are never
// freed by this subsystem.
//
// All methods are safe for concurrent use. Lock ordering is registry
// before namespace throughout the package.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Namespace
	broker  *pubsub.Broker[Notice]
}

// NewRegistry creates an empty registry.
// A host creates one at process start and passes it to every Namespace;
// there is no ambient global instance.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Namespace),
		broker:  pubsub.NewBroker[Notice](),
	}
}

// Get returns the namespace currently scoped under identifier.
// Pure lookup, no side effects.
func (r *Registry) Get(identifier string) (*Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.entries[identifier]
	return ns, ok
}

// Scope attempts to register ns under its identifier.
//
// Already-scoped instances are a no-op success. An empty slot (or a slot
// already holding this exact instance) is occupied and true is returned.
// A slot held by a different instance is refused unless overwrite is set,
// in which case the occupant is evicted via the descope path (eviction
// always succeeds) and ns takes the slot. Refusal is reported, never
// raised: the caller's instance simply remains unscoped.
func (r *Registry) Scope(ns *Namespace, overwrite bool) bool {
	if ns == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ns.isScoped() {
		return true
	}

	id := ns.Identifier()
	cur, occupied := r.entries[id]
	if !occupied || cur == ns {
		r.entries[id] = ns
		ns.setScoped(true)
		r.broker.Publish(EventScoped, Notice{Identifier: id})
		return true
	}

	if !overwrite {
		log.Warn(log.CatNamespace, "scope conflict: identifier already occupied", "identifier", id)
		r.broker.Publish(EventScopeConflict, Notice{Identifier: id, Reason: "identifier already occupied"})
		return false
	}

	// Evict the occupant. Descope always succeeds in the current design.
	cur.setScoped(false)
	delete(r.entries, id)
	r.broker.Publish(EventEvicted, Notice{Identifier: id})
	log.Info(log.CatNamespace, "evicted occupant on overwrite scope", "identifier", id)

	r.entries[id] = ns
	ns.setScoped(true)
	r.broker.Publish(EventScoped, Notice{Identifier: id})
	return true
}

// Descope removes the namespace's identifier from the registry and clears
// its scoped flag. Always succeeds: the removal is unconditional, even if
// the slot is held by a different instance.
func (r *Registry) Descope(ns *Namespace) bool {
	if ns == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := ns.Identifier()
	delete(r.entries, id)
	ns.setScoped(false)
	r.broker.Publish(EventDescoped, Notice{Identifier: id})
	return true
}

// rename moves ns from its current identifier to newID.
// See Namespace.Rename for the externally documented contract.
func (r *Registry) rename(ns *Namespace, newID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns.mu.Lock()
	defer ns.mu.Unlock()

	old := ns.identifier
	if old == newID {
		return true
	}

	if _, occupied := r.entries[old]; occupied && ns.scoped {
		log.Warn(log.CatNamespace, "rename refused: instance still occupies its registry slot",
			"identifier", old, "new", newID)
		r.broker.Publish(EventRenameBlocked, Notice{Identifier: old, NewIdentifier: newID,
			Reason: "scoped instance still registered under old identifier"})
		return false
	}

	// Move the registry key only if this instance holds it; a slot taken
	// over by another instance is left alone.
	if cur, ok := r.entries[old]; ok && cur == ns {
		delete(r.entries, old)
		r.entries[newID] = ns
	}
	ns.identifier = newID
	r.broker.Publish(EventRenamed, Notice{Identifier: old, NewIdentifier: newID})
	return true
}

// recognizes reports whether the registry currently maps ns's identifier
// to this exact instance.
func (r *Registry) recognizes(ns *Namespace) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.entries[ns.Identifier()]
	return ok && cur == ns
}

// Identifiers returns the currently scoped identifiers, sorted.
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of scoped namespaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Subscribe returns a channel of registry events for the lifetime of ctx.
func (r *Registry) Subscribe(ctx context.Context) <-chan pubsub.Event[Notice] {
	return r.broker.Subscribe(ctx)
}

func (r *Registry) publish(eventType pubsub.EventType, n Notice) {
	r.broker.Publish(eventType, n)
}
