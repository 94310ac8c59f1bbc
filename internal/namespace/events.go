package namespace

import "github.com/fzeeshan/graphml-canvas/internal/pubsub"

// Event types published on the registry broker. Conflicts and refusals are
// reported here (and logged) instead of surfacing as errors: failure is
// observable as absence, never as an aborted operation.
const (
	EventScoped          pubsub.EventType = "namespace.scoped"
	EventDescoped        pubsub.EventType = "namespace.descoped"
	EventScopeConflict   pubsub.EventType = "namespace.scope_conflict"
	EventEvicted         pubsub.EventType = "namespace.evicted"
	EventRenamed         pubsub.EventType = "namespace.renamed"
	EventRenameBlocked   pubsub.EventType = "namespace.rename_blocked"
	EventCapabilitySet   pubsub.EventType = "namespace.capability_set"
	EventCapabilityNoSet pubsub.EventType = "namespace.capability_refused"
)

// Notice is the payload for registry events.
type Notice struct {
	// Identifier is the namespace identifier the event concerns.
	Identifier string

	// NewIdentifier is set on rename events.
	NewIdentifier string

	// Capability is set on capability registration events.
	Capability string

	// Reason is a short human-readable explanation on refusals.
	Reason string
}
