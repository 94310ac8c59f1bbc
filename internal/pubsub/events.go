// Package pubsub provides a generic publish/subscribe event system.
//
// The namespace registry, the resource loader, the watcher, and the logger
// all report through brokers from this package. Events never carry control
// flow: a host may observe them or ignore them, and publishing never blocks
// the publisher.
package pubsub

import (
	"context"
	"time"
)

// EventType identifies the kind of event being published.
// Packages define their own constants (e.g. "namespace.scoped").
type EventType string

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
