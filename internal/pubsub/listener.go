package pubsub

import "context"

// Listener wraps a broker subscription with a blocking receive.
// Hosts that want sequential event handling without managing the raw
// channel use this instead of Subscribe.
type Listener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewListener subscribes to the broker for the lifetime of ctx.
func NewListener[T any](ctx context.Context, broker *Broker[T]) *Listener[T] {
	return &Listener[T]{
		ctx: ctx,
		ch:  broker.Subscribe(ctx),
	}
}

// Next blocks until an event arrives, the context is cancelled, or the
// broker closes. The second return is false when no further events will
// be delivered.
func (l *Listener[T]) Next() (Event[T], bool) {
	select {
	case <-l.ctx.Done():
		return Event[T]{}, false
	case event, ok := <-l.ch:
		if !ok {
			return Event[T]{}, false
		}
		return event, true
	}
}
