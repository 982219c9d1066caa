// Package service holds the business logic behind the Purriosity API:
// catalog reads, search, purrs, saves, categories, the blog and admin tasks.
// Services talk to the backend through backend.Client and announce changes
// through an event emitter.
package service

import (
	"github.com/purriosity/purriosity-server/internal/sse"
)

// EventEmitter publishes change notifications. *sse.Manager implements it.
type EventEmitter interface {
	Emit(event sse.Event)
}

// Subscriber registers in-process event listeners. *sse.Manager implements it.
type Subscriber interface {
	Connect(opts sse.ConnectOptions) (*sse.Client, error)
	Disconnect(clientID string)
}

// EventBus is both ends of the process-wide notification channel.
type EventBus interface {
	EventEmitter
	Subscriber
}

type noopEmitter struct{}

func (noopEmitter) Emit(sse.Event) {}

// emitterOrNoop lets services be built without events in tools and tests.
func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}
