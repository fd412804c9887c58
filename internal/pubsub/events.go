// Package pubsub provides a generic in-process publish/subscribe broker used
// to fan out committed ledger events, command outcomes and log lines.
package pubsub

import (
	"context"
	"time"
)

// EventType classifies a published event.
type EventType string

const (
	// LedgerEvent carries a committed kitty.Event.
	LedgerEvent EventType = "ledger"
	// CommandEvent carries a processor outcome.
	CommandEvent EventType = "command"
	// CreatedEvent is a generic creation notice, used for log lines.
	CreatedEvent EventType = "created"
)

// Event wraps a payload with its type and publish time.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
