// Package sink forwards committed ledger events out of the process: to the
// in-process broker that feeds live streams, and optionally to a Redis stream.
package sink

import (
	"context"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/pubsub"
)

// BrokerSink republishes committed events on a broker.
type BrokerSink struct {
	broker pubsub.Publisher[kitty.Event]
}

// NewBrokerSink creates a BrokerSink.
func NewBrokerSink(b pubsub.Publisher[kitty.Event]) *BrokerSink {
	return &BrokerSink{broker: b}
}

// Observe publishes ev as a ledger event.
func (s *BrokerSink) Observe(_ context.Context, ev kitty.Event) {
	s.broker.Publish(pubsub.LedgerEvent, ev)
}
