// Package testutil provides test utilities for assembling a running ledger
// stack and seeding it with kitties.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/chain"
	"github.com/zjrosen/kitties/internal/handler"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/processor"
	"github.com/zjrosen/kitties/internal/pubsub"
	"github.com/zjrosen/kitties/internal/sink"
	"github.com/zjrosen/kitties/internal/store"
	"github.com/zjrosen/kitties/internal/store/sqlite"
)

// GenesisSeed is the chain seed every Stack starts from.
var GenesisSeed = []byte("testutil-genesis")

// Stack is a fully wired, running command path over one store.
type Stack struct {
	Store     store.Store
	Ledger    *ledger.Ledger
	Host      *chain.Host
	Query     *ledger.Query
	Events    *pubsub.Broker[kitty.Event]
	Processor *processor.CommandProcessor
}

// NewTestDB opens a migrated sqlite store in a temp dir, closed on cleanup.
func NewTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "kitties.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewStack wires store, ledger, chain host, query cache, event broker and
// processor, and runs the processor until the test ends.
func NewStack(t *testing.T, opts ...StackOption) *Stack {
	t.Helper()
	cfg := defaultStackConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var s store.Store = store.NewMemoryStore()
	if cfg.sqlite {
		s = NewTestDB(t)
	}

	broker := pubsub.NewBroker[kitty.Event]()
	query := ledger.NewQuery(s, time.Minute)
	l := ledger.New(s,
		ledger.WithMaxID(cfg.maxID),
		ledger.WithObserver(query),
		ledger.WithObserver(sink.NewBrokerSink(broker)),
	)
	host := chain.NewHost(s, GenesisSeed, cfg.blockSize)

	p := processor.NewCommandProcessor(processor.WithMiddleware(cfg.middlewares...))
	handler.Register(p, host, l)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	require.NoError(t, p.WaitForReady(context.Background()))
	t.Cleanup(func() {
		cancel()
		p.Stop()
		broker.Close()
	})

	return &Stack{
		Store:     s,
		Ledger:    l,
		Host:      host,
		Query:     query,
		Events:    broker,
		Processor: p,
	}
}
