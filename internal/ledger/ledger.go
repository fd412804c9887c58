// Package ledger applies the kitty state transitions. Each call runs in one
// store transaction: preconditions are checked, registry entries and the
// journaled event are written, and the transaction commits. Any failure rolls
// back with no state change. Observers see an event only after its commit.
//
// Transitions must be applied one at a time; the command processor provides
// that ordering.
package ledger

import (
	"context"
	"fmt"

	"github.com/zjrosen/kitties/internal/journal"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/store"
)

// Observer receives committed events.
type Observer interface {
	Observe(ctx context.Context, ev kitty.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev kitty.Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, ev kitty.Event) { f(ctx, ev) }

// Ledger owns the registry transitions over a store.
type Ledger struct {
	store     store.Store
	maxID     kitty.AssetID
	observers []Observer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxID caps the number of kitties that can ever exist.
func WithMaxID(max kitty.AssetID) Option {
	return func(l *Ledger) { l.maxID = max }
}

// WithObserver registers an observer of committed events.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// New creates a ledger over s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: s, maxID: kitty.MaxAssetID}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxID returns the configured id cap.
func (l *Ledger) MaxID() kitty.AssetID {
	return l.maxID
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store {
	return l.store
}

// Create mints a kitty owned by the caller with a genome derived from env.
func (l *Ledger) Create(ctx context.Context, env Env) (kitty.Event, error) {
	return l.apply(ctx, env, func(tx store.Tx) (kitty.Event, error) {
		return create(tx, env, l.maxID)
	})
}

// Transfer moves kitty id from the caller to to.
func (l *Ledger) Transfer(ctx context.Context, env Env, to kitty.OwnerID, id kitty.AssetID) (kitty.Event, error) {
	return l.apply(ctx, env, func(tx store.Tx) (kitty.Event, error) {
		return transfer(tx, env, to, id)
	})
}

// Breed mints a child of parent1 and parent2 owned by the caller.
func (l *Ledger) Breed(ctx context.Context, env Env, parent1, parent2 kitty.AssetID) (kitty.Event, error) {
	return l.apply(ctx, env, func(tx store.Tx) (kitty.Event, error) {
		return breed(tx, env, parent1, parent2, l.maxID)
	})
}

func (l *Ledger) apply(ctx context.Context, env Env, fn func(tx store.Tx) (kitty.Event, error)) (kitty.Event, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return kitty.Event{}, fmt.Errorf("failed to begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ev, err := fn(tx)
	if err != nil {
		return kitty.Event{}, err
	}

	ev.Block = env.Block
	ev.OpIndex = env.OpIndex
	ev, err = journal.Append(tx, ev)
	if err != nil {
		return kitty.Event{}, fmt.Errorf("failed to journal event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return kitty.Event{}, fmt.Errorf("failed to commit transition: %w", err)
	}

	for _, o := range l.observers {
		o.Observe(ctx, ev)
	}
	return ev, nil
}
