// Package store defines the transactional key-value store the ledger runs on
// and provides an in-memory implementation.
//
// Every transition runs inside exactly one Tx: its reads see the state
// committed when it began plus its own pending writes, and either Commit makes
// all of them visible at once or Rollback discards them. Commits by other
// transactions after Begin are not visible.
package store

import (
	"context"
	"errors"
)

// ErrTxDone is returned when a transaction is used after Commit or Rollback.
var ErrTxDone = errors.New("transaction already finished")

// Reader reads the transaction's snapshot plus its pending writes.
type Reader interface {
	// Get returns the value stored under key. The bool is false when the key
	// is absent.
	Get(key string) ([]byte, bool, error)
}

// Tx is a single atomic unit of work.
type Tx interface {
	Reader
	// Put stages a write. It becomes visible to other transactions on Commit.
	Put(key string, value []byte) error
	// Commit applies every staged write atomically.
	Commit() error
	// Rollback discards staged writes. Calling it after Commit is a no-op, so
	// it is safe to defer.
	Rollback() error
}

// Store opens transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}
