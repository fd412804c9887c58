package store

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use.
//
// Committed state is an immutable map: a transaction reads the map current at
// Begin, and Commit publishes a copy with the staged writes applied. Commits
// therefore cost O(keys); this store is meant for tests and small ledgers.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// Begin opens a transaction.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	snap := s.data
	s.mu.RUnlock()
	return &memoryTx{
		store:   s,
		snap:    snap,
		pending: make(map[string][]byte),
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Snapshot returns a copy of the committed state. Useful for asserting that a
// failed transition changed nothing.
func (s *MemoryStore) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Len returns the number of committed keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type memoryTx struct {
	store   *MemoryStore
	snap    map[string][]byte // never mutated
	pending map[string][]byte
	done    bool
}

func (tx *memoryTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, ErrTxDone
	}
	if v, ok := tx.pending[key]; ok {
		return append([]byte(nil), v...), true, nil
	}
	v, ok := tx.snap[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (tx *memoryTx) Put(key string, value []byte) error {
	if tx.done {
		return ErrTxDone
	}
	tx.pending[key] = append([]byte(nil), value...)
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	next := maps.Clone(tx.store.data)
	maps.Copy(next, tx.pending)
	tx.store.data = next
	tx.pending = nil
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.pending = nil
	return nil
}
