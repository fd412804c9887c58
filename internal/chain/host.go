// Package chain simulates the block-producing host the ledger runs under. It
// hands each transition its caller, the current block's 32-byte entropy seed
// and the operation's index within the block, and seals a block after a fixed
// number of operations.
//
// The head is persisted in the store so a restarted process continues the
// same deterministic sequence of seeds.
package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/store"
)

const headKey = "chain/head"

const headSize = 8 + blake2b.Size256 + 4

// DefaultBlockSize is the number of operations per block when none is configured.
const DefaultBlockSize = 16

// Head is the position of the next operation.
type Head struct {
	Number  uint64
	Seed    [blake2b.Size256]byte
	OpIndex uint32
}

// Genesis returns the head of block zero for a genesis seed.
func Genesis(seed []byte) Head {
	return Head{Seed: blake2b.Sum256(seed)}
}

// Seal closes h and returns the first head of the following block. The new
// seed is BLAKE2b-256 over the old seed and the big-endian block number.
func (h Head) Seal() Head {
	var buf [blake2b.Size256 + 8]byte
	copy(buf[:], h.Seed[:])
	binary.BigEndian.PutUint64(buf[blake2b.Size256:], h.Number)
	return Head{Number: h.Number + 1, Seed: blake2b.Sum256(buf[:])}
}

func (h Head) encode() []byte {
	buf := make([]byte, headSize)
	binary.BigEndian.PutUint64(buf[0:8], h.Number)
	copy(buf[8:8+blake2b.Size256], h.Seed[:])
	binary.BigEndian.PutUint32(buf[8+blake2b.Size256:], h.OpIndex)
	return buf
}

func decodeHead(b []byte) (Head, error) {
	if len(b) != headSize {
		return Head{}, fmt.Errorf("corrupt chain head: %d bytes", len(b))
	}
	var h Head
	h.Number = binary.BigEndian.Uint64(b[0:8])
	copy(h.Seed[:], b[8:8+blake2b.Size256])
	h.OpIndex = binary.BigEndian.Uint32(b[8+blake2b.Size256:])
	return h, nil
}

// Host hands out transition environments in order.
type Host struct {
	mu        sync.Mutex
	store     store.Store
	genesis   Head
	blockSize uint32
}

// NewHost creates a host over s. A blockSize of zero uses DefaultBlockSize.
func NewHost(s store.Store, genesisSeed []byte, blockSize uint32) *Host {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	return &Host{
		store:     s,
		genesis:   Genesis(genesisSeed),
		blockSize: blockSize,
	}
}

// Head returns the persisted head, or the genesis head if none was stored.
func (h *Host) Head(ctx context.Context) (Head, error) {
	tx, err := h.store.Begin(ctx)
	if err != nil {
		return Head{}, fmt.Errorf("failed to begin head read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return h.load(tx)
}

func (h *Host) load(r store.Reader) (Head, error) {
	raw, ok, err := r.Get(headKey)
	if err != nil {
		return Head{}, err
	}
	if !ok {
		return h.genesis, nil
	}
	return decodeHead(raw)
}

// Next reserves the next operation slot for caller and returns its
// environment. The slot is consumed whether or not the transition succeeds.
func (h *Host) Next(ctx context.Context, caller kitty.OwnerID) (ledger.Env, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return ledger.Env{}, fmt.Errorf("failed to begin head update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	head, err := h.load(tx)
	if err != nil {
		return ledger.Env{}, err
	}

	env := ledger.Env{
		Caller:  caller,
		Seed:    append([]byte(nil), head.Seed[:]...),
		Block:   head.Number,
		OpIndex: head.OpIndex,
	}

	next := head
	next.OpIndex++
	if next.OpIndex >= h.blockSize {
		next = head.Seal()
		log.Debug(log.CatChain, "sealed block", "block", head.Number, "ops", h.blockSize)
	}

	if err := tx.Put(headKey, next.encode()); err != nil {
		return ledger.Env{}, fmt.Errorf("failed to store chain head: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ledger.Env{}, fmt.Errorf("failed to commit chain head: %w", err)
	}
	return env, nil
}
