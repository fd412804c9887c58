// Package registry is the storage layout of the kitty registry: the genome map,
// the ownership map and the NextID counter, read and written through a store
// transaction. It performs no validation; transition handlers in the ledger
// package enforce the invariants before writing.
package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/store"
)

const (
	keyCount        = "kitty/count"
	keyGenomePrefix = "kitty/dna/"
	keyOwnerPrefix  = "kitty/owner/"
)

// CountKey is the store key of the NextID counter.
func CountKey() string { return keyCount }

// GenomeKey is the store key of a kitty's genome.
func GenomeKey(id kitty.AssetID) string { return keyGenomePrefix + id.String() }

// OwnerKey is the store key of a kitty's owner.
func OwnerKey(id kitty.AssetID) string { return keyOwnerPrefix + id.String() }

// View reads registry state.
type View struct {
	r store.Reader
}

// NewView wraps a reader.
func NewView(r store.Reader) View {
	return View{r: r}
}

// Genome returns the genome of id. The bool is false when id does not exist.
func (v View) Genome(id kitty.AssetID) (kitty.Genome, bool, error) {
	raw, ok, err := v.r.Get(GenomeKey(id))
	if err != nil || !ok {
		return kitty.Genome{}, false, err
	}
	g, err := kitty.GenomeFromBytes(raw)
	if err != nil {
		return kitty.Genome{}, false, fmt.Errorf("corrupt genome for kitty %d: %w", id, err)
	}
	return g, true, nil
}

// Owner returns the owner of id. The bool is false when id does not exist.
func (v View) Owner(id kitty.AssetID) (kitty.OwnerID, bool, error) {
	raw, ok, err := v.r.Get(OwnerKey(id))
	if err != nil || !ok {
		return "", false, err
	}
	return kitty.OwnerID(raw), true, nil
}

// Exists reports whether id has a genome.
func (v View) Exists(id kitty.AssetID) (bool, error) {
	_, ok, err := v.r.Get(GenomeKey(id))
	return ok, err
}

// Kitty returns the full record of id. The bool is false when id does not exist.
func (v View) Kitty(id kitty.AssetID) (kitty.Kitty, bool, error) {
	g, ok, err := v.Genome(id)
	if err != nil || !ok {
		return kitty.Kitty{}, false, err
	}
	owner, ok, err := v.Owner(id)
	if err != nil {
		return kitty.Kitty{}, false, err
	}
	if !ok {
		return kitty.Kitty{}, false, fmt.Errorf("kitty %d has a genome but no owner", id)
	}
	return kitty.Kitty{ID: id, Genome: g, Owner: owner}, true, nil
}

// NextID returns the number of kitties ever created. An absent counter is zero.
func (v View) NextID() (kitty.AssetID, error) {
	raw, ok, err := v.r.Get(keyCount)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("corrupt kitty counter: %d bytes", len(raw))
	}
	return kitty.AssetID(binary.BigEndian.Uint32(raw)), nil
}

// Registry reads and writes registry state inside one transaction.
type Registry struct {
	View
	tx store.Tx
}

// New wraps a transaction.
func New(tx store.Tx) *Registry {
	return &Registry{View: NewView(tx), tx: tx}
}

// Insert writes the genome and owner of a new kitty.
func (r *Registry) Insert(id kitty.AssetID, genome kitty.Genome, owner kitty.OwnerID) error {
	if err := r.tx.Put(GenomeKey(id), genome[:]); err != nil {
		return err
	}
	return r.SetOwner(id, owner)
}

// SetOwner overwrites the owner of id.
func (r *Registry) SetOwner(id kitty.AssetID, owner kitty.OwnerID) error {
	return r.tx.Put(OwnerKey(id), []byte(owner))
}

// SetNextID overwrites the counter.
func (r *Registry) SetNextID(n kitty.AssetID) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	return r.tx.Put(keyCount, buf[:])
}

// Allocate returns the id the next kitty will receive without reserving it.
// When the counter has reached max it returns kitty.ErrIndexOverflow; the
// caller persists NextID+1 after a successful insert.
func Allocate(r store.Reader, max kitty.AssetID) (kitty.AssetID, error) {
	next, err := NewView(r).NextID()
	if err != nil {
		return 0, err
	}
	if next >= max {
		return 0, kitty.ErrIndexOverflow
	}
	return next, nil
}
