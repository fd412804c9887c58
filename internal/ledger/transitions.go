package ledger

import (
	"fmt"

	"github.com/zjrosen/kitties/internal/entropy"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/registry"
	"github.com/zjrosen/kitties/internal/store"
)

// The transition functions validate every precondition before the first
// write, so a returned error always means the registry was not touched.

func create(tx store.Tx, env Env, maxID kitty.AssetID) (kitty.Event, error) {
	reg := registry.New(tx)
	id, err := registry.Allocate(tx, maxID)
	if err != nil {
		return kitty.Event{}, fmt.Errorf("create kitty: %w", err)
	}

	genome := entropy.Derive(env.Seed, env.Caller, env.OpIndex)
	if err := mint(reg, id, genome, env.Caller); err != nil {
		return kitty.Event{}, err
	}
	return kitty.Created(env.Caller, id), nil
}

func transfer(tx store.Tx, env Env, to kitty.OwnerID, id kitty.AssetID) (kitty.Event, error) {
	reg := registry.New(tx)
	exists, err := reg.Exists(id)
	if err != nil {
		return kitty.Event{}, err
	}
	if !exists {
		return kitty.Event{}, fmt.Errorf("transfer kitty %d: %w", id, kitty.ErrNotFound)
	}

	owner, _, err := reg.Owner(id)
	if err != nil {
		return kitty.Event{}, err
	}
	if owner != env.Caller {
		return kitty.Event{}, fmt.Errorf("transfer kitty %d: %w", id, kitty.ErrNotOwner)
	}

	if err := reg.SetOwner(id, to); err != nil {
		return kitty.Event{}, err
	}
	return kitty.Transferred(env.Caller, to, id), nil
}

func breed(tx store.Tx, env Env, parent1, parent2 kitty.AssetID, maxID kitty.AssetID) (kitty.Event, error) {
	reg := registry.New(tx)
	if parent1 == parent2 {
		return kitty.Event{}, fmt.Errorf("breed kitty %d with itself: %w", parent1, kitty.ErrSameParent)
	}

	g1, ok, err := reg.Genome(parent1)
	if err != nil {
		return kitty.Event{}, err
	}
	if !ok {
		return kitty.Event{}, fmt.Errorf("breed parent %d: %w", parent1, kitty.ErrNotFound)
	}
	g2, ok, err := reg.Genome(parent2)
	if err != nil {
		return kitty.Event{}, err
	}
	if !ok {
		return kitty.Event{}, fmt.Errorf("breed parent %d: %w", parent2, kitty.ErrNotFound)
	}

	id, err := registry.Allocate(tx, maxID)
	if err != nil {
		return kitty.Event{}, fmt.Errorf("breed kitty: %w", err)
	}

	selector := entropy.Derive(env.Seed, env.Caller, env.OpIndex)
	child := kitty.Mix(selector, g1, g2)
	if err := mint(reg, id, child, env.Caller); err != nil {
		return kitty.Event{}, err
	}
	return kitty.Bred(parent1, parent2, id, env.Caller), nil
}

// mint inserts a freshly allocated kitty and advances the counter past it.
func mint(reg *registry.Registry, id kitty.AssetID, genome kitty.Genome, owner kitty.OwnerID) error {
	if err := reg.Insert(id, genome, owner); err != nil {
		return err
	}
	return reg.SetNextID(id + 1)
}
