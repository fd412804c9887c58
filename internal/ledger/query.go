package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/kitties/internal/cachemanager"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/registry"
	"github.com/zjrosen/kitties/internal/store"
)

// Query is the read side of the registry. Kitty records and ownership lists
// are served from a read-through cache kept consistent by observing committed
// events; register it with WithObserver.
type Query struct {
	store   store.Store
	ttl     time.Duration
	kitties *cachemanager.ReadThroughCache[string, kitty.Kitty, kitty.AssetID]
	owned   *cachemanager.ReadThroughCache[string, []kitty.Kitty, kitty.OwnerID]
	caches  map[string]interface{ Stats() cachemanager.Stats }
}

var _ Observer = (*Query)(nil)

// NewQuery creates a query service. A ttl of zero disables caching.
func NewQuery(s store.Store, ttl time.Duration) *Query {
	q := &Query{store: s, ttl: ttl}
	skip := ttl <= 0

	kitties := cachemanager.NewInMemoryCacheManager[kitty.Kitty]("kitties", ttl, cachemanager.DefaultCleanupInterval)
	owned := cachemanager.NewInMemoryCacheManager[[]kitty.Kitty]("owned", ttl, cachemanager.DefaultCleanupInterval)
	q.caches = map[string]interface{ Stats() cachemanager.Stats }{
		"kitties": kitties,
		"owned":   owned,
	}
	q.kitties = cachemanager.NewReadThroughCache[string, kitty.Kitty, kitty.AssetID](kitties, q.loadKitty, skip)
	q.owned = cachemanager.NewReadThroughCache[string, []kitty.Kitty, kitty.OwnerID](owned, q.loadOwned, skip)
	return q
}

// CacheStats reports hit and miss counters per cache.
func (q *Query) CacheStats() map[string]cachemanager.Stats {
	out := make(map[string]cachemanager.Stats, len(q.caches))
	for name, c := range q.caches {
		out[name] = c.Stats()
	}
	return out
}

// Kitty returns the record of id, or kitty.ErrNotFound. Entries expire ttl
// after they were loaded, which bounds staleness from writers in other
// processes.
func (q *Query) Kitty(ctx context.Context, id kitty.AssetID) (kitty.Kitty, error) {
	return q.kitties.Get(ctx, kittyKey(id), id, q.ttl)
}

// Count returns how many kitties exist.
func (q *Query) Count(ctx context.Context) (kitty.AssetID, error) {
	var n kitty.AssetID
	err := q.view(ctx, func(v registry.View) error {
		var err error
		n, err = v.NextID()
		return err
	})
	return n, err
}

// List returns up to limit kitties in id order starting at offset. A limit of
// zero or less returns every kitty from offset.
func (q *Query) List(ctx context.Context, offset, limit int) ([]kitty.Kitty, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative, got %d", offset)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}

	end := uint64(count)
	if limit > 0 && uint64(offset)+uint64(limit) < end {
		end = uint64(offset) + uint64(limit)
	}

	var out []kitty.Kitty
	for i := uint64(offset); i < end; i++ {
		k, err := q.Kitty(ctx, kitty.AssetID(i))
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Owned returns every kitty currently owned by owner, in id order.
func (q *Query) Owned(ctx context.Context, owner kitty.OwnerID) ([]kitty.Kitty, error) {
	return q.owned.Get(ctx, ownedKey(owner), owner, q.ttl)
}

// Observe drops cache entries a committed event made stale.
func (q *Query) Observe(ctx context.Context, ev kitty.Event) {
	switch ev.Kind {
	case kitty.EventTransferred:
		_ = q.kitties.Invalidate(ctx, kittyKey(ev.ID))
		_ = q.owned.Invalidate(ctx, ownedKey(ev.From), ownedKey(ev.To))
	case kitty.EventCreated, kitty.EventBred:
		_ = q.kitties.Invalidate(ctx, kittyKey(ev.ID))
		_ = q.owned.Invalidate(ctx, ownedKey(ev.Owner))
	}
}

func (q *Query) loadKitty(ctx context.Context, id kitty.AssetID) (kitty.Kitty, error) {
	var k kitty.Kitty
	err := q.view(ctx, func(v registry.View) error {
		var (
			ok  bool
			err error
		)
		k, ok, err = v.Kitty(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("kitty %d: %w", id, kitty.ErrNotFound)
		}
		return nil
	})
	return k, err
}

func (q *Query) loadOwned(ctx context.Context, owner kitty.OwnerID) ([]kitty.Kitty, error) {
	out := []kitty.Kitty{}
	err := q.view(ctx, func(v registry.View) error {
		n, err := v.NextID()
		if err != nil {
			return err
		}
		for i := uint64(0); i < uint64(n); i++ {
			k, ok, err := v.Kitty(kitty.AssetID(i))
			if err != nil {
				return err
			}
			if ok && k.Owner == owner {
				out = append(out, k)
			}
		}
		return nil
	})
	return out, err
}

func (q *Query) view(ctx context.Context, fn func(v registry.View) error) error {
	tx, err := q.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(registry.NewView(tx))
}

func kittyKey(id kitty.AssetID) string { return "kitty:" + id.String() }

func ownedKey(owner kitty.OwnerID) string { return "owned:" + string(owner) }
