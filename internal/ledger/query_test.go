package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/registry"
	"github.com/zjrosen/kitties/internal/store"
)

func newQueryLedger(t *testing.T, ttl time.Duration) (*Ledger, *Query) {
	t.Helper()
	s := store.NewMemoryStore()
	q := NewQuery(s, ttl)
	return New(s, WithObserver(q)), q
}

func TestQuery_Kitty(t *testing.T) {
	ctx := context.Background()
	l, q := newQueryLedger(t, time.Minute)

	_, err := q.Kitty(ctx, 0)
	require.ErrorIs(t, err, kitty.ErrNotFound)

	_, err = l.Create(ctx, env("alice", 0))
	require.NoError(t, err)

	k, err := q.Kitty(ctx, 0)
	require.NoError(t, err, "not-found results must not be cached")
	require.Equal(t, kitty.OwnerID("alice"), k.Owner)
}

func TestQuery_ListAndCount(t *testing.T) {
	ctx := context.Background()
	l, q := newQueryLedger(t, time.Minute)

	for i := range 5 {
		_, err := l.Create(ctx, env("alice", uint32(i)))
		require.NoError(t, err)
	}

	n, err := q.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, kitty.AssetID(5), n)

	tests := []struct {
		name          string
		offset, limit int
		want          []kitty.AssetID
	}{
		{name: "all", offset: 0, limit: 0, want: []kitty.AssetID{0, 1, 2, 3, 4}},
		{name: "page", offset: 1, limit: 2, want: []kitty.AssetID{1, 2}},
		{name: "tail", offset: 3, limit: 10, want: []kitty.AssetID{3, 4}},
		{name: "past end", offset: 7, limit: 2, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := q.List(ctx, tt.offset, tt.limit)
			require.NoError(t, err)
			var ids []kitty.AssetID
			for _, k := range list {
				ids = append(ids, k.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}

	_, err = q.List(ctx, -1, 0)
	require.Error(t, err)
}

func TestQuery_CacheFollowsTransitions(t *testing.T) {
	for _, ttl := range []time.Duration{0, time.Minute} {
		t.Run(ttl.String(), func(t *testing.T) {
			ctx := context.Background()
			l, q := newQueryLedger(t, ttl)

			_, err := l.Create(ctx, env("alice", 0))
			require.NoError(t, err)

			owned, err := q.Owned(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, owned, 1)
			bobs, err := q.Owned(ctx, "bob")
			require.NoError(t, err)
			require.Empty(t, bobs)
			k, err := q.Kitty(ctx, 0)
			require.NoError(t, err)
			require.Equal(t, kitty.OwnerID("alice"), k.Owner)

			_, err = l.Transfer(ctx, env("alice", 1), "bob", 0)
			require.NoError(t, err)

			k, err = q.Kitty(ctx, 0)
			require.NoError(t, err)
			require.Equal(t, kitty.OwnerID("bob"), k.Owner)

			owned, err = q.Owned(ctx, "alice")
			require.NoError(t, err)
			require.Empty(t, owned)
			bobs, err = q.Owned(ctx, "bob")
			require.NoError(t, err)
			require.Len(t, bobs, 1)

			_, err = l.Create(ctx, env("bob", 2))
			require.NoError(t, err)
			bobs, err = q.Owned(ctx, "bob")
			require.NoError(t, err)
			require.Len(t, bobs, 2)
		})
	}
}

func TestQuery_CacheStats(t *testing.T) {
	ctx := context.Background()
	l, q := newQueryLedger(t, time.Minute)
	_, err := l.Create(ctx, env("alice", 0))
	require.NoError(t, err)

	for range 3 {
		_, err := q.Kitty(ctx, 0)
		require.NoError(t, err)
	}
	_, err = q.Owned(ctx, "alice")
	require.NoError(t, err)

	stats := q.CacheStats()
	require.Equal(t, uint64(2), stats["kitties"].Hits)
	require.Equal(t, uint64(1), stats["kitties"].Misses)
	require.Equal(t, uint64(1), stats["owned"].Misses)
	require.Equal(t, 1, stats["owned"].Items)
}

// hookStore runs hook once, right after a transaction reads key.
type hookStore struct {
	store.Store
	key  string
	hook func()
}

func (s *hookStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &hookTx{Tx: tx, s: s}, nil
}

type hookTx struct {
	store.Tx
	s *hookStore
}

func (tx *hookTx) Get(key string) ([]byte, bool, error) {
	v, ok, err := tx.Tx.Get(key)
	if key == tx.s.key && tx.s.hook != nil {
		hook := tx.s.hook
		tx.s.hook = nil
		hook()
	}
	return v, ok, err
}

func TestQuery_TransferDuringLoadIsNotCached(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, q *Query)
	}{
		{
			name: "kitty",
			check: func(t *testing.T, q *Query) {
				k, err := q.Kitty(context.Background(), 0)
				require.NoError(t, err)
				require.Equal(t, kitty.OwnerID("bob"), k.Owner)
			},
		},
		{
			name: "owned",
			check: func(t *testing.T, q *Query) {
				alices, err := q.Owned(context.Background(), "alice")
				require.NoError(t, err)
				require.Empty(t, alices)
				bobs, err := q.Owned(context.Background(), "bob")
				require.NoError(t, err)
				require.Len(t, bobs, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := store.NewMemoryStore()
			hs := &hookStore{Store: base, key: registry.OwnerKey(0)}
			q := NewQuery(hs, time.Minute)
			l := New(base, WithObserver(q))

			_, err := l.Create(ctx, env("alice", 0))
			require.NoError(t, err)

			hs.hook = func() {
				_, err := l.Transfer(ctx, env("alice", 1), "bob", 0)
				require.NoError(t, err)
			}
			// The first read races the transfer and may see either owner.
			if tt.name == "kitty" {
				_, err = q.Kitty(ctx, 0)
			} else {
				_, err = q.Owned(ctx, "alice")
			}
			require.NoError(t, err)
			require.Nil(t, hs.hook, "transfer ran during the load")

			for range 3 {
				tt.check(t, q)
			}
		})
	}
}
