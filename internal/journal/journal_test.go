package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/store"
)

func appendCommitted(t *testing.T, s store.Store, events ...kitty.Event) []kitty.Event {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	var out []kitty.Event
	for _, ev := range events {
		stored, err := Append(tx, ev)
		require.NoError(t, err)
		out = append(out, stored)
	}
	require.NoError(t, tx.Commit())
	return out
}

func TestAppend_AssignsSequentialNumbers(t *testing.T) {
	s := store.NewMemoryStore()

	first := appendCommitted(t, s, kitty.Created("alice", 0), kitty.Created("alice", 1))
	second := appendCommitted(t, s, kitty.Bred(0, 1, 2, "alice"))

	require.Equal(t, uint64(0), first[0].Seq)
	require.Equal(t, uint64(1), first[1].Seq)
	require.Equal(t, uint64(2), second[0].Seq)

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	n, err := Count(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
}

func TestAppend_RollbackLeavesNoTrace(t *testing.T) {
	s := store.NewMemoryStore()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	_, err = Append(tx, kitty.Created("alice", 0))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	require.Equal(t, 0, s.Len())
	events, err := List(context.Background(), s, 0, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestList_Ranges(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	ev := kitty.Transferred("alice", "bob", 2)
	ev.Block = 3
	ev.OpIndex = 1
	appendCommitted(t, s, kitty.Created("alice", 0), kitty.Created("alice", 1), kitty.Bred(0, 1, 2, "alice"), ev)

	tests := []struct {
		name  string
		from  uint64
		limit int
		want  []uint64
	}{
		{name: "all", from: 0, limit: 0, want: []uint64{0, 1, 2, 3}},
		{name: "offset", from: 2, limit: 0, want: []uint64{2, 3}},
		{name: "limited", from: 1, limit: 2, want: []uint64{1, 2}},
		{name: "limit past end", from: 3, limit: 10, want: []uint64{3}},
		{name: "from past end", from: 9, limit: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := List(ctx, s, tt.from, tt.limit)
			require.NoError(t, err)
			var seqs []uint64
			for _, e := range events {
				seqs = append(seqs, e.Seq)
			}
			require.Equal(t, tt.want, seqs)
		})
	}

	events, err := List(ctx, s, 3, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	require.Equal(t, kitty.EventTransferred, got.Kind)
	require.Equal(t, kitty.OwnerID("alice"), got.From)
	require.Equal(t, kitty.OwnerID("bob"), got.To)
	require.Equal(t, kitty.AssetID(2), got.ID)
	require.Equal(t, uint64(3), got.Block)
	require.Equal(t, uint32(1), got.OpIndex)
}
