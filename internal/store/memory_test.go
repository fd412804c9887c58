package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CommitMakesWritesVisible(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put("a", []byte("1")))

	// Another transaction must not see the pending write.
	other, err := s.Begin(ctx)
	require.NoError(t, err)
	_, ok, err := other.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, other.Rollback())

	require.NoError(t, tx.Commit())

	read, err := s.Begin(ctx)
	require.NoError(t, err)
	v, ok, err := read.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
}

func TestMemoryStore_ReadYourWrites(t *testing.T) {
	s := NewMemoryStore()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.Put("k", []byte("v1")))
	require.NoError(t, tx.Put("k", []byte("v2")))

	v, ok, err := tx.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), v)
}

func TestMemoryStore_RollbackDiscards(t *testing.T) {
	s := NewMemoryStore()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.Put("k", []byte("v")))
	require.NoError(t, tx.Rollback())

	require.Equal(t, 0, s.Len())
}

func TestMemoryStore_RollbackAfterCommitIsNoop(t *testing.T) {
	s := NewMemoryStore()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Put("k", []byte("v")))
	require.NoError(t, tx.Commit())

	require.NoError(t, tx.Rollback())
	require.Equal(t, 1, s.Len())
}

func TestMemoryStore_UseAfterFinish(t *testing.T) {
	s := NewMemoryStore()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.ErrorIs(t, tx.Put("k", nil), ErrTxDone)
	require.ErrorIs(t, tx.Commit(), ErrTxDone)
	_, _, err = tx.Get("k")
	require.ErrorIs(t, err, ErrTxDone)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	buf := []byte("abc")
	require.NoError(t, tx.Put("k", buf))
	buf[0] = 'x'
	require.NoError(t, tx.Commit())

	snap := s.Snapshot()
	require.Equal(t, []byte("abc"), snap["k"])

	snap["k"][0] = 'z'
	require.Equal(t, []byte("abc"), s.Snapshot()["k"])
}

func TestMemoryStore_BeginHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Begin(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ReadsSeeStateAtBegin(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seed, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, seed.Put("count", []byte{1}))
	require.NoError(t, seed.Commit())

	reader, err := s.Begin(ctx)
	require.NoError(t, err)
	defer reader.Rollback()

	writer, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, writer.Put("count", []byte{2}))
	require.NoError(t, writer.Put("owner", []byte("bob")))
	require.NoError(t, writer.Commit())

	v, ok, err := reader.Get("count")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1}, v)
	_, ok, err = reader.Get("owner")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, []byte{2}, s.Snapshot()["count"])
}
