package handler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/chain"
	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/processor"
	"github.com/zjrosen/kitties/internal/store"
)

type harness struct {
	proc   *processor.CommandProcessor
	ledger *ledger.Ledger
	host   *chain.Host
	store  *store.MemoryStore
}

func newHarness(t *testing.T, opts ...ledger.Option) *harness {
	t.Helper()
	s := store.NewMemoryStore()
	l := ledger.New(s, opts...)
	host := chain.NewHost(s, []byte("genesis"), 4)

	p := processor.NewCommandProcessor()
	Register(p, host, l)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	require.NoError(t, p.WaitForReady(context.Background()))
	t.Cleanup(func() {
		cancel()
		p.Stop()
	})
	return &harness{proc: p, ledger: l, host: host, store: s}
}

func (h *harness) submit(t *testing.T, cmd command.Command) *command.CommandResult {
	t.Helper()
	res, err := h.proc.SubmitAndWait(context.Background(), cmd)
	require.NoError(t, err)
	return res
}

func eventOf(t *testing.T, res *command.CommandResult) kitty.Event {
	t.Helper()
	require.True(t, res.Success, "unexpected failure: %v", res.Error)
	ev, ok := res.Data.(kitty.Event)
	require.True(t, ok, "result data is %T", res.Data)
	return ev
}

func TestHandlers_Scenario(t *testing.T) {
	h := newHarness(t)

	ev := eventOf(t, h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice")))
	require.Equal(t, kitty.Created("alice", 0).Kind, ev.Kind)
	require.Equal(t, kitty.AssetID(0), ev.ID)
	require.Equal(t, kitty.OwnerID("alice"), ev.Owner)

	ev = eventOf(t, h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice")))
	require.Equal(t, kitty.AssetID(1), ev.ID)

	ev = eventOf(t, h.submit(t, command.NewBreedKittyCommand(command.SourceCLI, "alice", 0, 1)))
	require.Equal(t, kitty.EventBred, ev.Kind)
	require.Equal(t, kitty.AssetID(2), ev.ID)
	require.Equal(t, kitty.AssetID(0), ev.Parent1)
	require.Equal(t, kitty.AssetID(1), ev.Parent2)
	require.Equal(t, kitty.OwnerID("alice"), ev.Owner)

	ev = eventOf(t, h.submit(t, command.NewTransferKittyCommand(command.SourceCLI, "alice", "bob", 2)))
	require.Equal(t, kitty.EventTransferred, ev.Kind)
	require.Equal(t, kitty.OwnerID("alice"), ev.From)
	require.Equal(t, kitty.OwnerID("bob"), ev.To)

	// Four operations fill block zero; the head has moved to block one.
	head, err := h.host.Head(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), head.Number)
	require.Zero(t, head.OpIndex)
	require.Equal(t, uint64(3), ev.Seq)
	require.Equal(t, uint64(0), ev.Block)
	require.Equal(t, uint32(3), ev.OpIndex)
}

func TestHandlers_RejectionsAreResults(t *testing.T) {
	h := newHarness(t)
	eventOf(t, h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice")))
	eventOf(t, h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice")))

	tests := []struct {
		name string
		cmd  command.Command
		want error
	}{
		{name: "transfer unknown", cmd: command.NewTransferKittyCommand(command.SourceCLI, "alice", "bob", 9), want: kitty.ErrNotFound},
		{name: "transfer not owner", cmd: command.NewTransferKittyCommand(command.SourceCLI, "bob", "carol", 0), want: kitty.ErrNotOwner},
		{name: "breed same parent", cmd: command.NewBreedKittyCommand(command.SourceCLI, "alice", 1, 1), want: kitty.ErrSameParent},
		{name: "breed unknown parent", cmd: command.NewBreedKittyCommand(command.SourceCLI, "alice", 0, 7), want: kitty.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.store.Snapshot()
			res := h.submit(t, tt.cmd)
			require.False(t, res.Success)
			require.ErrorIs(t, res.Error, tt.want)

			// Only the chain head moves on a rejected transition.
			after := h.store.Snapshot()
			delete(before, "chain/head")
			delete(after, "chain/head")
			require.Equal(t, before, after)
		})
	}
}

func TestHandlers_OverflowIsRejection(t *testing.T) {
	h := newHarness(t, ledger.WithMaxID(1))
	eventOf(t, h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice")))

	res := h.submit(t, command.NewCreateKittyCommand(command.SourceCLI, "alice"))
	require.False(t, res.Success)
	require.ErrorIs(t, res.Error, kitty.ErrIndexOverflow)
}

func TestHandlers_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	h := newHarness(t)

	const n = 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[kitty.AssetID]bool)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.proc.SubmitAndWait(context.Background(), command.NewCreateKittyCommand(command.SourceHTTP, "alice"))
			if err != nil || !res.Success {
				return
			}
			mu.Lock()
			ids[res.Data.(kitty.Event).ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, n)
	for i := range kitty.AssetID(n) {
		require.True(t, ids[i], "missing id %d", i)
	}
}

type failingHost struct{ err error }

func (f failingHost) Next(context.Context, kitty.OwnerID) (ledger.Env, error) {
	return ledger.Env{}, f.err
}

func TestHandlers_HostFailureIsHandlerError(t *testing.T) {
	boom := errors.New("head unavailable")
	l := ledger.New(store.NewMemoryStore())

	handlers := []command.Handler{
		NewCreateKittyHandler(failingHost{boom}, l),
		NewTransferKittyHandler(failingHost{boom}, l),
		NewBreedKittyHandler(failingHost{boom}, l),
	}
	cmds := []command.Command{
		command.NewCreateKittyCommand(command.SourceCLI, "alice"),
		command.NewTransferKittyCommand(command.SourceCLI, "alice", "bob", 0),
		command.NewBreedKittyCommand(command.SourceCLI, "alice", 0, 1),
	}
	for i, hd := range handlers {
		res, err := hd.Handle(context.Background(), cmds[i])
		require.ErrorIs(t, err, boom)
		require.Nil(t, res)
	}
}

func TestHandlers_WrongCommandType(t *testing.T) {
	l := ledger.New(store.NewMemoryStore())
	_, err := NewTransferKittyHandler(failingHost{}, l).Handle(context.Background(),
		command.NewCreateKittyCommand(command.SourceCLI, "alice"))
	require.Error(t, err)
}
