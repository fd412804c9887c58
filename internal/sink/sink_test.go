package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/pubsub"
	"github.com/zjrosen/kitties/internal/store"
)

type fakeStream struct {
	adds     []*redis.XAddArgs
	err      error
	deadline bool
	closed   bool
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	_, f.deadline = ctx.Deadline()
	f.adds = append(f.adds, a)
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("0-1")
	}
	return cmd
}

func (f *fakeStream) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func TestStreamValues(t *testing.T) {
	tests := []struct {
		name string
		ev   kitty.Event
		want map[string]any
	}{
		{
			name: "created",
			ev:   kitty.Created("alice", 3),
			want: map[string]any{"kind": "created", "id": "3", "owner": "alice"},
		},
		{
			name: "transferred",
			ev:   kitty.Transferred("alice", "bob", 3),
			want: map[string]any{"kind": "transferred", "id": "3", "from": "alice", "to": "bob"},
		},
		{
			name: "bred",
			ev:   kitty.Bred(0, 1, 2, "carol"),
			want: map[string]any{"kind": "bred", "id": "2", "owner": "carol", "parent_1": "0", "parent_2": "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StreamValues(tt.ev, []byte("{}"))
			for k, v := range tt.want {
				require.Equal(t, v, got[k], k)
			}
			require.Equal(t, "{}", got["payload"])
			require.Len(t, got, len(tt.want)+3) // seq, block, op_index
		})
	}
}

func TestRedisSink_Append(t *testing.T) {
	fake := &fakeStream{}
	s := NewRedisSink(fake, "kitties:events", WithMaxLen(500))

	ev := kitty.Transferred("alice", "bob", 9)
	ev.Seq, ev.Block, ev.OpIndex = 4, 1, 2
	s.Observe(context.Background(), ev)

	require.Len(t, fake.adds, 1)
	args := fake.adds[0]
	require.Equal(t, "kitties:events", args.Stream)
	require.Equal(t, int64(500), args.MaxLen)
	require.True(t, args.Approx)
	require.True(t, fake.deadline, "writes are bounded by a timeout")

	values := args.Values.(map[string]any)
	var decoded kitty.Event
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	require.Equal(t, ev, decoded)
	require.Zero(t, s.Failed())

	require.NoError(t, s.Close())
	require.True(t, fake.closed)
}

func TestRedisSink_UnboundedStream(t *testing.T) {
	fake := &fakeStream{}
	require.NoError(t, NewRedisSink(fake, "s").Append(context.Background(), kitty.Created("alice", 0)))
	require.Zero(t, fake.adds[0].MaxLen)
	require.False(t, fake.adds[0].Approx)
}

func TestRedisSink_FailuresAreCountedNotReturned(t *testing.T) {
	fake := &fakeStream{err: errors.New("connection refused")}
	s := NewRedisSink(fake, "s")

	require.Error(t, s.Append(context.Background(), kitty.Created("alice", 0)))
	s.Observe(context.Background(), kitty.Created("alice", 0))
	s.Observe(context.Background(), kitty.Created("alice", 1))
	require.Equal(t, int64(2), s.Failed())
}

func TestRedisSink_IgnoresCancelledCallerContext(t *testing.T) {
	fake := &fakeStream{}
	s := NewRedisSink(fake, "s")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Observe(ctx, kitty.Created("alice", 0))
	require.Len(t, fake.adds, 1)
	require.Zero(t, s.Failed())
}

func TestBrokerSink_RepublishesCommittedEvents(t *testing.T) {
	broker := pubsub.NewBroker[kitty.Event]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	fake := &fakeStream{}
	l := ledger.New(store.NewMemoryStore(),
		ledger.WithObserver(NewBrokerSink(broker)),
		ledger.WithObserver(NewRedisSink(fake, "s")),
	)
	ev, err := l.Create(context.Background(), ledger.Env{Caller: "alice", Seed: []byte("seed")})
	require.NoError(t, err)

	select {
	case got := <-events:
		require.Equal(t, pubsub.LedgerEvent, got.Type)
		require.Equal(t, ev, got.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected ledger event on broker")
	}
	require.Len(t, fake.adds, 1)
}
