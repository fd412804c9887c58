package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/log"
)

// DefaultWriteTimeout bounds one XADD so a slow Redis cannot stall the
// command processor.
const DefaultWriteTimeout = 2 * time.Second

// StreamClient is the subset of the Redis client the sink uses.
// *redis.Client implements it.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisSink appends every committed event to a Redis stream. Delivery is
// best effort: the ledger commit has already happened, so a failed XADD is
// logged and counted, never returned.
type RedisSink struct {
	client  StreamClient
	stream  string
	maxLen  int64
	timeout time.Duration
	failed  atomic.Int64
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithMaxLen caps the stream approximately (XADD MAXLEN ~).
func WithMaxLen(n int64) RedisOption {
	return func(s *RedisSink) { s.maxLen = n }
}

// NewRedisSink creates a sink over client.
func NewRedisSink(client StreamClient, stream string, opts ...RedisOption) *RedisSink {
	s := &RedisSink{client: client, stream: stream, timeout: DefaultWriteTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	log.Info(log.CatEvents, "connected to redis", "addr", addr)
	return client, nil
}

// Observe appends ev to the stream.
func (s *RedisSink) Observe(ctx context.Context, ev kitty.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.Append(ctx, ev); err != nil {
		n := s.failed.Add(1)
		log.ErrorErr(log.CatEvents, "failed to append event to redis stream", err,
			"stream", s.stream, "seq", ev.Seq, "failed_total", n)
	}
}

// Append writes ev and returns the stream entry error, if any.
func (s *RedisSink) Append(ctx context.Context, ev kitty.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: StreamValues(ev, payload),
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.client.XAdd(ctx, args).Err()
}

// Failed returns how many appends have failed.
func (s *RedisSink) Failed() int64 {
	return s.failed.Load()
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// StreamValues flattens ev into stream entry fields. "payload" holds the
// full JSON event for consumers that want one field.
func StreamValues(ev kitty.Event, payload []byte) map[string]any {
	values := map[string]any{
		"seq":      strconv.FormatUint(ev.Seq, 10),
		"kind":     string(ev.Kind),
		"id":       ev.ID.String(),
		"block":    strconv.FormatUint(ev.Block, 10),
		"op_index": strconv.FormatUint(uint64(ev.OpIndex), 10),
		"payload":  string(payload),
	}
	switch ev.Kind {
	case kitty.EventCreated:
		values["owner"] = ev.Owner.String()
	case kitty.EventTransferred:
		values["from"] = ev.From.String()
		values["to"] = ev.To.String()
	case kitty.EventBred:
		values["owner"] = ev.Owner.String()
		values["parent_1"] = ev.Parent1.String()
		values["parent_2"] = ev.Parent2.String()
	}
	return values
}
