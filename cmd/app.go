package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/kitties/internal/chain"
	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/config"
	"github.com/zjrosen/kitties/internal/handler"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/processor"
	"github.com/zjrosen/kitties/internal/pubsub"
	"github.com/zjrosen/kitties/internal/sink"
	"github.com/zjrosen/kitties/internal/store"
	"github.com/zjrosen/kitties/internal/store/sqlite"
	"github.com/zjrosen/kitties/internal/tracing"
)

const closeTimeout = 5 * time.Second

// app is the command path every subcommand runs on: store, ledger, chain
// host, query cache, event sinks and the command processor.
type app struct {
	cfg       config.Config
	store     store.Store
	ledger    *ledger.Ledger
	host      *chain.Host
	query     *ledger.Query
	events    *pubsub.Broker[kitty.Event]
	commands  *pubsub.Broker[processor.CommandLogEvent]
	processor *processor.CommandProcessor
	tracing   *tracing.Provider
	redis     *sink.RedisSink
	cancel    context.CancelFunc
}

// newApp wires the stack from cfg and starts the processor.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) (err error) {
	cfg := a.cfg

	a.store, err = openStore(cfg.Storage)
	if err != nil {
		return err
	}

	a.tracing, err = tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}

	a.events = pubsub.NewBroker[kitty.Event]()
	a.commands = pubsub.NewBroker[processor.CommandLogEvent]()
	a.query = ledger.NewQuery(a.store, cfg.Cache.TTL)

	opts := []ledger.Option{
		ledger.WithMaxID(kitty.AssetID(cfg.Ledger.MaxKittyID)),
		ledger.WithObserver(a.query),
		ledger.WithObserver(sink.NewBrokerSink(a.events)),
	}
	if cfg.Events.RedisAddr != "" {
		client, err := sink.DialRedis(ctx, cfg.Events.RedisAddr)
		if err != nil {
			return err
		}
		a.redis = sink.NewRedisSink(client, cfg.Events.RedisStream, sink.WithMaxLen(cfg.Events.RedisMaxLen))
		opts = append(opts, ledger.WithObserver(a.redis))
	}
	a.ledger = ledger.New(a.store, opts...)

	seed, err := cfg.Chain.Seed()
	if err != nil {
		return err
	}
	a.host = chain.NewHost(a.store, seed, cfg.Chain.BlockSize)

	a.processor = processor.NewCommandProcessor(
		processor.WithQueueCapacity(cfg.Processor.QueueCapacity),
		processor.WithEventBus(a.commands),
		processor.WithMiddleware(
			processor.NewLoggingMiddleware(),
			tracing.NewTracingMiddleware(a.tracing.Tracer()),
			processor.NewSlowHandlerMiddleware(cfg.Processor.SlowThreshold),
			processor.NewCommandLogMiddleware(a.commands),
		),
	)
	handler.Register(a.processor, a.host, a.ledger)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go a.processor.Run(runCtx)
	if err := a.processor.WaitForReady(ctx); err != nil {
		return err
	}
	return nil
}

// submit runs cmd and returns its event. Rejections come back as errors.
func (a *app) submit(ctx context.Context, cmd command.Command) (kitty.Event, error) {
	res, err := a.processor.SubmitAndWait(ctx, cmd)
	if err != nil {
		return kitty.Event{}, err
	}
	if !res.Success {
		return kitty.Event{}, res.Error
	}
	ev, ok := res.Data.(kitty.Event)
	if !ok {
		return kitty.Event{}, fmt.Errorf("unexpected result %T for %s", res.Data, cmd.Type())
	}
	return ev, nil
}

// Close drains queued commands and releases everything newApp opened.
func (a *app) Close() error {
	var errs []error
	if a.processor != nil {
		a.processor.Drain()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.query != nil {
		for name, st := range a.query.CacheStats() {
			log.Debug(log.CatCache, "cache stats", "cache", name, "hits", st.Hits, "misses", st.Misses, "items", st.Items)
		}
	}
	if a.events != nil {
		if n := a.events.Dropped(); n > 0 {
			log.Warn(log.CatEvents, "slow subscribers missed events", "dropped", n)
		}
		a.events.Close()
	}
	if a.commands != nil {
		a.commands.Close()
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		errs = append(errs, a.tracing.Shutdown(ctx))
		cancel()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	err := errors.Join(errs...)
	if err != nil {
		log.ErrorErr(log.CatConfig, "shutdown incomplete", err)
	}
	return err
}

func openStore(s config.StorageConfig) (store.Store, error) {
	switch s.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		db, err := sqlite.NewDB(s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger database: %w", err)
		}
		return db, nil
	}
}

func tracingConfig(t config.TracingConfig) tracing.Config {
	path := t.FilePath
	if path == "" {
		path = config.DefaultTracesFilePath()
	}
	return tracing.Config{
		Enabled:      t.Enabled,
		Exporter:     t.Exporter,
		FilePath:     path,
		OTLPEndpoint: t.OTLPEndpoint,
		SampleRate:   t.SampleRate,
		ServiceName:  t.ServiceName,
	}
}
