// Package processor runs ledger commands one at a time in FIFO order on a
// single goroutine. Submitters may be concurrent; the processor is what makes
// transitions strictly sequential.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/pubsub"
)

// DefaultQueueCapacity is the default buffer size for the command queue.
const DefaultQueueCapacity = 1000

// ErrUnknownCommandType is returned when no handler is registered for a command.
var ErrUnknownCommandType = errors.New("unknown command type")

// ErrNotRunning is returned by SubmitAndWait when the processor stopped before
// the command completed.
var ErrNotRunning = errors.New("command processor is not running")

// Option configures the CommandProcessor.
type Option func(*CommandProcessor)

// WithQueueCapacity sets the command queue buffer capacity.
func WithQueueCapacity(capacity int) Option {
	return func(p *CommandProcessor) {
		if capacity > 0 {
			p.queueCapacity = capacity
		}
	}
}

// WithEventBus sets the broker that receives a CommandLogEvent for commands
// rejected before reaching a handler.
func WithEventBus(bus *pubsub.Broker[CommandLogEvent]) Option {
	return func(p *CommandProcessor) {
		p.eventBus = bus
	}
}

// WithMiddleware adds middleware applied to every handler registered later.
// The first middleware is the outermost wrapper.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(p *CommandProcessor) {
		p.middlewares = append(p.middlewares, middlewares...)
	}
}

// CommandProcessor processes commands sequentially in FIFO order.
type CommandProcessor struct {
	queue         chan queueItem
	queueCapacity int

	handlers    map[command.CommandType]command.Handler
	middlewares []Middleware
	eventBus    *pubsub.Broker[CommandLogEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// submitMu orders queue sends against the close in Drain.
	submitMu sync.RWMutex
	running  atomic.Bool
	started  atomic.Bool
	readyCh  chan struct{}

	processedCount atomic.Int64
	errorCount     atomic.Int64
}

type queueItem struct {
	cmd      command.Command
	resultCh chan *command.CommandResult // nil for fire-and-forget Submit
}

// NewCommandProcessor creates a new CommandProcessor with the given options.
func NewCommandProcessor(opts ...Option) *CommandProcessor {
	p := &CommandProcessor{
		queueCapacity: DefaultQueueCapacity,
		handlers:      make(map[command.CommandType]command.Handler),
		readyCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan queueItem, p.queueCapacity)
	return p
}

// RegisterHandler registers a handler for a command type, wrapped with the
// configured middleware. Must be called before Run.
func (p *CommandProcessor) RegisterHandler(cmdType command.CommandType, handler command.Handler) {
	p.handlers[cmdType] = ChainMiddleware(handler, p.middlewares...)
}

// Run processes commands until ctx is cancelled, Stop is called or Drain
// empties the queue. Only the first call runs; later calls return immediately.
func (p *CommandProcessor) Run(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	p.running.Store(true)
	close(p.readyCh)
	log.Info(log.CatProc, "command processor started", "capacity", p.queueCapacity)

	defer func() {
		p.running.Store(false)
		p.wg.Done()
		log.Info(log.CatProc, "command processor stopped",
			"processed", p.processedCount.Load(), "errors", p.errorCount.Load())
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.queue:
			if !ok {
				return
			}
			p.processItem(item)
		}
	}
}

// WaitForReady blocks until Run has started accepting commands.
func (p *CommandProcessor) WaitForReady(ctx context.Context) error {
	select {
	case <-p.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues a command without waiting for it. Returns
// command.ErrQueueFull if the queue is at capacity or the processor is not
// running.
func (p *CommandProcessor) Submit(cmd command.Command) error {
	return p.enqueue(queueItem{cmd: cmd})
}

// SubmitAndWait enqueues a command and waits for its result.
func (p *CommandProcessor) SubmitAndWait(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	resultCh := make(chan *command.CommandResult, 1)
	if err := p.enqueue(queueItem{cmd: cmd, resultCh: resultCh}); err != nil {
		return nil, err
	}

	select {
	case res, ok := <-resultCh:
		if !ok {
			return nil, ErrNotRunning
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrNotRunning
	}
}

func (p *CommandProcessor) enqueue(item queueItem) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if !p.running.Load() {
		return command.ErrQueueFull
	}
	select {
	case p.queue <- item:
		return nil
	default:
		log.Warn(log.CatProc, "command queue full", "command_type", item.cmd.Type().String())
		return command.ErrQueueFull
	}
}

// Stop cancels processing and waits for the loop to exit. Queued commands
// are not processed.
func (p *CommandProcessor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Drain stops accepting commands, processes everything already queued and
// waits for the loop to exit.
func (p *CommandProcessor) Drain() {
	p.submitMu.Lock()
	if !p.running.Load() {
		p.submitMu.Unlock()
		return
	}
	p.running.Store(false)
	close(p.queue)
	p.submitMu.Unlock()

	p.wg.Wait()
}

// IsRunning returns true if the processor is currently accepting commands.
func (p *CommandProcessor) IsRunning() bool {
	return p.running.Load()
}

// ProcessedCount returns the total number of commands processed.
func (p *CommandProcessor) ProcessedCount() int64 {
	return p.processedCount.Load()
}

// ErrorCount returns the number of commands that did not succeed.
func (p *CommandProcessor) ErrorCount() int64 {
	return p.errorCount.Load()
}

// QueueLength returns the current number of pending commands.
func (p *CommandProcessor) QueueLength() int {
	return len(p.queue)
}

func (p *CommandProcessor) processItem(item queueItem) {
	result := p.processCommand(item.cmd)

	p.processedCount.Add(1)
	if !result.Success {
		p.errorCount.Add(1)
	}

	if item.resultCh != nil {
		item.resultCh <- result
		close(item.resultCh)
	}
}

// processCommand validates, routes and executes a command. Errors always come
// back inside the result.
func (p *CommandProcessor) processCommand(cmd command.Command) (result *command.CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			log.ErrorErr(log.CatProc, "command handler panicked", err,
				"command_id", cmd.ID(), "command_type", cmd.Type().String())
			p.emitRejected(cmd, err)
			result = &command.CommandResult{Success: false, Error: err}
		}
	}()

	if err := cmd.Validate(); err != nil {
		p.emitRejected(cmd, err)
		return &command.CommandResult{Success: false, Error: err}
	}

	handler, ok := p.handlers[cmd.Type()]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownCommandType, cmd.Type())
		p.emitRejected(cmd, err)
		return &command.CommandResult{Success: false, Error: err}
	}

	res, err := handler.Handle(p.ctx, cmd)
	if err != nil {
		return &command.CommandResult{Success: false, Error: err}
	}
	if res == nil {
		return &command.CommandResult{Success: true}
	}
	return res
}

// emitRejected publishes a CommandLogEvent for a command that never reached
// its handler.
func (p *CommandProcessor) emitRejected(cmd command.Command, err error) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(pubsub.CommandEvent, CommandLogEvent{
		CommandID:   cmd.ID(),
		CommandType: cmd.Type(),
		Source:      sourceOf(cmd),
		Success:     false,
		Error:       err,
		Timestamp:   time.Now(),
		TraceID:     traceIDOf(cmd),
	})
}
