// Package command defines the intents submitted to the command processor:
// the Command interface, the kitty commands and the handler contract.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Command is an explicit intent entering the ledger.
type Command interface {
	// ID returns a unique identifier for tracing and correlation.
	ID() string
	// Type routes the command to its handler.
	Type() CommandType
	// Validate checks preconditions that need no ledger state.
	Validate() error
	// CreatedAt returns when the command was created.
	CreatedAt() time.Time
}

// CommandType identifies the kind of command for handler routing.
type CommandType string

const (
	// CmdCreateKitty mints a kitty for the caller.
	CmdCreateKitty CommandType = "create_kitty"
	// CmdTransferKitty moves a kitty to a new owner.
	CmdTransferKitty CommandType = "transfer_kitty"
	// CmdBreedKitty breeds a child from two parents.
	CmdBreedKitty CommandType = "breed_kitty"
)

func (ct CommandType) String() string { return string(ct) }

// CommandSource records which adapter submitted a command.
type CommandSource string

const (
	SourceCLI      CommandSource = "cli"
	SourceHTTP     CommandSource = "http"
	SourceInternal CommandSource = "internal" // fixtures and replays
)

func (cs CommandSource) String() string { return string(cs) }

// BaseCommand carries the identity and trace metadata every kitty command
// shares. Commands embed it and override Validate.
type BaseCommand struct {
	id        string
	kind      CommandType
	issued    time.Time
	source    CommandSource
	requestID string
	span      trace.SpanContext
}

// NewBaseCommand stamps a fresh UUID and the current time.
func NewBaseCommand(kind CommandType, source CommandSource) BaseCommand {
	return BaseCommand{
		id:     uuid.NewString(),
		kind:   kind,
		issued: time.Now(),
		source: source,
	}
}

func (b *BaseCommand) ID() string { return b.id }
func (b *BaseCommand) Type() CommandType { return b.kind }
func (b *BaseCommand) CreatedAt() time.Time { return b.issued }
func (b *BaseCommand) Source() CommandSource { return b.source }
func (b *BaseCommand) Validate() error { return nil }
func (b *BaseCommand) SetTraceID(id string) { b.requestID = id }
func (b *BaseCommand) SpanContext() trace.SpanContext { return b.span }

// SetSpanContext links the command to the span of the request that
// submitted it.
func (b *BaseCommand) SetSpanContext(sc trace.SpanContext) { b.span = sc }

// TraceID correlates log lines for this command. The OpenTelemetry trace
// wins over a request ID when both are set.
func (b *BaseCommand) TraceID() string {
	if b.span.IsValid() {
		return b.span.TraceID().String()
	}
	return b.requestID
}

// CommandResult is what a handler reports back. A rejected transition is
// Success=false with Error set; Data holds the committed kitty.Event.
type CommandResult struct {
	Success bool
	Error   error
	Data    any
}

// Handler executes one command type.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (*CommandResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) (*CommandResult, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (*CommandResult, error) {
	return f(ctx, cmd)
}

var (
	// ErrQueueFull is returned when the queue is at capacity or the
	// processor is not accepting commands.
	ErrQueueFull = errors.New("command queue is full")
	// ErrInvalidCommand wraps Validate failures.
	ErrInvalidCommand = errors.New("invalid command")
)
