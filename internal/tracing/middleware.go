package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/processor"
)

// Span attribute keys.
const (
	AttrCommandID     = "command.id"
	AttrCommandType   = "command.type"
	AttrCommandSource = "command.source"
	AttrCaller        = "kitty.caller"
	AttrKittyID       = "kitty.id"
	AttrEventKind     = "kitty.event"
	AttrEventSeq      = "kitty.event.seq"
	AttrBlock         = "chain.block"
	AttrOpIndex       = "chain.op_index"
	AttrRejected      = "kitty.rejected"
)

// SpanPrefixCommand prefixes command span names, e.g. "command.create_kitty".
const SpanPrefixCommand = "command."

// NewTracingMiddleware opens a span around every handled command. A nil
// tracer makes it a pass-through.
func NewTracingMiddleware(tracer trace.Tracer) processor.Middleware {
	return func(next command.Handler) command.Handler {
		if tracer == nil {
			return next
		}
		return command.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			ctx = restoreSpanContext(ctx, cmd)

			ctx, span := tracer.Start(ctx, SpanPrefixCommand+cmd.Type().String(),
				trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandID, cmd.ID()),
				attribute.String(AttrCommandType, cmd.Type().String()),
			)
			if s, ok := cmd.(interface{ Source() command.CommandSource }); ok {
				span.SetAttributes(attribute.String(AttrCommandSource, s.Source().String()))
			}
			if caller := callerOf(cmd); caller != "" {
				span.SetAttributes(attribute.String(AttrCaller, caller.String()))
			}

			result, err := next.Handle(ctx, cmd)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result != nil && !result.Success:
				span.SetAttributes(attribute.Bool(AttrRejected, true))
				if result.Error != nil {
					span.RecordError(result.Error)
					span.SetStatus(codes.Error, result.Error.Error())
				} else {
					span.SetStatus(codes.Error, "command failed without error details")
				}
			default:
				if result != nil {
					if ev, ok := result.Data.(kitty.Event); ok {
						span.SetAttributes(eventAttributes(ev)...)
					}
				}
				span.SetStatus(codes.Ok, "")
			}
			return result, err
		})
	}
}

func eventAttributes(ev kitty.Event) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrKittyID, int64(ev.ID)),
		attribute.String(AttrEventKind, string(ev.Kind)),
		attribute.Int64(AttrEventSeq, int64(ev.Seq)), //nolint:gosec // sequence numbers stay far below 2^63
		attribute.Int64(AttrBlock, int64(ev.Block)),  //nolint:gosec // block numbers stay far below 2^63
		attribute.Int64(AttrOpIndex, int64(ev.OpIndex)),
	}
}

func callerOf(cmd command.Command) kitty.OwnerID {
	switch c := cmd.(type) {
	case *command.CreateKittyCommand:
		return c.Caller
	case *command.TransferKittyCommand:
		return c.Caller
	case *command.BreedKittyCommand:
		return c.Caller
	default:
		return ""
	}
}

// restoreSpanContext parents the command span under the span context the
// command carries, e.g. one extracted from an incoming HTTP request.
func restoreSpanContext(ctx context.Context, cmd command.Command) context.Context {
	if c, ok := cmd.(interface{ SpanContext() trace.SpanContext }); ok {
		if sc := c.SpanContext(); sc.IsValid() {
			return trace.ContextWithRemoteSpanContext(ctx, sc)
		}
	}
	return ctx
}
