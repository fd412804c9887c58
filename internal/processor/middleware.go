package processor

import (
	"context"
	"time"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/pubsub"
)

// Middleware wraps a handler to add cross-cutting behavior.
type Middleware func(command.Handler) command.Handler

// ChainMiddleware applies middlewares so that the first one is outermost:
// ChainMiddleware(h, logging, slow) yields logging(slow(h)).
func ChainMiddleware(handler command.Handler, middlewares ...Middleware) command.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// outcome folds a handler's two failure channels into one error.
func outcome(result *command.CommandResult, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if result != nil && !result.Success {
		return false, result.Error
	}
	return true, nil
}

// NewLoggingMiddleware logs every command with its duration and outcome.
// Domain rejections (not owner, not found, ...) log at warn; handler errors
// log at error.
func NewLoggingMiddleware() Middleware {
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			duration := time.Since(start)

			fields := []any{
				"command_id", cmd.ID(),
				"command_type", cmd.Type().String(),
				"trace_id", traceIDOf(cmd),
				"source", string(sourceOf(cmd)),
				"duration", duration,
			}

			switch {
			case err != nil:
				log.ErrorErr(log.CatProc, "command failed", err, fields...)
			case result != nil && !result.Success:
				msg := ""
				if result.Error != nil {
					msg = result.Error.Error()
				}
				log.Warn(log.CatProc, "command rejected", append(fields, "error", msg)...)
			default:
				log.Debug(log.CatProc, "command completed", fields...)
			}

			return result, err
		})
	}
}

// DefaultSlowThreshold is the default duration above which a handler is logged as slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// NewSlowHandlerMiddleware logs a warning when a handler takes longer than
// threshold. It never aborts the handler: a half-applied transition is worse
// than a slow one.
func NewSlowHandlerMiddleware(threshold time.Duration) Middleware {
	if threshold <= 0 {
		threshold = DefaultSlowThreshold
	}

	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			if duration := time.Since(start); duration > threshold {
				log.Warn(log.CatProc, "handler exceeded time threshold",
					"command_id", cmd.ID(),
					"command_type", cmd.Type().String(),
					"trace_id", traceIDOf(cmd),
					"duration", duration,
					"threshold", threshold,
				)
			}
			return result, err
		})
	}
}

// NewCommandLogMiddleware publishes a CommandLogEvent for every handled
// command. A nil bus makes it a pass-through.
func NewCommandLogMiddleware(bus pubsub.Publisher[CommandLogEvent]) Middleware {
	return func(next command.Handler) command.Handler {
		if bus == nil {
			return next
		}
		return command.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			success, cmdErr := outcome(result, err)
			bus.Publish(pubsub.CommandEvent, CommandLogEvent{
				CommandID:   cmd.ID(),
				CommandType: cmd.Type(),
				Source:      sourceOf(cmd),
				Success:     success,
				Error:       cmdErr,
				Duration:    time.Since(start),
				Timestamp:   time.Now(),
				TraceID:     traceIDOf(cmd),
			})
			return result, err
		})
	}
}
