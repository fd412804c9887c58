package processor

import (
	"time"

	"github.com/zjrosen/kitties/internal/command"
)

// CommandLogEvent reports the outcome of one command. `kitties serve` prints
// the failures among them.
type CommandLogEvent struct {
	CommandID   string
	CommandType command.CommandType
	Source      command.CommandSource
	Success     bool
	// Error is nil on success.
	Error     error
	Duration  time.Duration
	Timestamp time.Time
	// TraceID is empty when tracing is disabled and no request id was set.
	TraceID string
}

func sourceOf(cmd command.Command) command.CommandSource {
	if s, ok := cmd.(interface{ Source() command.CommandSource }); ok {
		return s.Source()
	}
	return ""
}

func traceIDOf(cmd command.Command) string {
	if t, ok := cmd.(interface{ TraceID() string }); ok {
		return t.TraceID()
	}
	return ""
}
