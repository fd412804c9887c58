package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
)

// Builder accumulates ledger operations and submits them in order.
type Builder struct {
	t     *testing.T
	stack *Stack
	steps []command.Command
}

// NewBuilder creates a builder for the given stack.
func NewBuilder(t *testing.T, stack *Stack) *Builder {
	t.Helper()
	return &Builder{t: t, stack: stack}
}

// WithKitty creates a kitty owned by owner.
func (b *Builder) WithKitty(owner kitty.OwnerID) *Builder {
	b.steps = append(b.steps, command.NewCreateKittyCommand(command.SourceInternal, owner))
	return b
}

// WithKitties creates n kitties owned by owner.
func (b *Builder) WithKitties(owner kitty.OwnerID, n int) *Builder {
	for range n {
		b.WithKitty(owner)
	}
	return b
}

// WithTransfer moves id from caller to to.
func (b *Builder) WithTransfer(caller, to kitty.OwnerID, id kitty.AssetID) *Builder {
	b.steps = append(b.steps, command.NewTransferKittyCommand(command.SourceInternal, caller, to, id))
	return b
}

// WithBred breeds a child of p1 and p2 for caller.
func (b *Builder) WithBred(caller kitty.OwnerID, p1, p2 kitty.AssetID) *Builder {
	b.steps = append(b.steps, command.NewBreedKittyCommand(command.SourceInternal, caller, p1, p2))
	return b
}

// Build submits every step and fails the test on the first one that does not
// succeed. It returns the committed events in order.
func (b *Builder) Build() []kitty.Event {
	b.t.Helper()
	events := make([]kitty.Event, 0, len(b.steps))
	for i, cmd := range b.steps {
		res, err := b.stack.Processor.SubmitAndWait(context.Background(), cmd)
		require.NoError(b.t, err, "step %d (%s)", i, cmd.Type())
		require.True(b.t, res.Success, "step %d (%s): %v", i, cmd.Type(), res.Error)
		ev, ok := res.Data.(kitty.Event)
		require.True(b.t, ok, "step %d result data is %T", i, res.Data)
		events = append(events, ev)
	}
	b.steps = nil
	return events
}
