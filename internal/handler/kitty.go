// Package handler binds the kitty commands to the ledger. Each handler asks
// the chain host for the next transition environment and applies one ledger
// transition with it.
package handler

import (
	"context"
	"fmt"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/ledger"
	"github.com/zjrosen/kitties/internal/processor"
)

// EnvSource hands out transition environments. *chain.Host implements it.
type EnvSource interface {
	Next(ctx context.Context, caller kitty.OwnerID) (ledger.Env, error)
}

// Transitions is the write side of the ledger. *ledger.Ledger implements it.
type Transitions interface {
	Create(ctx context.Context, env ledger.Env) (kitty.Event, error)
	Transfer(ctx context.Context, env ledger.Env, to kitty.OwnerID, id kitty.AssetID) (kitty.Event, error)
	Breed(ctx context.Context, env ledger.Env, parent1, parent2 kitty.AssetID) (kitty.Event, error)
}

// Register installs the three kitty handlers on p.
func Register(p *processor.CommandProcessor, host EnvSource, l Transitions) {
	p.RegisterHandler(command.CmdCreateKitty, NewCreateKittyHandler(host, l))
	p.RegisterHandler(command.CmdTransferKitty, NewTransferKittyHandler(host, l))
	p.RegisterHandler(command.CmdBreedKitty, NewBreedKittyHandler(host, l))
}

// result maps a transition outcome onto a command result. Precondition
// failures become unsuccessful results; anything else is a handler error.
func result(ev kitty.Event, err error) (*command.CommandResult, error) {
	if err == nil {
		return &command.CommandResult{Success: true, Data: ev}, nil
	}
	if kitty.IsRejection(err) {
		return &command.CommandResult{Success: false, Error: err}, nil
	}
	return nil, err
}

// CreateKittyHandler handles CmdCreateKitty.
type CreateKittyHandler struct {
	host   EnvSource
	ledger Transitions
}

// NewCreateKittyHandler creates a CreateKittyHandler.
func NewCreateKittyHandler(host EnvSource, l Transitions) *CreateKittyHandler {
	return &CreateKittyHandler{host: host, ledger: l}
}

// Handle applies a create transition.
func (h *CreateKittyHandler) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	c, ok := cmd.(*command.CreateKittyCommand)
	if !ok {
		return nil, fmt.Errorf("create handler got %T", cmd)
	}
	env, err := h.host.Next(ctx, c.Caller)
	if err != nil {
		return nil, err
	}
	return result(h.ledger.Create(ctx, env))
}

// TransferKittyHandler handles CmdTransferKitty.
type TransferKittyHandler struct {
	host   EnvSource
	ledger Transitions
}

// NewTransferKittyHandler creates a TransferKittyHandler.
func NewTransferKittyHandler(host EnvSource, l Transitions) *TransferKittyHandler {
	return &TransferKittyHandler{host: host, ledger: l}
}

// Handle applies a transfer transition.
func (h *TransferKittyHandler) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	c, ok := cmd.(*command.TransferKittyCommand)
	if !ok {
		return nil, fmt.Errorf("transfer handler got %T", cmd)
	}
	env, err := h.host.Next(ctx, c.Caller)
	if err != nil {
		return nil, err
	}
	return result(h.ledger.Transfer(ctx, env, c.To, c.KittyID))
}

// BreedKittyHandler handles CmdBreedKitty.
type BreedKittyHandler struct {
	host   EnvSource
	ledger Transitions
}

// NewBreedKittyHandler creates a BreedKittyHandler.
func NewBreedKittyHandler(host EnvSource, l Transitions) *BreedKittyHandler {
	return &BreedKittyHandler{host: host, ledger: l}
}

// Handle applies a breed transition.
func (h *BreedKittyHandler) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	c, ok := cmd.(*command.BreedKittyCommand)
	if !ok {
		return nil, fmt.Errorf("breed handler got %T", cmd)
	}
	env, err := h.host.Next(ctx, c.Caller)
	if err != nil {
		return nil, err
	}
	return result(h.ledger.Breed(ctx, env, c.Parent1, c.Parent2))
}
