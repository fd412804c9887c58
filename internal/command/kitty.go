package command

import (
	"fmt"

	"github.com/zjrosen/kitties/internal/kitty"
)

// CreateKittyCommand mints a new kitty for Caller.
type CreateKittyCommand struct {
	BaseCommand
	Caller kitty.OwnerID
}

// NewCreateKittyCommand creates a CreateKittyCommand.
func NewCreateKittyCommand(source CommandSource, caller kitty.OwnerID) *CreateKittyCommand {
	return &CreateKittyCommand{
		BaseCommand: NewBaseCommand(CmdCreateKitty, source),
		Caller:      caller,
	}
}

// Validate checks that a caller is set.
func (c *CreateKittyCommand) Validate() error {
	return requireCaller(c.Caller)
}

// TransferKittyCommand moves kitty KittyID from Caller to To.
type TransferKittyCommand struct {
	BaseCommand
	Caller  kitty.OwnerID
	To      kitty.OwnerID
	KittyID kitty.AssetID
}

// NewTransferKittyCommand creates a TransferKittyCommand.
func NewTransferKittyCommand(source CommandSource, caller, to kitty.OwnerID, id kitty.AssetID) *TransferKittyCommand {
	return &TransferKittyCommand{
		BaseCommand: NewBaseCommand(CmdTransferKitty, source),
		Caller:      caller,
		To:          to,
		KittyID:     id,
	}
}

// Validate checks that caller and recipient are set.
func (c *TransferKittyCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if c.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidCommand)
	}
	return nil
}

// BreedKittyCommand breeds a child of Parent1 and Parent2 for Caller.
type BreedKittyCommand struct {
	BaseCommand
	Caller  kitty.OwnerID
	Parent1 kitty.AssetID
	Parent2 kitty.AssetID
}

// NewBreedKittyCommand creates a BreedKittyCommand.
func NewBreedKittyCommand(source CommandSource, caller kitty.OwnerID, parent1, parent2 kitty.AssetID) *BreedKittyCommand {
	return &BreedKittyCommand{
		BaseCommand: NewBaseCommand(CmdBreedKitty, source),
		Caller:      caller,
		Parent1:     parent1,
		Parent2:     parent2,
	}
}

// Validate checks that a caller is set. Parent equality is a ledger rule and
// is reported by the ledger as kitty.ErrSameParent.
func (c *BreedKittyCommand) Validate() error {
	return requireCaller(c.Caller)
}

func requireCaller(caller kitty.OwnerID) error {
	if caller == "" {
		return fmt.Errorf("%w: caller is required", ErrInvalidCommand)
	}
	return nil
}
