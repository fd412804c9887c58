package ledger

import "github.com/zjrosen/kitties/internal/kitty"

// Env is the host context of one transition: the authenticated caller, the
// entropy seed of the current block and the position of the operation in it.
type Env struct {
	Caller  kitty.OwnerID
	Seed    []byte
	Block   uint64
	OpIndex uint32
}
