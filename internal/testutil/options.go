package testutil

import (
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/processor"
)

type stackConfig struct {
	maxID       kitty.AssetID
	blockSize   uint32
	sqlite      bool
	middlewares []processor.Middleware
}

func defaultStackConfig() stackConfig {
	return stackConfig{maxID: kitty.MaxAssetID, blockSize: 4}
}

// StackOption configures NewStack.
type StackOption func(*stackConfig)

// MaxID caps the registry size.
func MaxID(id kitty.AssetID) StackOption {
	return func(c *stackConfig) { c.maxID = id }
}

// BlockSize sets how many operations the chain host puts in one block.
func BlockSize(n uint32) StackOption {
	return func(c *stackConfig) { c.blockSize = n }
}

// SQLite backs the stack with a migrated sqlite database instead of memory.
func SQLite() StackOption {
	return func(c *stackConfig) { c.sqlite = true }
}

// Middleware wraps every handler, first outermost.
func Middleware(m ...processor.Middleware) StackOption {
	return func(c *stackConfig) { c.middlewares = append(c.middlewares, m...) }
}
