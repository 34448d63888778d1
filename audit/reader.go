package audit

import (
	"context"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
)

// StorageReader describes the capability to fetch the raw 32-byte value of a contract storage slot at a given block.
// Implementations may fail for any reason (network errors, node errors, unknown blocks); the Auditor never
// propagates these failures.
type StorageReader interface {
	StorageAt(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) (common.Hash, error)
}

// StorageReaderFunc adapts an ordinary function to the StorageReader interface.
type StorageReaderFunc func(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) (common.Hash, error)

// StorageAt calls f(ctx, address, slot, block).
func (f StorageReaderFunc) StorageAt(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) (common.Hash, error) {
	return f(ctx, address, slot, block)
}
