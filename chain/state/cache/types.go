package cache

import (
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned when a slot value is not present in a cache.
var ErrCacheMiss = errors.New("not found in cache")

// ErrMutableBlock is returned when a slot value pinned to a block tag such as "latest" is written to a cache. Only
// values at fixed heights or block hashes can never change, so only those may be cached.
var ErrMutableBlock = errors.New("values at mutable block references cannot be cached")

// SlotCache stores storage slot values keyed by block, contract address and slot.
type SlotCache interface {
	// GetSlotData returns the cached value of a slot, or ErrCacheMiss.
	GetSlotData(block types.BlockRef, addr common.Address, slot types.Slot) (common.Hash, error)

	// WriteSlotData stores the value of a slot.
	WriteSlotData(block types.BlockRef, addr common.Address, slot types.Slot, data common.Hash) error

	// Close releases any resources held by the cache, persisting pending writes first.
	Close() error
}

// slotKey builds the key a slot value is stored under: "<block>|<address>|<slot>". Blocks are keyed by decimal
// height or by hash.
func slotKey(block types.BlockRef, addr common.Address, slot types.Slot) ([]byte, error) {
	if !block.IsImmutable() {
		return nil, errors.WithStack(ErrMutableBlock)
	}
	return []byte(block.String() + "|" + addr.Hex() + "|" + slot.String()), nil
}
