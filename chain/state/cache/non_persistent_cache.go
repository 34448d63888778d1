package cache

import (
	"sync"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
)

// nonPersistentSlotCache provides a thread-safe cache for storing slots without persisting to disk. It fronts the
// persistent cache.
type nonPersistentSlotCache struct {
	slotLock  sync.RWMutex
	slotCache map[string]common.Hash
}

func newNonPersistentSlotCache() *nonPersistentSlotCache {
	return &nonPersistentSlotCache{
		slotCache: make(map[string]common.Hash),
	}
}

// GetSlotData checks if the specified data is stored in the cache, and if not, returns an error.
func (s *nonPersistentSlotCache) GetSlotData(block types.BlockRef, addr common.Address, slot types.Slot) (common.Hash, error) {
	key, err := slotKey(block, addr, slot)
	if err != nil {
		return common.Hash{}, ErrCacheMiss
	}

	s.slotLock.RLock()
	defer s.slotLock.RUnlock()
	if data, ok := s.slotCache[string(key)]; ok {
		return data, nil
	}
	return common.Hash{}, ErrCacheMiss
}

func (s *nonPersistentSlotCache) WriteSlotData(block types.BlockRef, addr common.Address, slot types.Slot, data common.Hash) error {
	key, err := slotKey(block, addr, slot)
	if err != nil {
		return err
	}

	s.slotLock.Lock()
	defer s.slotLock.Unlock()
	s.slotCache[string(key)] = data
	return nil
}

func (s *nonPersistentSlotCache) Close() error {
	return nil
}
