package cache

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNonPersistentSlotCacheRace tests for race conditions
func TestNonPersistentSlotCacheRace(t *testing.T) {
	cache := newNonPersistentSlotCache()
	block := types.NewBlockRefFromNumber(1)
	numContracts := 3
	numObjects := 5
	writers := 10
	numWrites := 10_000
	readers := 10
	numReads := 10_000

	var wg sync.WaitGroup
	wg.Add(writers + readers)

	write := func(r *rand.Rand, writesRem int) {
		defer wg.Done()
		for writesRem > 0 {
			addr := common.BytesToAddress([]byte{byte(r.Uint32() % uint32(numContracts))})
			slot := types.NewSlot(uint64(r.Uint32() % uint32(numObjects)))
			err := cache.WriteSlotData(block, addr, slot, common.BytesToHash([]byte{byte(r.Uint32())}))
			assert.NoError(t, err)
			writesRem--
		}
	}

	read := func(r *rand.Rand, readsRem int) {
		defer wg.Done()
		for readsRem > 0 {
			addr := common.BytesToAddress([]byte{byte(r.Uint32() % uint32(numContracts))})
			slot := types.NewSlot(uint64(r.Uint32() % uint32(numObjects)))
			_, _ = cache.GetSlotData(block, addr, slot)
			readsRem--
		}
	}

	for i := 0; i < readers; i++ {
		go read(rand.New(rand.NewSource(int64(i))), numReads)
	}

	for i := 0; i < writers; i++ {
		go write(rand.New(rand.NewSource(int64(i))), numWrites)
	}
	wg.Wait()
}

// TestSlotCacheKeys verifies values are kept apart per block, address and slot, and that mutable blocks are refused.
func TestSlotCacheKeys(t *testing.T) {
	cache := newNonPersistentSlotCache()
	addr := common.HexToAddress("0x1234")
	other := common.HexToAddress("0x5678")
	blockA := types.NewBlockRefFromNumber(100)
	blockB := types.NewBlockRefFromHash(common.HexToHash("0xabcd"))
	value := common.HexToHash("0x01")

	require.NoError(t, cache.WriteSlotData(blockA, addr, types.NewSlot(1), value))

	data, err := cache.GetSlotData(blockA, addr, types.NewSlot(1))
	require.NoError(t, err)
	assert.Equal(t, value, data)

	_, err = cache.GetSlotData(blockB, addr, types.NewSlot(1))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = cache.GetSlotData(blockA, other, types.NewSlot(1))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = cache.GetSlotData(blockA, addr, types.NewSlot(2))
	assert.ErrorIs(t, err, ErrCacheMiss)

	latest := types.NewBlockRefFromTag(rpc.LatestBlockNumber)
	assert.ErrorIs(t, cache.WriteSlotData(latest, addr, types.NewSlot(1), value), ErrMutableBlock)
	_, err = cache.GetSlotData(latest, addr, types.NewSlot(1))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, cache.Close())
}

// TestPersistentSlotCache verifies values survive closing and reopening the cache, and that caches of different
// endpoints are kept in different files.
func TestPersistentSlotCache(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	addr := common.HexToAddress("0x1234")
	block := types.NewBlockRefFromNumber(17_000_000)

	cache, err := NewPersistentSlotCache(ctx, dir, "http://node-a")
	require.NoError(t, err)

	// Write enough values to trigger a flush, and some that remain pending until Close
	for i := uint64(0); i < 30; i++ {
		require.NoError(t, cache.WriteSlotData(block, addr, types.NewSlot(i), common.BigToHash(types.NewSlot(i+1).Uint256().ToBig())))
	}
	assert.ErrorIs(t, cache.WriteSlotData(types.NewBlockRefFromTag(rpc.FinalizedBlockNumber), addr, types.NewSlot(0), common.Hash{}), ErrMutableBlock)
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())

	cache, err = NewPersistentSlotCache(ctx, dir, "http://node-a")
	require.NoError(t, err)
	for i := uint64(0); i < 30; i++ {
		data, err := cache.GetSlotData(block, addr, types.NewSlot(i))
		require.NoError(t, err)
		assert.Equal(t, common.BigToHash(types.NewSlot(i+1).Uint256().ToBig()), data)
	}
	_, err = cache.GetSlotData(block, addr, types.NewSlot(30))
	assert.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, cache.Close())

	other, err := NewPersistentSlotCache(ctx, dir, "http://node-b")
	require.NoError(t, err)
	_, err = other.GetSlotData(block, addr, types.NewSlot(0))
	assert.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, other.Close())

	assert.NotEqual(t, getCacheFilename("http://node-a"), getCacheFilename("http://node-b"))
}

// TestPersistentSlotCacheContextClose verifies the cache is closed once its context is cancelled.
func TestPersistentSlotCacheContextClose(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	cache, err := newPersistentCache(ctx, dir, "http://node-a")
	require.NoError(t, err)
	require.NoError(t, cache.WriteSlotData(types.NewBlockRefFromNumber(1), common.Address{}, types.NewSlot(0), common.HexToHash("0x01")))

	cancel()
	assert.Eventually(t, func() bool {
		reopened, err := newPersistentCache(context.Background(), dir, "http://node-a")
		if err != nil {
			return false
		}
		defer reopened.Close()
		data, err := reopened.GetSlotData(types.NewBlockRefFromNumber(1), common.Address{}, types.NewSlot(0))
		return err == nil && data == common.HexToHash("0x01")
	}, 5*time.Second, 50*time.Millisecond)
}
