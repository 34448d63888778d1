package state

import (
	"context"
	"testing"
	"time"

	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/chain/state/cache"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
	block100     = gethrpc.BlockNumberOrHashWithNumber(100)
	block200     = gethrpc.BlockNumberOrHashWithNumber(200)
)

// TestStorageAtBlockParameters verifies heights, tags and hashes are sent in the form nodes expect.
func TestStorageAtBlockParameters(t *testing.T) {
	service := newEthService(1)
	blockHash := common.HexToHash("0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6")
	service.setStorage(block100, types.NewSlot(3).Hash(), common.HexToHash("0x0a").Bytes())
	service.setStorage(gethrpc.BlockNumberOrHashWithNumber(gethrpc.LatestBlockNumber), types.NewSlot(3).Hash(), common.HexToHash("0x0b").Bytes())
	service.setStorage(gethrpc.BlockNumberOrHashWithHash(blockHash, false), types.NewSlot(3).Hash(), common.HexToHash("0x0c").Bytes())
	reader := newTestReader(t, service, nil)
	ctx := context.Background()

	value, err := reader.StorageAt(ctx, testContract, types.NewSlot(3), types.NewBlockRefFromNumber(100))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0a"), value)

	value, err = reader.StorageAt(ctx, testContract, types.NewSlot(3), types.NewBlockRefFromTag(gethrpc.LatestBlockNumber))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0b"), value)

	value, err = reader.StorageAt(ctx, testContract, types.NewSlot(3), types.NewBlockRefFromHash(blockHash))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0c"), value)

	require.Equal(t, 3, service.requestCount())
	assert.Equal(t, testContract, service.requests[0].Address)
	assert.Equal(t, types.NewSlot(3).Hash(), service.requests[0].Slot)
	hash, ok := service.requests[2].Block.Hash()
	assert.True(t, ok)
	assert.Equal(t, blockHash, hash)

	// Unset references are rejected without a request
	_, err = reader.StorageAt(ctx, testContract, types.NewSlot(3), types.BlockRef{})
	assert.Error(t, err)
	assert.Equal(t, 3, service.requestCount())
}

// TestStorageAtResultLength verifies short results are left-padded and oversized results are rejected.
func TestStorageAtResultLength(t *testing.T) {
	service := newEthService(1)
	service.setStorage(block100, types.NewSlot(0).Hash(), hexutil.Bytes{0x01, 0x02})
	service.setStorage(block100, types.NewSlot(1).Hash(), make(hexutil.Bytes, 33))
	reader := newTestReader(t, service, nil)

	value, err := reader.StorageAt(context.Background(), testContract, types.NewSlot(0), types.NewBlockRefFromNumber(100))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0102"), value)

	_, err = reader.StorageAt(context.Background(), testContract, types.NewSlot(1), types.NewBlockRefFromNumber(100))
	assert.ErrorContains(t, err, "33 bytes")
}

// TestStorageAtNodeError verifies node errors are returned to the caller.
func TestStorageAtNodeError(t *testing.T) {
	service := newEthService(1)
	service.failBlock(block100, errPrunedState)
	reader := newTestReader(t, service, nil)

	_, err := reader.StorageAt(context.Background(), testContract, types.NewSlot(0), types.NewBlockRefFromNumber(100))
	assert.ErrorContains(t, err, "missing trie node")
}

// TestStorageAtCache verifies immutable references are served from the cache after the first read, while tags are
// always read from the endpoint.
func TestStorageAtCache(t *testing.T) {
	service := newEthService(1)
	service.setStorage(block100, types.NewSlot(7).Hash(), common.HexToHash("0x07").Bytes())
	slotCache, err := cache.NewPersistentSlotCache(context.Background(), t.TempDir(), "http://cached-node:8545")
	require.NoError(t, err)
	reader := newTestReader(t, service, slotCache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		value, err := reader.StorageAt(ctx, testContract, types.NewSlot(7), types.NewBlockRefFromNumber(100))
		require.NoError(t, err)
		assert.Equal(t, common.HexToHash("0x07"), value)
	}
	assert.Equal(t, 1, service.requestCount())

	latest := types.NewBlockRefFromTag(gethrpc.LatestBlockNumber)
	for i := 0; i < 3; i++ {
		_, err := reader.StorageAt(ctx, testContract, types.NewSlot(7), latest)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, service.requestCount())
}

// TestConnect verifies the chain ID is recorded on connection.
func TestConnect(t *testing.T) {
	reader := newTestReader(t, newEthService(11155111), nil)
	assert.Nil(t, reader.ChainID())

	require.NoError(t, reader.connect(context.Background()))
	assert.EqualValues(t, 11155111, reader.ChainID().Int64())
}

// TestNewRPCStorageReaderUnreachable verifies an endpoint which cannot be reached fails construction.
func TestNewRPCStorageReaderUnreachable(t *testing.T) {
	rpcConfig := config.RPCConfig{
		URL:            "http://127.0.0.1:1",
		PoolSize:       1,
		RequestTimeout: 2,
		Attempts:       1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := NewRPCStorageReader(ctx, rpcConfig, t.TempDir(), nil)
	assert.ErrorContains(t, err, "unable to query chain ID from http://127.0.0.1:1")

	rpcConfig.URL = "unsupported://endpoint"
	_, err = NewRPCStorageReader(ctx, rpcConfig, "", nil)
	assert.Error(t, err)
}

// TestAuditOverRPC audits slots [0, 1] between blocks 100 and 200 through the JSON-RPC reader, with a pruned block
// standing in for read failures.
func TestAuditOverRPC(t *testing.T) {
	service := newEthService(1)
	service.setStorage(block100, types.NewSlot(0).Hash(), common.HexToHash("0xaa").Bytes())
	service.setStorage(block200, types.NewSlot(0).Hash(), common.HexToHash("0xaa").Bytes())
	service.setStorage(block200, types.NewSlot(1).Hash(), common.HexToHash("0x01").Bytes())
	reader := newTestReader(t, service, nil)

	auditor := audit.NewAuditor(reader, nil)
	slots := []types.Slot{types.NewSlot(0), types.NewSlot(1)}
	report := auditor.AuditDiff(context.Background(), testContract, slots, types.NewBlockRefFromNumber(100), types.NewBlockRefFromNumber(200))

	assert.Equal(t, []types.Slot{types.NewSlot(1)}, report.ChangedSlots)
	assert.Equal(t, crypto.Keccak256Hash(common.LeftPadBytes([]byte{1}, 32)).Hex(), report.Fingerprint.String())
	assert.Zero(t, report.FailedReads())
	assert.Equal(t, 4, service.requestCount())

	// A pruned first block turns every read at it into a zero value
	service.failBlock(block100, errPrunedState)
	report = auditor.AuditDiff(context.Background(), testContract, slots, types.NewBlockRefFromNumber(100), types.NewBlockRefFromNumber(200))
	assert.Equal(t, 2, report.FailedReads())
	assert.Equal(t, []types.Slot{types.NewSlot(0), types.NewSlot(1)}, report.ChangedSlots)
}
