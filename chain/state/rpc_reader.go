package state

import (
	"context"
	"math/big"

	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/chain/state/cache"
	"github.com/casks-mutters/state-delta-audit/chain/state/rpc"
	"github.com/casks-mutters/state-delta-audit/logging"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

var _ audit.StorageReader = (*RPCStorageReader)(nil)

/*
RPCStorageReader reads contract storage from a remote Ethereum JSON-RPC endpoint. Reads at fixed heights or block
hashes may optionally be served from a SlotCache; reads at block tags always go to the endpoint.
*/
type RPCStorageReader struct {
	clientPool *rpc.ClientPool
	cache      cache.SlotCache
	chainID    *big.Int
	logger     *logging.Logger
}

/*
NewRPCStorageReader dials the configured endpoint and verifies it is reachable by querying its chain ID. An error is
returned if the endpoint cannot be dialed or does not answer. If cacheDirectory is non-empty, slot values are cached
on disk within it.
*/
func NewRPCStorageReader(ctx context.Context, rpcConfig config.RPCConfig, cacheDirectory string, logger *logging.Logger) (*RPCStorageReader, error) {
	clientPool, err := rpc.NewClientPool(ctx, rpcConfig.URL, rpcConfig.PoolSize, rpcConfig.Attempts, rpcConfig.RequestTimeoutDuration())
	if err != nil {
		return nil, err
	}

	var slotCache cache.SlotCache
	if cacheDirectory != "" {
		slotCache, err = cache.NewPersistentSlotCache(ctx, cacheDirectory, rpcConfig.URL)
		if err != nil {
			clientPool.Close()
			return nil, err
		}
	}

	reader := newRPCStorageReader(clientPool, slotCache, logger)
	if err = reader.connect(ctx); err != nil {
		_ = reader.Close()
		return nil, err
	}
	return reader, nil
}

// newRPCStorageReader creates an RPCStorageReader over an existing client pool, without checking connectivity.
func newRPCStorageReader(clientPool *rpc.ClientPool, slotCache cache.SlotCache, logger *logging.Logger) *RPCStorageReader {
	if logger == nil {
		logger = logging.GlobalLogger
	}
	return &RPCStorageReader{
		clientPool: clientPool,
		cache:      slotCache,
		logger:     logger.NewSubLogger("module", logging.RPC_SERVICE),
	}
}

// connect queries eth_chainId, recording the result.
func (r *RPCStorageReader) connect(ctx context.Context) error {
	var chainID hexutil.Big
	err := r.clientPool.ExecuteRequestBlocking(ctx, &chainID, "eth_chainId")
	if err != nil {
		return errors.Wrapf(err, "unable to query chain ID from %s", r.clientPool.Endpoint())
	}
	r.chainID = chainID.ToInt()
	return nil
}

// ChainID returns the chain ID reported by the endpoint when the reader connected.
func (r *RPCStorageReader) ChainID() *big.Int {
	if r.chainID == nil {
		return nil
	}
	return new(big.Int).Set(r.chainID)
}

/*
StorageAt returns the value stored in the given slot of a contract at the given block, via eth_getStorageAt.
Note that Ethereum RPC will return zero for slots that have never been written to or are associated with undeployed
contracts. Errors may be network errors, node errors (e.g. a pruned or unknown block) or a cancelled context.
*/
func (r *RPCStorageReader) StorageAt(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) (common.Hash, error) {
	if block.IsZero() {
		return common.Hash{}, errors.New("block reference is not set")
	}

	cacheable := r.cache != nil && block.IsImmutable()
	if cacheable {
		data, err := r.cache.GetSlotData(block, address, slot)
		if err == nil {
			r.logger.Trace("Served slot ", slot, " at block ", block, " from the cache")
			return data, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Debug("Slot cache lookup failed", err)
		}
	}

	var result hexutil.Bytes
	err := r.clientPool.ExecuteRequestBlocking(ctx, &result, "eth_getStorageAt", address, slot.Hash(), block.RPCArg())
	if err != nil {
		return common.Hash{}, err
	}
	if len(result) > common.HashLength {
		return common.Hash{}, errors.Errorf("eth_getStorageAt returned %d bytes, expected at most %d", len(result), common.HashLength)
	}
	data := common.BytesToHash(result)

	if cacheable {
		if err = r.cache.WriteSlotData(block, address, slot, data); err != nil {
			r.logger.Warn("Unable to cache slot ", slot, " at block ", block, err)
		}
	}
	return data, nil
}

// Close releases the underlying clients and cache.
func (r *RPCStorageReader) Close() error {
	r.clientPool.Close()
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}
