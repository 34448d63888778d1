package state

import (
	"context"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/casks-mutters/state-delta-audit/chain/state/cache"
	"github.com/casks-mutters/state-delta-audit/chain/state/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

/* This file is exclusively for test fixtures. */

// storageRequest records the parameters of a single eth_getStorageAt call.
type storageRequest struct {
	Address common.Address
	Slot    common.Hash
	Block   gethrpc.BlockNumberOrHash
}

// ethService is an offline-only "eth" namespace served in-process. It stores slot values per block number or hash.
type ethService struct {
	lock     sync.Mutex
	chainID  int64
	storage  map[string]map[common.Hash]hexutil.Bytes
	failures map[string]error
	requests []storageRequest
}

func newEthService(chainID int64) *ethService {
	return &ethService{
		chainID:  chainID,
		storage:  make(map[string]map[common.Hash]hexutil.Bytes),
		failures: make(map[string]error),
	}
}

// serviceBlockKey keys a block parameter the way the fixture stores it.
func serviceBlockKey(block gethrpc.BlockNumberOrHash) string {
	return block.String()
}

func (s *ethService) setStorage(block gethrpc.BlockNumberOrHash, slot common.Hash, value hexutil.Bytes) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := serviceBlockKey(block)
	if _, ok := s.storage[key]; !ok {
		s.storage[key] = make(map[common.Hash]hexutil.Bytes)
	}
	s.storage[key][slot] = value
}

func (s *ethService) failBlock(block gethrpc.BlockNumberOrHash, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[serviceBlockKey(block)] = err
}

func (s *ethService) requestCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.requests)
}

func (s *ethService) ChainId() (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(s.chainID)), nil
}

func (s *ethService) GetStorageAt(address common.Address, slot common.Hash, block gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.requests = append(s.requests, storageRequest{Address: address, Slot: slot, Block: block})
	key := serviceBlockKey(block)
	if err, ok := s.failures[key]; ok {
		return nil, err
	}
	if value, ok := s.storage[key][slot]; ok {
		return value, nil
	}
	return make(hexutil.Bytes, common.HashLength), nil
}

// newTestReader serves service over HTTP and returns an RPCStorageReader dialed to it, without checking
// connectivity.
func newTestReader(t *testing.T, service *ethService, slotCache cache.SlotCache) *RPCStorageReader {
	server := gethrpc.NewServer()
	require.NoError(t, server.RegisterName("eth", service))
	httpServer := httptest.NewServer(server)

	clientPool, err := rpc.NewClientPool(context.Background(), httpServer.URL, 1, 1, 5*time.Second)
	require.NoError(t, err)

	reader := newRPCStorageReader(clientPool, slotCache, nil)
	t.Cleanup(func() {
		_ = reader.Close()
		httpServer.Close()
		server.Stop()
	})
	return reader
}

// errPrunedState mimics the error a non-archive node returns for old blocks.
var errPrunedState = errors.New("missing trie node")
