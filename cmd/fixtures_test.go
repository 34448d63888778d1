package cmd

import (
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

/* This file is exclusively for test fixtures. */

// testContractAddress is the contract audited by the test fixtures.
const testContractAddress = "0x00000000219ab540356cBB839Cbe05303d7705Fa"

// storageNode is an "eth" namespace which serves storage for block heights, and fails reads at blocks in failing.
// If set, onRead is invoked at the start of every storage read.
type storageNode struct {
	lock    sync.Mutex
	storage map[uint64]map[common.Hash]common.Hash
	failing map[uint64]bool
	reads   int
	onRead  func()
}

func (n *storageNode) ChainId() (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(1)), nil
}

func (n *storageNode) GetStorageAt(address common.Address, slot common.Hash, block rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	if n.onRead != nil {
		n.onRead()
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	n.reads++
	number, ok := block.Number()
	if !ok || number < 0 {
		return nil, errors.New("only block heights are served")
	}
	if n.failing[uint64(number)] {
		return nil, errors.New("header not found")
	}
	value := n.storage[uint64(number)][slot]
	return value.Bytes(), nil
}

func (n *storageNode) readCount() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.reads
}

// newStorageNode serves a storageNode over HTTP in which slot 1 changes from 0x01 to 0x02 between blocks 100 and 200,
// and slot 0 holds 0xaa at both. It returns the node and its URL.
func newStorageNode(t *testing.T) (*storageNode, string) {
	node := &storageNode{
		storage: map[uint64]map[common.Hash]common.Hash{
			100: {
				types.NewSlot(0).Hash(): common.HexToHash("0xaa"),
				types.NewSlot(1).Hash(): common.HexToHash("0x01"),
			},
			200: {
				types.NewSlot(0).Hash(): common.HexToHash("0xaa"),
				types.NewSlot(1).Hash(): common.HexToHash("0x02"),
			},
		},
		failing: make(map[uint64]bool),
	}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", node))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return node, httpServer.URL
}

// newTestProjectConfig returns a valid configuration auditing slots [0, 1] between blocks 100 and 200 at url.
func newTestProjectConfig(url string) *config.ProjectConfig {
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.RPC.URL = url
	projectConfig.RPC.RequestTimeout = 5
	projectConfig.Audit.Address = testContractAddress
	projectConfig.Audit.BlockA = types.NewBlockRefFromNumber(100)
	projectConfig.Audit.BlockB = types.NewBlockRefFromNumber(200)
	projectConfig.Audit.Slots = []types.Slot{types.NewSlot(0), types.NewSlot(1)}
	return projectConfig
}
