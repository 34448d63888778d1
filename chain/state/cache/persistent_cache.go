package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/casks-mutters/state-delta-audit/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// slotBucket is the bbolt bucket slot values are stored in.
var slotBucket = []byte("slots")

// persistentCache provides a thread-safe cache for storing slots that persists the cache to disk. Reads are served
// from memory first.
type persistentCache struct {
	memCache *nonPersistentSlotCache
	db       *bbolt.DB

	pendingWriteMutex sync.Mutex
	pendingWrites     []pendingWrite
	flushThreshold    int

	closeOnce sync.Once
	closeErr  error
}

type pendingWrite struct {
	key   []byte
	value []byte
}

// NewPersistentSlotCache opens (or creates) the cache file for rpcURL within cacheDir. The cache is closed when ctx
// is cancelled, or when Close is called.
func NewPersistentSlotCache(ctx context.Context, cacheDir string, rpcURL string) (SlotCache, error) {
	return newPersistentCache(ctx, cacheDir, rpcURL)
}

func newPersistentCache(ctx context.Context, cacheDir string, rpcURL string) (*persistentCache, error) {
	err := utils.MakeDirectory(cacheDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	cacheFile := filepath.Join(cacheDir, getCacheFilename(rpcURL))
	db, err := bbolt.Open(cacheFile, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open cache file %s", cacheFile)
	}

	// create default bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}

	p := &persistentCache{
		memCache:       newNonPersistentSlotCache(),
		db:             db,
		flushThreshold: 25,
		pendingWrites:  []pendingWrite{},
	}

	// close db if context cancelled
	go func() {
		<-ctx.Done()
		_ = p.Close()
	}()

	return p, nil
}

func (p *persistentCache) getFromPersist(key []byte) (common.Hash, bool, error) {
	var (
		data  common.Hash
		found bool
	)
	err := p.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(slotBucket).Get(key)
		if value == nil {
			return nil
		}
		if len(value) != common.HashLength {
			return errors.Errorf("corrupt cache entry %q: expected %d bytes, got %d", key, common.HashLength, len(value))
		}
		found = true
		data = common.BytesToHash(value)
		return nil
	})
	if err != nil {
		return common.Hash{}, false, errors.Wrap(err, "could not get value")
	}
	return data, found, nil
}

func (p *persistentCache) writeToPersist(key []byte, value []byte) error {
	p.pendingWriteMutex.Lock()
	defer p.pendingWriteMutex.Unlock()

	p.pendingWrites = append(p.pendingWrites, pendingWrite{key: key, value: value})
	if len(p.pendingWrites) >= p.flushThreshold {
		return p.flushWrites()
	}
	return nil
}

// flushWrites persists every pending write in a single transaction. The caller must hold pendingWriteMutex.
func (p *persistentCache) flushWrites() error {
	if len(p.pendingWrites) == 0 {
		return nil
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(slotBucket)
		for _, pw := range p.pendingWrites {
			err := bucket.Put(pw.key, pw.value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}
	p.pendingWrites = p.pendingWrites[:0]
	return nil
}

func (p *persistentCache) GetSlotData(block types.BlockRef, addr common.Address, slot types.Slot) (common.Hash, error) {
	data, err := p.memCache.GetSlotData(block, addr, slot)
	if err == nil {
		return data, nil
	}

	// check persistent cache
	key, err := slotKey(block, addr, slot)
	if err != nil {
		return common.Hash{}, ErrCacheMiss
	}
	data, exists, err := p.getFromPersist(key)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, ErrCacheMiss
	}
	return data, p.memCache.WriteSlotData(block, addr, slot, data)
}

func (p *persistentCache) WriteSlotData(block types.BlockRef, addr common.Address, slot types.Slot, data common.Hash) error {
	err := p.memCache.WriteSlotData(block, addr, slot, data)
	if err != nil {
		return err
	}

	key, err := slotKey(block, addr, slot)
	if err != nil {
		return err
	}
	return p.writeToPersist(key, data.Bytes())
}

func (p *persistentCache) Close() error {
	p.closeOnce.Do(func() {
		p.pendingWriteMutex.Lock()
		err := p.flushWrites()
		p.pendingWriteMutex.Unlock()

		closeErr := p.db.Close()
		if err == nil && closeErr != nil {
			err = errors.WithStack(closeErr)
		}
		p.closeErr = err
	})
	return p.closeErr
}

// getCacheFilename derives the cache file name from the RPC endpoint, so caches of different chains never mix.
func getCacheFilename(rpcURL string) string {
	h := sha256.New()
	h.Write([]byte(rpcURL))
	bs := h.Sum(nil)

	return fmt.Sprintf("%x.db", bs[0:8])
}
