package audit

import (
	"bytes"
	"context"
	"strings"

	"github.com/casks-mutters/state-delta-audit/logging"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

/* This file is exclusively for test fixtures. */

// storageRead records a single call made to a fixtureReader.
type storageRead struct {
	Slot  types.Slot
	Block string
}

// fixtureReader is an offline StorageReader backed by per-block slot values. Unknown slots read as zero, and reads
// listed in failures return an error instead.
type fixtureReader struct {
	values   map[string]map[types.Slot]common.Hash
	failures map[string]map[types.Slot]error
	reads    []storageRead
}

func newFixtureReader() *fixtureReader {
	return &fixtureReader{
		values:   make(map[string]map[types.Slot]common.Hash),
		failures: make(map[string]map[types.Slot]error),
	}
}

func (f *fixtureReader) set(block types.BlockRef, slot types.Slot, value common.Hash) {
	if _, ok := f.values[block.String()]; !ok {
		f.values[block.String()] = make(map[types.Slot]common.Hash)
	}
	f.values[block.String()][slot] = value
}

func (f *fixtureReader) fail(block types.BlockRef, slot types.Slot, err error) {
	if _, ok := f.failures[block.String()]; !ok {
		f.failures[block.String()] = make(map[types.Slot]error)
	}
	f.failures[block.String()][slot] = err
}

func (f *fixtureReader) StorageAt(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) (common.Hash, error) {
	f.reads = append(f.reads, storageRead{Slot: slot, Block: block.String()})
	if err := ctx.Err(); err != nil {
		return common.Hash{}, errors.WithStack(err)
	}
	if err, ok := f.failures[block.String()][slot]; ok {
		return common.Hash{0xde, 0xad}, errors.WithStack(err)
	}
	return f.values[block.String()][slot], nil
}

// newBufferedLogger creates a logger which writes structured events to the returned buffer.
func newBufferedLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewLogger(zerolog.InfoLevel)
	logger.AddWriter(&buf, logging.STRUCTURED, false)
	return logger, &buf
}

// countWarnings counts the structured warning events within a log buffer.
func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"warn"`)
}
