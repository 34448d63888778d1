package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// BlockRef pins a storage query to a point in the chain's history. It is either a numeric block height, a symbolic
// tag (latest, earliest, pending, safe, finalized) or a block hash (EIP-1898). The zero value references nothing and
// must be populated before use.
type BlockRef struct {
	ref rpc.BlockNumberOrHash
}

// NewBlockRefFromNumber creates a BlockRef for the given block height.
func NewBlockRefFromNumber(height uint64) BlockRef {
	number := rpc.BlockNumber(height)
	return BlockRef{ref: rpc.BlockNumberOrHashWithNumber(number)}
}

// NewBlockRefFromTag creates a BlockRef for a symbolic block number such as rpc.LatestBlockNumber.
func NewBlockRefFromTag(tag rpc.BlockNumber) BlockRef {
	return BlockRef{ref: rpc.BlockNumberOrHashWithNumber(tag)}
}

// NewBlockRefFromHash creates a BlockRef for the block with the given hash.
func NewBlockRefFromHash(hash common.Hash) BlockRef {
	return BlockRef{ref: rpc.BlockNumberOrHashWithHash(hash, false)}
}

// ParseBlockRef parses a block reference from a string. Accepted forms are decimal heights ("17000000"), hex
// heights ("0x1036640", leading zeros allowed), tags ("latest", "finalized", ...) and 32-byte block hashes.
func ParseBlockRef(s string) (BlockRef, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BlockRef{}, errors.New("block reference cannot be empty")
	}

	// Decimal heights are not understood by the RPC layer, so handle them first.
	if height, err := strconv.ParseUint(s, 10, 64); err == nil {
		if height > math.MaxInt64 {
			return BlockRef{}, errors.Errorf("invalid block reference %q: height exceeds int64", s)
		}
		return NewBlockRefFromNumber(height), nil
	}

	// Hex heights may carry leading zeros, which the RPC layer would reject. Anything hash-sized is left to it.
	if digits, ok := strings.CutPrefix(s, "0x"); ok && len(digits) > 0 && len(digits) < 2*common.HashLength {
		height, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return BlockRef{}, errors.Wrapf(err, "invalid block reference %q", s)
		}
		if height > math.MaxInt64 {
			return BlockRef{}, errors.Errorf("invalid block reference %q: height exceeds int64", s)
		}
		return NewBlockRefFromNumber(height), nil
	}

	// Everything else (tags and hashes) is parsed the way JSON-RPC servers parse it.
	var ref rpc.BlockNumberOrHash
	if err := ref.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
		return BlockRef{}, errors.Wrapf(err, "invalid block reference %q", s)
	}
	return BlockRef{ref: ref}, nil
}

// IsZero indicates whether the BlockRef was never populated.
func (b BlockRef) IsZero() bool {
	return b.ref.BlockNumber == nil && b.ref.BlockHash == nil
}

// Number returns the block number (or tag) referenced, if this is not a hash reference.
func (b BlockRef) Number() (rpc.BlockNumber, bool) {
	return b.ref.Number()
}

// Hash returns the block hash referenced, if this is a hash reference.
func (b BlockRef) Hash() (common.Hash, bool) {
	return b.ref.Hash()
}

// IsTag indicates whether the reference is a symbolic tag which the node resolves at query time. Note that
// "earliest" resolves to height zero and is treated as a plain height.
func (b BlockRef) IsTag() bool {
	number, ok := b.ref.Number()
	return ok && number < 0
}

// IsImmutable indicates whether the state referenced can never change: fixed heights and block hashes are immutable,
// tags such as "latest" are not.
func (b BlockRef) IsImmutable() bool {
	return !b.IsZero() && !b.IsTag()
}

// Equal indicates whether both references point at the same block by construction. Two references to the same
// block through different forms (e.g. a height and its hash) are not considered equal.
func (b BlockRef) Equal(other BlockRef) bool {
	if number, ok := b.ref.Number(); ok {
		otherNumber, otherOk := other.ref.Number()
		return otherOk && number == otherNumber
	}
	if hash, ok := b.ref.Hash(); ok {
		otherHash, otherOk := other.ref.Hash()
		return otherOk && hash == otherHash
	}
	return other.IsZero()
}

// RPCArg returns the value to send as the block parameter of a JSON-RPC request: a hex quantity or tag for numbers,
// and an EIP-1898 object for hashes.
func (b BlockRef) RPCArg() any {
	if number, ok := b.ref.Number(); ok {
		return number.String()
	}
	return b.ref
}

// String returns a human-readable representation: decimal heights, tag names or the hex block hash.
func (b BlockRef) String() string {
	if number, ok := b.ref.Number(); ok {
		if number >= 0 {
			return strconv.FormatInt(number.Int64(), 10)
		}
		return number.String()
	}
	if hash, ok := b.ref.Hash(); ok {
		return hash.Hex()
	}
	return ""
}

// MarshalJSON encodes the reference as the string produced by String.
func (b BlockRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON decodes a reference from a JSON number, a string accepted by ParseBlockRef, or an EIP-1898 object.
func (b *BlockRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("block reference cannot be empty")
	}

	switch data[0] {
	case '{':
		var ref rpc.BlockNumberOrHash
		if err := ref.UnmarshalJSON(data); err != nil {
			return errors.WithStack(err)
		}
		b.ref = ref
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		// An empty string leaves the reference unset, which lets configuration files omit blocks.
		if s == "" {
			*b = BlockRef{}
			return nil
		}
		parsed, err := ParseBlockRef(s)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	default:
		parsed, err := ParseBlockRef(string(data))
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	}
}

// Set implements pflag.Value.
func (b *BlockRef) Set(value string) error {
	parsed, err := ParseBlockRef(value)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Type implements pflag.Value.
func (b *BlockRef) Type() string {
	return "block"
}
