package types

import (
	"bytes"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// DefaultSlotCount describes how many slots (starting at zero) are audited when no slot list is provided.
const DefaultSlotCount = 16

// Slot describes the index of a 32-byte storage slot of a contract. Slot indices span the full unsigned 256-bit range,
// which allows derived slots (e.g. mapping entries) to be audited as well. Slot values are comparable and can be used
// as map keys.
type Slot struct {
	value uint256.Int
}

// NewSlot creates a Slot from the provided unsigned integer.
func NewSlot(index uint64) Slot {
	var s Slot
	s.value.SetUint64(index)
	return s
}

// NewSlotFromHash creates a Slot from a 32-byte big-endian value, such as a keccak-derived storage key.
func NewSlotFromHash(hash common.Hash) Slot {
	var s Slot
	s.value.SetBytes32(hash[:])
	return s
}

// ParseSlot parses a slot index from a string. The string may be decimal, or carry a "0x", "0o" or "0b" prefix for
// hexadecimal, octal or binary input respectively. Negative values and values which do not fit in 256 bits are
// rejected.
func ParseSlot(s string) (Slot, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Slot{}, errors.New("slot index cannot be empty")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Slot{}, errors.Errorf("invalid slot index %q: must be an unsigned integer", s)
	}

	// Only explicit prefixes select another base, so "010" stays decimal rather than being read as octal.
	lowered := strings.ToLower(s)
	base := 10
	if strings.HasPrefix(lowered, "0x") || strings.HasPrefix(lowered, "0o") || strings.HasPrefix(lowered, "0b") {
		base = 0
	}
	parsed, ok := new(big.Int).SetString(lowered, base)
	if !ok {
		return Slot{}, errors.Errorf("invalid slot index %q", s)
	}

	var slot Slot
	if overflow := slot.value.SetFromBig(parsed); overflow {
		return Slot{}, errors.Errorf("invalid slot index %q: exceeds 256 bits", s)
	}
	return slot, nil
}

// ParseSlots parses a comma-separated list of slot indices, preserving order and duplicates.
func ParseSlots(s string) ([]Slot, error) {
	parts := strings.Split(s, ",")
	slots := make([]Slot, 0, len(parts))
	for _, part := range parts {
		slot, err := ParseSlot(part)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// SlotRange returns count consecutive slots beginning at start.
func SlotRange(start uint64, count uint64) []Slot {
	slots := make([]Slot, 0, count)
	for i := uint64(0); i < count; i++ {
		slots = append(slots, NewSlot(start+i))
	}
	return slots
}

// DefaultSlots returns the slots audited when none are specified.
func DefaultSlots() []Slot {
	return SlotRange(0, DefaultSlotCount)
}

// Bytes32 returns the slot index as a 32-byte big-endian integer.
func (s Slot) Bytes32() [32]byte {
	return s.value.Bytes32()
}

// Hash returns the slot index as the storage key expected by eth_getStorageAt.
func (s Slot) Hash() common.Hash {
	return common.Hash(s.value.Bytes32())
}

// Uint256 returns a copy of the slot index as a uint256.Int.
func (s Slot) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&s.value)
}

// String returns the decimal representation of the slot index.
func (s Slot) String() string {
	return s.value.Dec()
}

// MarshalJSON encodes the slot index as a JSON number.
func (s Slot) MarshalJSON() ([]byte, error) {
	return []byte(s.value.Dec()), nil
}

// UnmarshalJSON decodes a slot index from a JSON number or a string accepted by ParseSlot.
func (s *Slot) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	input := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(input)
		if err != nil {
			return errors.WithStack(err)
		}
		input = unquoted
	}

	slot, err := ParseSlot(input)
	if err != nil {
		return err
	}
	*s = slot
	return nil
}

// SlotList is an ordered list of slots which implements pflag.Value, so it can be used as a strongly typed
// command-line flag. Each call to Set appends the comma-separated slots it was provided.
type SlotList []Slot

// Set parses and appends a comma-separated list of slot indices.
func (l *SlotList) Set(value string) error {
	slots, err := ParseSlots(value)
	if err != nil {
		return err
	}
	*l = append(*l, slots...)
	return nil
}

// String returns the comma-separated decimal representation of the list.
func (l *SlotList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, slot := range *l {
		parts[i] = slot.String()
	}
	return strings.Join(parts, ",")
}

// Type returns the flag type name shown in usage output.
func (l *SlotList) Type() string {
	return "slots"
}
