package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. The string must
// encode exactly 20 bytes. Returns the parsed address, or an error if one occurs during conversion.
func HexStringToAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	// Decode the hex string into a byte array
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "invalid address %q", s)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, errors.Errorf("invalid address %q: expected %d bytes, got %d", s, common.AddressLength, len(b))
	}

	return common.BytesToAddress(b), nil
}
