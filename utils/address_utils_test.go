package utils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHexStringToAddress verifies well-formed addresses parse regardless of prefix and case, and malformed ones fail.
func TestHexStringToAddress(t *testing.T) {
	expected := common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
	for _, input := range []string{
		"0x00000000219ab540356cBB839Cbe05303d7705Fa",
		"00000000219ab540356cbb839cbe05303d7705fa",
		"0X00000000219AB540356CBB839CBE05303D7705FA",
		" 0x00000000219ab540356cBB839Cbe05303d7705Fa\n",
	} {
		address, err := HexStringToAddress(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, expected, address)
	}

	for _, input := range []string{
		"",
		"0x",
		"0x1234",
		"0x00000000219ab540356cBB839Cbe05303d7705Fa00",
		"0x00000000219ab540356cBB839Cbe05303d7705F",
		"0xZZ000000219ab540356cBB839Cbe05303d7705Fa",
	} {
		_, err := HexStringToAddress(input)
		assert.Error(t, err, "input %q", input)
	}
}
