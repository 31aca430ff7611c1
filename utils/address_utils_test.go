package utils

import (
	"fmt"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHexStringsToAddresses checks address parsing with and without prefixes, and rejects malformed input.
func TestHexStringsToAddresses(t *testing.T) {
	addresses, err := HexStringsToAddresses([]string{
		"0x0000000000000000000000000000000000010000",
		"0000000000000000000000000000000000020000",
	})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0x10000"), common.HexToAddress("0x20000")}, addresses)

	_, err = HexStringsToAddresses([]string{"0x1234"})
	assert.Error(t, err)
	_, err = HexStringToAddress("0xzz00000000000000000000000000000000010000")
	assert.Error(t, err)
}

// TestMax checks the generic ordering helper.
func TestMax(t *testing.T) {
	assert.Equal(t, uint64(7), Max(uint64(2), uint64(7)))
	assert.Equal(t, 3.5, Max(3.5, -1.0))
}

// TestSliceHelpers checks the generic slice query helpers.
func TestSliceHelpers(t *testing.T) {
	values := []int{1, 2, 3, 4}
	assert.Equal(t, []int{2, 4}, SliceWhere(values, func(x int) bool { return x%2 == 0 }))
	assert.Equal(t, []string{"1", "2", "3", "4"}, SliceSelect(values, func(x int) string { return fmt.Sprint(x) }))
	assert.Empty(t, SliceWhere(values, func(x int) bool { return x > 4 }))
}
