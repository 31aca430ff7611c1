package utils

import (
	"encoding/hex"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Returns the parsed
// address, or an error if the string is not valid hex or does not describe exactly 20 bytes.
func HexStringToAddress(s string) (*common.Address, error) {
	// Remove the 0x prefix and decode the hex string into a byte array
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(b) != common.AddressLength {
		return nil, errors.Errorf("address '%s' is %d bytes long, expected %d", s, len(b), common.AddressLength)
	}

	// Parse the bytes as an address and return them.
	address := common.BytesToAddress(b)
	return &address, nil
}

// HexStringsToAddresses converts hex strings (with or without the "0x" prefix) to common.Address objects. Returns
// the parsed addresses, or an error if any of them could not be converted.
func HexStringsToAddresses(addresses []string) ([]common.Address, error) {
	parsed := make([]common.Address, 0, len(addresses))
	for _, s := range addresses {
		address, err := HexStringToAddress(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, *address)
	}
	return parsed, nil
}
