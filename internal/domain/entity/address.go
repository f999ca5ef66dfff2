package entity

import (
	"fmt"
	"strings"
)

// Address is a normalized EVM account address: lowercase hex with the 0x
// prefix. Construct values through NormalizeAddress so comparisons and map
// lookups stay case-insensitive.
type Address string

// ZeroAddress is the EVM burn address.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

const addressLength = 42

// NormalizeAddress validates raw input and lowercases it into the canonical
// form used everywhere else in the engine.
func NormalizeAddress(raw string) (Address, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if len(trimmed) != addressLength {
		return "", fmt.Errorf("address %q has length %d, want %d", raw, len(trimmed), addressLength)
	}
	if !strings.HasPrefix(trimmed, "0x") {
		return "", fmt.Errorf("address %q is missing the 0x prefix", raw)
	}
	for _, c := range trimmed[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("address %q contains non-hex character %q", raw, c)
		}
	}
	return Address(trimmed), nil
}

// MustAddress is NormalizeAddress for static tables and tests; it panics on
// malformed input.
func MustAddress(raw string) Address {
	addr, err := NormalizeAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	return string(a)
}

// Short returns an abbreviated form for log lines.
func (a Address) Short() string {
	if len(a) <= 10 {
		return string(a)
	}
	return string(a[:10])
}

// IsZero reports whether the address is empty or the burn address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}
