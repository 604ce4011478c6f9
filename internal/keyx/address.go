// Package keyx implements participant identities: secp256k1 keys, the
// 20-byte addresses derived from them and DER signatures over keccak-256
// digests.
package keyx

import (
	"encoding/hex"
	"errors"
	"strings"
)

const AddressLength = 20

var ErrInvalidAddress = errors.New("invalid address")

// Address is the last 20 bytes of keccak256 of an uncompressed public key.
type Address [AddressLength]byte

// ParseAddress accepts 40 hex digits with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*AddressLength {
		return a, ErrInvalidAddress
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return a, ErrInvalidAddress
	}

	copy(a[:], b)
	return a, nil
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
