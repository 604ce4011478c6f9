package fhe

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

const (
	inputDomain      = "gophrelief/input/v1"
	decryptionDomain = "gophrelief/decrypt/v1"

	wordSize = 32
)

var (
	ErrInvalidHandle     = errors.New("invalid handle")
	ErrMalformedEncoding = errors.New("malformed clear value encoding")
)

// Handle is the on-ledger reference to a stored ciphertext.
type Handle [32]byte

// HandleOf returns the handle of an encoded ciphertext.
func HandleOf(ciphertext []byte) Handle {
	return Handle(keyx.Keccak256(ciphertext))
}

func ParseHandle(s string) (Handle, error) {
	var h Handle

	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != len(h) {
		return h, ErrInvalidHandle
	}
	copy(h[:], b)
	return h, nil
}

func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// EncodeClearValues lays values out as consecutive 32-byte big-endian words.
func EncodeClearValues(values []uint64) []byte {
	out := make([]byte, wordSize*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(out[(i+1)*wordSize-8:], v)
	}
	return out
}

// DecodeClearValues reverses EncodeClearValues, expecting exactly n words.
func DecodeClearValues(b []byte, n int) ([]uint64, error) {
	if len(b) != n*wordSize {
		return nil, fmt.Errorf("%w: %d bytes for %d values", ErrMalformedEncoding, len(b), n)
	}

	values := make([]uint64, n)
	for i := range values {
		word := b[i*wordSize : (i+1)*wordSize]
		for _, c := range word[:wordSize-8] {
			if c != 0 {
				return nil, fmt.Errorf("%w: word %d overflows", ErrMalformedEncoding, i)
			}
		}
		values[i] = binary.BigEndian.Uint64(word[wordSize-8:])
	}
	return values, nil
}

// InputDigest is what the decryption authority signs to attest that
// ciphertext was produced for requester against contract.
func InputDigest(contract, requester keyx.Address, ciphertext []byte) [32]byte {
	h := HandleOf(ciphertext)
	return keyx.Digest(inputDomain, contract.Bytes(), requester.Bytes(), h[:])
}

// DecryptionDigest is what the decryption authority signs to attest that
// clearValues are the plaintexts of handles, released to requester for use
// against contract.
func DecryptionDigest(contract, requester keyx.Address, handles []Handle, clearValues []byte) [32]byte {
	parts := [][]byte{contract.Bytes(), requester.Bytes()}
	for _, h := range handles {
		parts = append(parts, h[:])
	}
	parts = append(parts, clearValues)
	return keyx.Digest(decryptionDomain, parts...)
}
