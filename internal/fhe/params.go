// Package fhe wraps the lattigo BGV scheme for the one thing the system
// encrypts: a 32-bit victim count.
//
// A value is split into two 16-bit limbs carried in slots 0 and 1 of a
// single ciphertext; the plaintext modulus 65537 holds either limb exactly.
// Ciphertexts are referred to by their Handle, the keccak-256 of their
// binary encoding.
package fhe

import (
	"errors"
	"math"
	"sync"

	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

const (
	PlaintextModulus = 65537

	// MaxValue is the largest plaintext accepted by Encrypt.
	MaxValue = math.MaxUint32

	limbBits = 16
	limbMask = 1<<limbBits - 1
)

var (
	ErrValueOutOfRange     = errors.New("value out of range")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrMalformedKey        = errors.New("malformed key")
)

// Literal is the BGV parameter set shared by every participant.
func Literal() bgv.ParametersLiteral {
	return bgv.ParametersLiteral{
		LogN:             13,
		LogQ:             []int{54},
		LogP:             []int{54},
		PlaintextModulus: PlaintextModulus,
	}
}

var params = sync.OnceValues(func() (bgv.Parameters, error) {
	return bgv.NewParametersFromLiteral(Literal())
})

// Parameters returns the instantiated parameter set; it is built once.
func Parameters() (bgv.Parameters, error) {
	return params()
}
