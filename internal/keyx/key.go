package keyx

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

const loginDomain = "gophrelief/login/v1"

var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	k *btcec.PrivateKey
}

func GenerateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{k: k}, nil
}

// ParsePrivateKey loads a 32-byte big-endian scalar.
func ParsePrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, ErrInvalidKey
	}
	k, _ := btcec.PrivKeyFromBytes(b)
	if k.Key.IsZero() {
		return nil, ErrInvalidKey
	}
	return &PrivateKey{k: k}, nil
}

func (p *PrivateKey) Bytes() []byte {
	return p.k.Serialize()
}

// PublicKey returns the 33-byte compressed public key.
func (p *PrivateKey) PublicKey() []byte {
	return p.k.PubKey().SerializeCompressed()
}

func (p *PrivateKey) Address() Address {
	return addressOf(p.k.PubKey())
}

// Sign returns a DER-encoded ECDSA signature over digest.
func (p *PrivateKey) Sign(digest [32]byte) []byte {
	return ecdsa.Sign(p.k, digest[:]).Serialize()
}

// AddressFromPublicKey derives the address of a compressed or uncompressed
// public key.
func AddressFromPublicKey(pub []byte) (Address, error) {
	pk, err := btcec.ParsePubKey(pub)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return addressOf(pk), nil
}

// Verify checks a DER signature over digest against pub.
func Verify(pub []byte, digest [32]byte, sig []byte) error {
	pk, err := btcec.ParsePubKey(pub)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if !s.Verify(digest[:], pk) {
		return ErrInvalidSignature
	}
	return nil
}

func addressOf(pk *btcec.PublicKey) Address {
	var a Address
	h := Keccak256(pk.SerializeUncompressed()[1:])
	copy(a[:], h[12:])
	return a
}

// Keccak256 hashes the concatenation of parts with legacy keccak-256.
func Keccak256(parts ...[]byte) [32]byte {
	var out [32]byte

	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	h.Sum(out[:0])

	return out
}

// Digest hashes parts under a domain separator.
func Digest(domain string, parts ...[]byte) [32]byte {
	return Keccak256(append([][]byte{[]byte(domain)}, parts...)...)
}

// LoginDigest is what a wallet signs to answer a login challenge.
func LoginDigest(nonce []byte) [32]byte {
	return Digest(loginDomain, nonce)
}
