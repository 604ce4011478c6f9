package fhe

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// KeySet is the decryption authority's key pair.
type KeySet struct {
	params bgv.Parameters
	sk     *rlwe.SecretKey
	pk     *rlwe.PublicKey
}

func GenerateKeySet() (*KeySet, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}

	sk, pk := bgv.NewKeyGenerator(p).GenKeyPairNew()
	return &KeySet{params: p, sk: sk, pk: pk}, nil
}

// LoadKeySet restores a key set from the output of MarshalSecretKey and
// PublicKey().Bytes().
func LoadKeySet(secret, public []byte) (*KeySet, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}

	sk := rlwe.NewSecretKey(p)
	if err := unmarshalKey(sk.UnmarshalBinary, secret); err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}

	pk := rlwe.NewPublicKey(p)
	if err := unmarshalKey(pk.UnmarshalBinary, public); err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	return &KeySet{params: p, sk: sk, pk: pk}, nil
}

func (k *KeySet) MarshalSecretKey() ([]byte, error) {
	return k.sk.MarshalBinary()
}

func (k *KeySet) PublicKey() *PublicKey {
	return &PublicKey{params: k.params, pk: k.pk}
}

// Decrypt recovers the value carried by an encoded ciphertext.
func (k *KeySet) Decrypt(ciphertext []byte) (uint64, error) {
	ct, err := parseCiphertext(k.params, ciphertext)
	if err != nil {
		return 0, err
	}

	pt := bgv.NewDecryptor(k.params, k.sk).DecryptNew(ct)

	slots := make([]uint64, k.params.MaxSlots())
	if err := bgv.NewEncoder(k.params).Decode(pt, slots); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedCiphertext, err)
	}

	lo, hi := slots[0], slots[1]
	if lo > limbMask || hi > limbMask {
		return 0, ErrMalformedCiphertext
	}
	return hi<<limbBits | lo, nil
}

// PublicKey encrypts values for the holder of the matching KeySet.
type PublicKey struct {
	params bgv.Parameters
	pk     *rlwe.PublicKey
}

func ParsePublicKey(b []byte) (*PublicKey, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}

	pk := rlwe.NewPublicKey(p)
	if err := unmarshalKey(pk.UnmarshalBinary, b); err != nil {
		return nil, err
	}
	return &PublicKey{params: p, pk: pk}, nil
}

func (p *PublicKey) Bytes() ([]byte, error) {
	return p.pk.MarshalBinary()
}

// Encrypt returns the binary encoding of a fresh ciphertext of v.
func (p *PublicKey) Encrypt(v uint64) ([]byte, error) {
	if v > MaxValue {
		return nil, fmt.Errorf("%w: %d", ErrValueOutOfRange, v)
	}

	slots := make([]uint64, p.params.MaxSlots())
	slots[0] = v & limbMask
	slots[1] = v >> limbBits

	pt := bgv.NewPlaintext(p.params, p.params.MaxLevel())
	if err := bgv.NewEncoder(p.params).Encode(slots, pt); err != nil {
		return nil, err
	}

	ct, err := bgv.NewEncryptor(p.params, p.pk).EncryptNew(pt)
	if err != nil {
		return nil, err
	}
	return ct.MarshalBinary()
}

// ValidateCiphertext checks that b decodes as a ciphertext of the shared
// parameter set.
func ValidateCiphertext(b []byte) error {
	p, err := Parameters()
	if err != nil {
		return err
	}
	_, err = parseCiphertext(p, b)
	return err
}

// parseCiphertext decodes untrusted bytes; decoder panics on truncated
// input are reported as ErrMalformedCiphertext.
func parseCiphertext(p bgv.Parameters, b []byte) (ct *rlwe.Ciphertext, err error) {
	defer func() {
		if r := recover(); r != nil {
			ct, err = nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, r)
		}
	}()

	ct = rlwe.NewCiphertext(p, 1)
	if err := ct.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCiphertext, err)
	}
	if ct.Degree() != 1 || ct.Level() != p.MaxLevel() {
		return nil, ErrMalformedCiphertext
	}
	return ct, nil
}

func unmarshalKey(unmarshal func([]byte) error, b []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedKey, r)
		}
	}()

	if err := unmarshal(b); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	return nil
}
