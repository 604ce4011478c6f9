// Package cryptox derives keys from passwords and seals small secrets with
// AES-GCM. The wallet keystore is its only consumer.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	KeySize  = 32
	SaltSize = 16
)

var ErrOpen = errors.New("cannot open sealed data")

// DeriveKey stretches password with argon2id into a 256-bit key.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext under key with a fresh random nonce. additional is
// authenticated but not encrypted.
func Seal(key, plaintext, additional []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aead.NonceSize())
	ciphertext = aead.Seal(nil, nonce, plaintext, additional)

	return ciphertext, nonce, nil
}

// Open reverses Seal. Any authentication failure, including a wrong key,
// yields ErrOpen.
func Open(key, ciphertext, nonce, additional []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrOpen
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
