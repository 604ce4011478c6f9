// Package wallet holds the CLI's signing identity: a secp256k1 key kept in a
// password-protected keystore file, and the approval step every signed
// write passes through.
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/cryptox"
	"github.com/dmitrijs2005/gophrelief/internal/filex"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

const keystoreVersion = 1

var (
	ErrKeystoreExists    = errors.New("keystore already exists")
	ErrMalformedKeystore = errors.New("malformed keystore")
)

type keystoreFile struct {
	Version    int          `json:"version"`
	Address    keyx.Address `json:"address"`
	Salt       []byte       `json:"salt"`
	Nonce      []byte       `json:"nonce"`
	Ciphertext []byte       `json:"ciphertext"`
}

// Exists reports whether a keystore file is present at path.
func Exists(path string) (bool, error) {
	return filex.Exists(path)
}

// Create generates a new key, seals it under password and writes the
// keystore to path. An existing keystore is never overwritten.
func Create(path string, password []byte) (*keyx.PrivateKey, error) {
	ok, err := filex.Exists(path)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrKeystoreExists
	}

	key, err := keyx.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	addr := key.Address()
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	derived := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(derived)

	secret := key.Bytes()
	defer common.WipeByteArray(secret)

	ct, nonce, err := cryptox.Seal(derived, secret, addr.Bytes())
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}

	data, err := json.MarshalIndent(keystoreFile{
		Version:    keystoreVersion,
		Address:    addr,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ct,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

// Open decrypts the keystore at path. A wrong password yields
// common.ErrWrongPassword.
func Open(path string, password []byte) (*keyx.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKeystore, err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("%w: version %d", ErrMalformedKeystore, ks.Version)
	}

	derived := cryptox.DeriveKey(password, ks.Salt)
	defer common.WipeByteArray(derived)

	secret, err := cryptox.Open(derived, ks.Ciphertext, ks.Nonce, ks.Address.Bytes())
	if err != nil {
		if errors.Is(err, cryptox.ErrOpen) {
			return nil, common.ErrWrongPassword
		}
		return nil, err
	}
	defer common.WipeByteArray(secret)

	key, err := keyx.ParsePrivateKey(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKeystore, err)
	}
	if key.Address() != ks.Address {
		return nil, fmt.Errorf("%w: address mismatch", ErrMalformedKeystore)
	}
	return key, nil
}
