package oracle

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/filex"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

const (
	secretKeyFile = "fhe_secret.bin"
	publicKeyFile = "fhe_public.bin"
	signerKeyFile = "signer.key"
)

// Keys is the oracle's key material: the BGV key set that decrypts
// ciphertext handles and the secp256k1 key that signs proofs.
type Keys struct {
	FHE    *fhe.KeySet
	Signer *keyx.PrivateKey
}

func GenerateKeys() (*Keys, error) {
	ks, err := fhe.GenerateKeySet()
	if err != nil {
		return nil, fmt.Errorf("error generating fhe keys: %w", err)
	}
	signer, err := keyx.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("error generating signer key: %w", err)
	}
	return &Keys{FHE: ks, Signer: signer}, nil
}

// LoadOrCreateKeys reads the key files in dir, generating and persisting a
// fresh set when none exist. An empty dir yields ephemeral keys.
func LoadOrCreateKeys(dir string) (*Keys, bool, error) {
	if dir == "" {
		k, err := GenerateKeys()
		return k, true, err
	}

	exists, err := filex.Exists(filepath.Join(dir, signerKeyFile))
	if err != nil {
		return nil, false, err
	}
	if exists {
		k, err := loadKeys(dir)
		return k, false, err
	}

	k, err := GenerateKeys()
	if err != nil {
		return nil, false, err
	}
	if err := saveKeys(dir, k); err != nil {
		return nil, false, err
	}
	return k, true, nil
}

func loadKeys(dir string) (*Keys, error) {
	secret, err := os.ReadFile(filepath.Join(dir, secretKeyFile))
	if err != nil {
		return nil, fmt.Errorf("error reading fhe secret key: %w", err)
	}
	public, err := os.ReadFile(filepath.Join(dir, publicKeyFile))
	if err != nil {
		return nil, fmt.Errorf("error reading fhe public key: %w", err)
	}
	ks, err := fhe.LoadKeySet(secret, public)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, signerKeyFile))
	if err != nil {
		return nil, fmt.Errorf("error reading signer key: %w", err)
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("error decoding signer key: %w", err)
	}
	signer, err := keyx.ParsePrivateKey(b)
	if err != nil {
		return nil, err
	}

	return &Keys{FHE: ks, Signer: signer}, nil
}

func saveKeys(dir string, k *Keys) error {
	if _, err := filex.EnsureDir(dir); err != nil {
		return err
	}

	secret, err := k.FHE.MarshalSecretKey()
	if err != nil {
		return err
	}
	public, err := k.FHE.PublicKey().Bytes()
	if err != nil {
		return err
	}

	if err := filex.WriteFileAtomic(filepath.Join(dir, secretKeyFile), secret, 0o600); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(filepath.Join(dir, publicKeyFile), public, 0o644); err != nil {
		return err
	}
	// The signer file is written last; its presence marks a complete set.
	return filex.WriteFileAtomic(filepath.Join(dir, signerKeyFile), []byte(hex.EncodeToString(k.Signer.Bytes())), 0o600)
}
