package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

// OracleAPI is the node's oracle as seen by the CLI. *client.GRPCClient
// implements it.
type OracleAPI interface {
	// Address is the identity decryptions are released to.
	Address() keyx.Address
	// OracleKeys returns the BGV public key and the compressed signer key.
	OracleKeys(ctx context.Context) (publicKey, signer []byte, err error)
	AttestInput(ctx context.Context, contract, requester keyx.Address, ciphertext []byte) ([]byte, error)
	Decrypt(ctx context.Context, contract keyx.Address, handles []fhe.Handle) (clearValues, proof []byte, err error)
}

// OracleCapability encrypts locally under the network key and relies on the
// oracle for attestation and decryption. Proofs are checked against the
// oracle signer before they are used.
type OracleCapability struct {
	api OracleAPI

	mu     sync.RWMutex
	pk     *fhe.PublicKey
	signer []byte
}

func NewOracleCapability(api OracleAPI) *OracleCapability {
	return &OracleCapability{api: api}
}

// Init fetches the network keys. It may be called again to refresh them.
func (c *OracleCapability) Init(ctx context.Context) error {
	pub, signer, err := c.api.OracleKeys(ctx)
	if err != nil {
		return fmt.Errorf("fetch oracle keys: %w", err)
	}

	pk, err := fhe.ParsePublicKey(pub)
	if err != nil {
		return err
	}
	if _, err := keyx.AddressFromPublicKey(signer); err != nil {
		return fmt.Errorf("oracle signer: %w", err)
	}

	c.mu.Lock()
	c.pk = pk
	c.signer = signer
	c.mu.Unlock()
	return nil
}

func (c *OracleCapability) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pk != nil
}

func (c *OracleCapability) keys() (*fhe.PublicKey, []byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pk == nil {
		return nil, nil, ErrNotInitialized
	}
	return c.pk, c.signer, nil
}

func (c *OracleCapability) Encrypt(ctx context.Context, contract, requester keyx.Address, value uint64) (*EncryptedInput, error) {
	pk, signer, err := c.keys()
	if err != nil {
		return nil, err
	}

	ct, err := pk.Encrypt(value)
	if err != nil {
		return nil, err
	}

	proof, err := c.api.AttestInput(ctx, contract, requester, ct)
	if err != nil {
		return nil, fmt.Errorf("attest input: %w", err)
	}
	if err := keyx.Verify(signer, fhe.InputDigest(contract, requester, ct), proof); err != nil {
		return nil, fmt.Errorf("%w: attestation: %w", common.ErrInvalidProof, err)
	}

	return &EncryptedInput{Ciphertext: ct, Proof: proof}, nil
}

func (c *OracleCapability) Decrypt(ctx context.Context, handles []fhe.Handle, contract keyx.Address, onAccept AcceptFunc) (*DecryptionResult, error) {
	_, signer, err := c.keys()
	if err != nil {
		return nil, err
	}

	clearValues, proof, err := c.api.Decrypt(ctx, contract, handles)
	if err != nil {
		return nil, fmt.Errorf("oracle decrypt: %w", err)
	}

	values, err := fhe.DecodeClearValues(clearValues, len(handles))
	if err != nil {
		return nil, err
	}

	digest := fhe.DecryptionDigest(contract, c.api.Address(), handles, clearValues)
	if err := keyx.Verify(signer, digest, proof); err != nil {
		return nil, fmt.Errorf("%w: decryption: %w", common.ErrInvalidProof, err)
	}

	tx, err := onAccept(ctx, clearValues, proof)
	if err != nil {
		return nil, err
	}
	receipt, err := tx.Wait(ctx)
	if err != nil {
		return nil, err
	}

	res := &DecryptionResult{ClearValues: make(map[fhe.Handle]uint64, len(handles)), Receipt: receipt}
	for i, h := range handles {
		res.ClearValues[h] = values[i]
	}
	return res, nil
}
