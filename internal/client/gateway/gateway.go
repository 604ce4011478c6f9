// Package gateway turns plaintext victim counts into attested ciphertexts
// and ciphertext handles back into clear values accepted by the ledger. The
// cryptography itself sits behind EncryptionCapability.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
)

var ErrNotInitialized = errors.New("encryption capability not initialized")

// EncryptedInput is a ciphertext together with the proof binding it to a
// (contract, requester) pair.
type EncryptedInput struct {
	Ciphertext []byte
	Proof      []byte
}

// DecryptionResult holds clear values the ledger accepted.
type DecryptionResult struct {
	ClearValues map[fhe.Handle]uint64
	Receipt     *client.Receipt
}

// AcceptFunc submits encoded clear values and their proof to the ledger.
type AcceptFunc func(ctx context.Context, clearValues, proof []byte) (client.Transaction, error)

// EncryptionCapability performs the FHE work. Decrypt must call onAccept
// with the proof it obtained and wait for the transaction.
type EncryptionCapability interface {
	Ready() bool
	Encrypt(ctx context.Context, contract, requester keyx.Address, value uint64) (*EncryptedInput, error)
	Decrypt(ctx context.Context, handles []fhe.Handle, contract keyx.Address, onAccept AcceptFunc) (*DecryptionResult, error)
}

type Gateway struct {
	capability EncryptionCapability
	log        logging.Logger
}

func New(capability EncryptionCapability, log logging.Logger) *Gateway {
	return &Gateway{capability: capability, log: log.With("module", "gateway")}
}

// EncryptForSubmission encrypts value for requester to submit against
// contract. Every failure is tagged common.ErrEncryptionFailure.
func (g *Gateway) EncryptForSubmission(ctx context.Context, contract, requester keyx.Address, value int64) (*EncryptedInput, error) {
	if value < 0 || value > fhe.MaxValue {
		return nil, fmt.Errorf("%w: %w: %d", common.ErrEncryptionFailure, fhe.ErrValueOutOfRange, value)
	}
	if g.capability == nil || !g.capability.Ready() {
		return nil, fmt.Errorf("%w: %w", common.ErrEncryptionFailure, ErrNotInitialized)
	}

	in, err := g.capability.Encrypt(ctx, contract, requester, uint64(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrEncryptionFailure, err)
	}

	g.log.Debug(ctx, "value encrypted", "contract", contract, "requester", requester, "handle", fhe.HandleOf(in.Ciphertext))
	return in, nil
}

// DecryptAndProve obtains clear values for handles and has onAccept submit
// them. Every failure is tagged common.ErrDecryptionFailure; the cause stays
// in the chain so callers can still tell a lost verification race or a
// refused signature apart.
func (g *Gateway) DecryptAndProve(ctx context.Context, handles []fhe.Handle, contract keyx.Address, onAccept AcceptFunc) (*DecryptionResult, error) {
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no handles", common.ErrDecryptionFailure)
	}
	if g.capability == nil || !g.capability.Ready() {
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailure, ErrNotInitialized)
	}

	res, err := g.capability.Decrypt(ctx, handles, contract, onAccept)
	if err != nil {
		if errors.Is(err, common.ErrDecryptionFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailure, err)
	}

	for _, h := range handles {
		if _, ok := res.ClearValues[h]; !ok {
			return nil, fmt.Errorf("%w: no value for %s", common.ErrDecryptionFailure, h)
		}
	}
	return res, nil
}
