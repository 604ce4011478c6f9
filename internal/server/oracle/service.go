// Package oracle is the node-side half of the FHE capability. It publishes
// the network encryption key, attests ciphertexts before they are stored on
// the ledger and decrypts stored handles with a signed proof of the result.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/blobs"
)

const maxHandles = 16

// Recorder receives decryption outcomes, typically for metrics.
type Recorder interface {
	Decryption(result string)
}

type nopRecorder struct{}

func (nopRecorder) Decryption(string) {}

type Service struct {
	keys      *fhe.KeySet
	publicKey []byte
	signer    *keyx.PrivateKey
	blobs     blobs.Store
	limiter   *Limiter
	recorder  Recorder
	log       logging.Logger
}

func NewService(keys *Keys, store blobs.Store, limiter *Limiter, recorder Recorder, log logging.Logger) (*Service, error) {
	pub, err := keys.FHE.PublicKey().Bytes()
	if err != nil {
		return nil, fmt.Errorf("error encoding public key: %w", err)
	}
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		keys:      keys.FHE,
		publicKey: pub,
		signer:    keys.Signer,
		blobs:     store,
		limiter:   limiter,
		recorder:  recorder,
		log:       log.With("module", "oracle"),
	}, nil
}

// PublicKey returns the BGV public key and the compressed signer key.
func (s *Service) PublicKey() ([]byte, []byte) {
	return append([]byte(nil), s.publicKey...), s.signer.PublicKey()
}

func (s *Service) SignerAddress() keyx.Address {
	return s.signer.Address()
}

// AttestInput signs a well-formed ciphertext for use by requester on
// contract.
func (s *Service) AttestInput(ctx context.Context, contract, requester keyx.Address, ciphertext []byte) ([]byte, error) {
	if err := fhe.ValidateCiphertext(ciphertext); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
	}

	proof := s.signer.Sign(fhe.InputDigest(contract, requester, ciphertext))
	s.log.Debug(ctx, "input attested", "requester", requester, "handle", fhe.HandleOf(ciphertext))
	return proof, nil
}

// Decrypt returns the ABI-encoded clear values of handles and a proof
// binding them to contract and requester.
func (s *Service) Decrypt(ctx context.Context, contract, requester keyx.Address, handles []fhe.Handle) ([]byte, []byte, error) {
	if len(handles) == 0 || len(handles) > maxHandles {
		return nil, nil, fmt.Errorf("%w: expected 1 to %d handles", common.ErrInvalidArgument, maxHandles)
	}
	if !s.limiter.Allow(requester) {
		s.recorder.Decryption("rate_limited")
		s.log.Warn(ctx, "decryption rate limited", "requester", requester)
		return nil, nil, common.ErrRateLimited
	}

	values := make([]uint64, 0, len(handles))
	for _, h := range handles {
		ct, err := s.blobs.Get(ctx, h)
		if err != nil {
			s.recorder.Decryption("error")
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: handle %s", common.ErrNotFound, h)
			}
			return nil, nil, err
		}

		v, err := s.keys.Decrypt(ct)
		if err != nil {
			s.recorder.Decryption("error")
			s.log.Error(ctx, "error decrypting handle", "handle", h, "error", err)
			return nil, nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailure, err)
		}
		values = append(values, v)
	}

	clear := fhe.EncodeClearValues(values)
	proof := s.signer.Sign(fhe.DecryptionDigest(contract, requester, handles, clear))

	s.recorder.Decryption("ok")
	s.log.Info(ctx, "handles decrypted", "requester", requester, "count", len(handles))
	return clear, proof, nil
}
