// Package verifier runs the decrypt-and-verify protocol for one record.
//
// The ledger is the only source of truth: a value is trusted once the ledger
// applied the verification and a re-read shows the record verified. Losing
// the race to another verifier converges to the stored value instead of an
// error.
package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/gateway"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
)

// Decrypter is the decryption half of the encryption gateway.
type Decrypter interface {
	DecryptAndProve(ctx context.Context, handles []fhe.Handle, contract keyx.Address, onAccept gateway.AcceptFunc) (*gateway.DecryptionResult, error)
}

type Verifier struct {
	ledger    client.LedgerClient
	decrypter Decrypter
	log       logging.Logger
}

func New(ledger client.LedgerClient, decrypter Decrypter, log logging.Logger) *Verifier {
	return &Verifier{ledger: ledger, decrypter: decrypter, log: log.With("module", "verifier")}
}

// RequestDecryption decrypts and verifies the confidential value of record
// id. Steps run strictly in order: read, fetch handle, decrypt and prove,
// submit, re-read.
func (v *Verifier) RequestDecryption(ctx context.Context, id string) models.Outcome {
	log := v.log.With("id", id)

	rec, err := v.ledger.GetRecord(ctx, id)
	if err != nil {
		return models.NewFailed(fmt.Errorf("%w: %w", common.ErrReadFailure, err))
	}
	if value, ok := rec.VictimCount(); ok {
		log.Debug(ctx, "record already verified")
		return models.AlreadyVerified{Value: value}
	}

	handle, err := v.ledger.GetConfidentialHandle(ctx, id)
	if err != nil {
		return models.NewFailed(fmt.Errorf("%w: %w", common.ErrReadFailure, err))
	}

	contract, err := v.ledger.ContractAddress(ctx)
	if err != nil {
		return models.NewFailed(err)
	}

	onAccept := func(ctx context.Context, clearValues, proof []byte) (client.Transaction, error) {
		return v.ledger.SubmitVerification(ctx, id, clearValues, proof)
	}

	res, err := v.decrypter.DecryptAndProve(ctx, []fhe.Handle{handle}, contract, onAccept)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyVerified) {
			log.Info(ctx, "verified concurrently by another party")
			return v.converge(ctx, id, err)
		}
		log.Warn(ctx, "decryption failed", "error", err)
		return models.NewFailed(err)
	}

	local := res.ClearValues[handle]

	rec, err = v.ledger.GetRecord(ctx, id)
	if err != nil {
		log.Warn(ctx, "confirming read failed", "error", err)
		return models.LocallyDecryptedUnverified{Value: local}
	}

	value, ok := rec.VictimCount()
	if !ok {
		log.Warn(ctx, "verification accepted but record still unverified")
		return models.LocallyDecryptedUnverified{Value: local}
	}
	if value != local {
		log.Warn(ctx, "ledger value differs from local decryption", "ledger", value, "local", local)
	}

	log.Info(ctx, "record verified", "tx", receiptHash(res.Receipt))
	return models.OnChainVerified{Value: value}
}

// converge re-reads a record the ledger reported as already verified.
func (v *Verifier) converge(ctx context.Context, id string, cause error) models.Outcome {
	rec, err := v.ledger.GetRecord(ctx, id)
	if err != nil {
		return models.NewFailed(fmt.Errorf("%w: %w", common.ErrReadFailure, err))
	}
	value, ok := rec.VictimCount()
	if !ok {
		return models.NewFailed(fmt.Errorf("%w, but the record reads as unverified", cause))
	}
	return models.AlreadyVerified{Value: value}
}

func receiptHash(r *client.Receipt) string {
	if r == nil {
		return ""
	}
	return r.TxHash
}
