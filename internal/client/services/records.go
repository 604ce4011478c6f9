package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/gateway"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/repositories/operations"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/inflight"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/google/uuid"
)

const createKey = "create"

func decryptKey(id string) string { return "decrypt:" + id }

// StatusFunc observes status events. It is called synchronously from the
// goroutine running the operation.
type StatusFunc func(models.TxStatus)

// Encrypter is the encryption half of the gateway.
type Encrypter interface {
	EncryptForSubmission(ctx context.Context, contract, requester keyx.Address, value int64) (*gateway.EncryptedInput, error)
}

// DecryptionRunner resolves a decryption request for one record.
type DecryptionRunner interface {
	RequestDecryption(ctx context.Context, id string) models.Outcome
}

// CreateResult is the outcome of a successful creation.
type CreateResult struct {
	RecordID string
	TxHash   string
	// Records is the list refreshed after the record was applied.
	Records []models.Record
}

type RecordService struct {
	ledger    client.LedgerClient
	encrypter Encrypter
	verifier  DecryptionRunner
	requester keyx.Address
	guard     *inflight.Guard
	journal   operations.Repository
	observer  StatusFunc
	log       logging.Logger
	newID     func() string
}

type RecordOption func(*RecordService)

func WithJournal(r operations.Repository) RecordOption {
	return func(s *RecordService) { s.journal = r }
}

func WithObserver(fn StatusFunc) RecordOption {
	return func(s *RecordService) { s.observer = fn }
}

func WithRecordLogger(l logging.Logger) RecordOption {
	return func(s *RecordService) { s.log = l }
}

// NewRecordService wires the controller. requester is the address the
// ciphertexts are bound to; it must be the wallet signing the submissions.
func NewRecordService(ledger client.LedgerClient, encrypter Encrypter, verifier DecryptionRunner, requester keyx.Address, opts ...RecordOption) *RecordService {
	s := &RecordService{
		ledger:    ledger,
		encrypter: encrypter,
		verifier:  verifier,
		requester: requester,
		guard:     inflight.NewGuard(),
		log:       logging.NewNop(),
		newID:     func() string { return common.RecordIDPrefix + uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "records")
	return s
}

// Creating reports whether a creation is in flight.
func (s *RecordService) Creating() bool {
	return s.guard.Busy(createKey)
}

// Decrypting reports whether a decryption of id is in flight.
func (s *RecordService) Decrypting(id string) bool {
	return s.guard.Busy(decryptKey(id))
}

// Create encrypts the victim count of d, submits the record and waits for it
// to be applied. Only one creation runs at a time; a concurrent call fails
// with common.ErrOperationInFlight. If ctx is cancelled the creation keeps
// running until the ledger resolves it, and the slot stays taken until then.
func (s *RecordService) Create(ctx context.Context, d models.Draft) (*CreateResult, error) {
	if err := d.Validate(); err != nil {
		s.publish(ctx, models.PhaseError, err.Error(), "", "")
		return nil, err
	}

	release, err := s.guard.TryAcquire(createKey)
	if err != nil {
		s.publish(ctx, models.PhaseError, "a record is already being created", "", "")
		return nil, err
	}

	type result struct {
		res *CreateResult
		err error
	}
	done := make(chan result, 1)
	id := s.newID()

	go func() {
		res, err := s.create(context.WithoutCancel(ctx), id, d)
		release()
		done <- result{res, err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		s.log.Warn(ctx, "creation abandoned, it will still resolve", "id", id)
		return nil, fmt.Errorf("%w: %w", common.ErrUserCancelled, ctx.Err())
	}
}

func (s *RecordService) create(ctx context.Context, id string, d models.Draft) (*CreateResult, error) {
	s.publish(ctx, models.PhasePending, "encrypting victim count", id, "")

	contract, err := s.ledger.ContractAddress(ctx)
	if err != nil {
		return nil, s.fail(ctx, id, "", err)
	}

	in, err := s.encrypter.EncryptForSubmission(ctx, contract, s.requester, d.Victims)
	if err != nil {
		return nil, s.fail(ctx, id, "", err)
	}

	s.publish(ctx, models.PhasePending, "submitting record", id, "")
	tx, err := s.ledger.CreateRecord(ctx, client.NewRecord{
		ID:                id,
		OrganizationName:  d.OrganizationName,
		Location:          d.LocationDescriptor(),
		PublicSupplyCount: uint64(d.Supplies),
		Ciphertext:        in.Ciphertext,
		InputProof:        in.Proof,
	})
	if err != nil {
		return nil, s.fail(ctx, id, "", err)
	}

	s.publish(ctx, models.PhasePending, "waiting for confirmation", id, tx.Hash())
	receipt, err := tx.Wait(ctx)
	if err != nil {
		if errors.Is(err, client.ErrOutcomeUnknown) {
			err = fmt.Errorf("record %s: %w", id, err)
		}
		return nil, s.fail(ctx, id, tx.Hash(), err)
	}
	s.publish(ctx, models.PhaseSuccess, "record created", id, receipt.TxHash)
	s.log.Info(ctx, "record created", "id", id, "tx", receipt.TxHash, "block", receipt.Block)

	res := &CreateResult{RecordID: id, TxHash: receipt.TxHash}
	if res.Records, err = s.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "refresh after create failed", "error", err)
	}
	return res, nil
}

// Refresh lists every record on the ledger. A record that cannot be read is
// logged and skipped.
func (s *RecordService) Refresh(ctx context.Context) ([]models.Record, error) {
	ids, err := s.ledger.ListRecordIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrReadFailure, err)
	}

	records := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.ledger.GetRecord(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn(ctx, "skipping unreadable record", "id", id, "error", fmt.Errorf("%w: %w", common.ErrReadFailure, err))
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Get reads one record.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.ledger.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrReadFailure, err)
	}
	return rec, nil
}

// Search refreshes the list and keeps the records whose id, organization or
// location contains query, ignoring case.
func (s *RecordService) Search(ctx context.Context, query string) ([]models.Record, error) {
	records, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]models.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ID), q) ||
			strings.Contains(strings.ToLower(r.OrganizationName), q) ||
			strings.Contains(strings.ToLower(r.Location), q) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *RecordService) Stats(ctx context.Context) (models.Stats, error) {
	records, err := s.Refresh(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return models.ComputeStats(records), nil
}

func (s *RecordService) CheckAvailability(ctx context.Context) bool {
	return s.ledger.CheckAvailability(ctx)
}

// History returns journaled status events: those of recordID, or the latest
// limit events when recordID is empty.
func (s *RecordService) History(ctx context.Context, recordID string, limit int) ([]models.TxStatus, error) {
	if s.journal == nil {
		return []models.TxStatus{}, nil
	}
	if recordID != "" {
		return s.journal.ForRecord(ctx, recordID)
	}
	return s.journal.Recent(ctx, limit)
}

// RequestDecryption decrypts and verifies the victim count of record id. A
// second request for the same id waits for the first one to resolve. If ctx
// is cancelled the caller gets a Failed outcome tagged
// common.ErrUserCancelled while the request runs to completion.
func (s *RecordService) RequestDecryption(ctx context.Context, id string) models.Outcome {
	release, err := s.guard.Acquire(ctx, decryptKey(id))
	if err != nil {
		return models.NewFailed(fmt.Errorf("%w: %w", common.ErrUserCancelled, err))
	}

	s.publish(ctx, models.PhasePending, "requesting decryption", id, "")

	done := make(chan models.Outcome, 1)
	go func() {
		detached := context.WithoutCancel(ctx)
		out := s.verifier.RequestDecryption(detached, id)
		s.publishOutcome(detached, id, out)
		release()
		done <- out
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		s.log.Warn(ctx, "decryption abandoned, it will still resolve", "id", id)
		return models.NewFailed(fmt.Errorf("%w: %w", common.ErrUserCancelled, ctx.Err()))
	}
}

func (s *RecordService) publishOutcome(ctx context.Context, id string, out models.Outcome) {
	switch o := out.(type) {
	case models.OnChainVerified, models.AlreadyVerified:
		s.publish(ctx, models.PhaseSuccess, o.String(), id, "")
	case models.LocallyDecryptedUnverified:
		s.publish(ctx, models.PhasePending, o.String(), id, "")
	case models.Failed:
		s.publish(ctx, models.PhaseError, o.Reason, id, "")
	}
}

func (s *RecordService) fail(ctx context.Context, id, txHash string, err error) error {
	s.publish(ctx, models.PhaseError, err.Error(), id, txHash)
	s.log.Error(ctx, "operation failed", "id", id, "error", err)
	return err
}

func (s *RecordService) publish(ctx context.Context, phase models.TxPhase, msg, id, txHash string) {
	st := models.TxStatus{Phase: phase, Message: msg, RecordID: id, TxHash: txHash, At: time.Now()}

	if s.observer != nil {
		s.observer(st)
	}
	if s.journal != nil {
		if err := s.journal.Append(ctx, st); err != nil {
			s.log.Warn(ctx, "journal append failed", "error", err)
		}
	}
}
