// Package ledger is the node's record store. Writes are checked up front,
// queued as transactions and applied one at a time by a sequencer, which
// produces the receipts clients wait on.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/server/models"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/records"
	"github.com/google/uuid"
)

const defaultQueueSize = 256

// Recorder receives sequencer events, typically for metrics.
type Recorder interface {
	TxQueued(kind string)
	TxApplied(kind, status string)
}

type nopRecorder struct{}

func (nopRecorder) TxQueued(string)          {}
func (nopRecorder) TxApplied(string, string) {}

type Config struct {
	// Contract is the address that proofs must be bound to.
	Contract keyx.Address
	// OracleSigner is the compressed public key of the decryption oracle.
	OracleSigner []byte
	QueueSize    int
}

// NewRecord is the payload of a record creation.
type NewRecord struct {
	ID                string
	OrganizationName  string
	Location          string
	PublicSupplyCount uint64
	Ciphertext        []byte
	InputProof        []byte
}

type op struct {
	tx     *models.Transaction
	record *models.Record
	value  uint64
}

type Service struct {
	repo         records.Repository
	blobs        blobs.Store
	contract     keyx.Address
	oracleSigner []byte
	recorder     Recorder
	log          logging.Logger
	now          func() time.Time

	queue chan op
	block uint64

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func NewService(repo records.Repository, store blobs.Store, cfg Config, recorder Recorder, log logging.Logger) *Service {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Service{
		repo:         repo,
		blobs:        store,
		contract:     cfg.Contract,
		oracleSigner: cfg.OracleSigner,
		recorder:     recorder,
		log:          log.With("module", "ledger"),
		now:          time.Now,
		queue:        make(chan op, size),
		waiters:      make(map[string]chan struct{}),
	}
}

func (s *Service) Contract() keyx.Address {
	return s.contract
}

func (s *Service) OracleSigner() []byte {
	return append([]byte(nil), s.oracleSigner...)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) ListRecordIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDs(ctx)
}

func (s *Service) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	return s.repo.Get(ctx, id)
}

// Handle returns the ciphertext handle of a record.
func (s *Service) Handle(ctx context.Context, id string) (fhe.Handle, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return fhe.Handle{}, err
	}
	return rec.Handle, nil
}

// CreateRecord checks the input proof and queues the record for creation.
// The ciphertext is stored before the transaction is queued so the oracle
// can find it as soon as the record exists.
func (s *Service) CreateRecord(ctx context.Context, sender keyx.Address, in NewRecord) (string, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.OrganizationName) == "" {
		return "", fmt.Errorf("%w: id and organization name are required", common.ErrInvalidArgument)
	}
	if err := fhe.ValidateCiphertext(in.Ciphertext); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
	}

	digest := fhe.InputDigest(s.contract, sender, in.Ciphertext)
	if err := keyx.Verify(s.oracleSigner, digest, in.InputProof); err != nil {
		return "", fmt.Errorf("%w: input proof: %w", common.ErrInvalidProof, err)
	}

	exists, err := s.repo.Exists(ctx, in.ID)
	if err != nil {
		return "", fmt.Errorf("error checking record: %w", err)
	}
	if exists {
		return "", common.ErrAlreadyExists
	}

	handle := fhe.HandleOf(in.Ciphertext)
	if err := s.blobs.Put(ctx, handle, in.Ciphertext); err != nil {
		return "", fmt.Errorf("error storing ciphertext: %w", err)
	}

	rec := &models.Record{
		ID:                in.ID,
		OrganizationName:  in.OrganizationName,
		Location:          in.Location,
		PublicSupplyCount: in.PublicSupplyCount,
		Handle:            handle,
		Creator:           sender,
	}

	return s.submit(ctx, op{tx: s.newTx(models.TxCreateRecord, in.ID, sender), record: rec})
}

// VerifyDecryption checks a decryption proof for a record's handle and
// queues the verification. A record that is already verified is rejected
// here; a concurrent verification that passes this check reverts when
// applied.
func (s *Service) VerifyDecryption(ctx context.Context, sender keyx.Address, id string, clearValues, proof []byte) (string, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.Verified {
		return "", common.ErrAlreadyVerified
	}

	values, err := fhe.DecodeClearValues(clearValues, 1)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
	}

	digest := fhe.DecryptionDigest(s.contract, sender, []fhe.Handle{rec.Handle}, clearValues)
	if err := keyx.Verify(s.oracleSigner, digest, proof); err != nil {
		return "", fmt.Errorf("%w: decryption proof: %w", common.ErrInvalidProof, err)
	}

	return s.submit(ctx, op{tx: s.newTx(models.TxVerifyDecryption, id, sender), value: values[0]})
}

// WaitTransaction blocks until the transaction is final or ctx is done, and
// returns its latest state either way.
func (s *Service) WaitTransaction(ctx context.Context, hash string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, hash)
	if err != nil || tx.Final() {
		return tx, err
	}

	done := s.waiter(hash)

	// The sequencer may have finished between the read and the registration.
	tx, err = s.repo.GetTransaction(ctx, hash)
	if err != nil || tx.Final() {
		return tx, err
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	return s.repo.GetTransaction(context.WithoutCancel(ctx), hash)
}

// Run applies queued transactions until ctx is cancelled. Block numbers
// continue from the last block recorded in the repository.
func (s *Service) Run(ctx context.Context) error {
	last, err := s.repo.LastBlock(ctx)
	if err != nil {
		return fmt.Errorf("error reading last block: %w", err)
	}
	s.block = last

	s.log.Info(ctx, "sequencer started", "block", last)
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sequencer stopped")
			return ctx.Err()
		case o := <-s.queue:
			s.apply(context.WithoutCancel(ctx), o)
		}
	}
}

func (s *Service) newTx(kind models.TxKind, id string, sender keyx.Address) *models.Transaction {
	nonce := uuid.New()
	h := keyx.Keccak256([]byte(kind), []byte(id), sender[:], nonce[:])

	return &models.Transaction{
		Hash:      "0x" + hex.EncodeToString(h[:]),
		Kind:      kind,
		RecordID:  id,
		Sender:    sender,
		Status:    models.TxPending,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Service) submit(ctx context.Context, o op) (string, error) {
	if err := s.repo.SaveTransaction(ctx, o.tx); err != nil {
		return "", fmt.Errorf("error saving transaction: %w", err)
	}

	select {
	case s.queue <- o:
	case <-ctx.Done():
		o.tx.Status = models.TxReverted
		o.tx.Reason = "not queued"
		if err := s.repo.UpdateTransaction(context.WithoutCancel(ctx), o.tx); err != nil {
			s.log.Error(ctx, "error dropping transaction", "tx", o.tx.Hash, "error", err)
		}
		return "", ctx.Err()
	}

	s.recorder.TxQueued(string(o.tx.Kind))
	s.log.Debug(ctx, "transaction queued", "tx", o.tx.Hash, "kind", o.tx.Kind, "record", o.tx.RecordID)
	return o.tx.Hash, nil
}

func (s *Service) apply(ctx context.Context, o op) {
	s.block++
	tx := o.tx
	tx.Block = s.block

	var err error
	switch tx.Kind {
	case models.TxCreateRecord:
		o.record.CreatedAt = s.now().UTC()
		err = s.repo.Create(ctx, o.record)
	case models.TxVerifyDecryption:
		err = s.repo.MarkVerified(ctx, tx.RecordID, o.value)
	default:
		err = fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}

	tx.Status = models.TxSuccess
	if err != nil {
		tx.Status = models.TxReverted
		tx.Reason = revertReason(err)
	}

	s.recorder.TxApplied(string(tx.Kind), string(tx.Status))
	if uerr := s.repo.UpdateTransaction(ctx, tx); uerr != nil {
		s.log.Error(ctx, "error storing receipt", "tx", tx.Hash, "error", uerr)
	}

	if err != nil {
		s.log.Warn(ctx, "transaction reverted", "tx", tx.Hash, "kind", tx.Kind, "record", tx.RecordID, "reason", tx.Reason)
	} else {
		s.log.Info(ctx, "transaction applied", "tx", tx.Hash, "kind", tx.Kind, "record", tx.RecordID, "block", tx.Block)
	}

	s.notify(tx.Hash)
}

func revertReason(err error) string {
	switch {
	case errors.Is(err, common.ErrAlreadyVerified):
		return common.AlreadyVerifiedReason
	case errors.Is(err, common.ErrAlreadyExists):
		return common.ErrAlreadyExists.Error()
	case errors.Is(err, common.ErrNotFound):
		return "record not found"
	default:
		return "internal error"
	}
}

func (s *Service) waiter(hash string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.waiters[hash]
	if !ok {
		ch = make(chan struct{})
		s.waiters[hash] = ch
	}
	return ch
}

func (s *Service) notify(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.waiters[hash]; ok {
		close(ch)
		delete(s.waiters, hash)
	}
}
