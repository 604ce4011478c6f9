// Package clienttest provides in-memory fakes of the ledger and the
// encryption capability for tests of the lifecycle core.
package clienttest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

var Contract = keyx.Address{0xc0, 0x17}

// FakeLedger is a single-writer record store with the ledger's acceptance
// rules: unique ids, and a first-wins verification.
type FakeLedger struct {
	Sender keyx.Address

	mu        sync.Mutex
	order     []string
	records   map[string]*models.Record
	readErr   map[string]error
	available bool

	SubmitCalls atomic.Int32
	CreateCalls atomic.Int32
	block       uint64
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		Sender:    keyx.Address{0x5e},
		records:   make(map[string]*models.Record),
		readErr:   make(map[string]error),
		available: true,
	}
}

// FailReads makes GetRecord(id) fail with err until cleared with nil.
func (l *FakeLedger) FailReads(id string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.readErr, id)
		return
	}
	l.readErr[id] = err
}

func (l *FakeLedger) SetAvailable(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available = v
}

// Put stores rec directly, bypassing transactions.
func (l *FakeLedger) Put(rec models.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.ID]; !ok {
		l.order = append(l.order, rec.ID)
	}
	l.records[rec.ID] = &rec
}

func (l *FakeLedger) ListRecordIDs(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...), nil
}

func (l *FakeLedger) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.readErr[id]; err != nil {
		return nil, err
	}
	r, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, id)
	}

	cp := *r
	if r.VerifiedVictimCount != nil {
		v := *r.VerifiedVictimCount
		cp.VerifiedVictimCount = &v
	}
	return &cp, nil
}

func (l *FakeLedger) GetConfidentialHandle(ctx context.Context, id string) (fhe.Handle, error) {
	r, err := l.GetRecord(ctx, id)
	if err != nil {
		return fhe.Handle{}, err
	}
	return r.Handle, nil
}

func (l *FakeLedger) CreateRecord(ctx context.Context, rec client.NewRecord) (client.Transaction, error) {
	l.CreateCalls.Add(1)

	if len(rec.InputProof) == 0 {
		return nil, fmt.Errorf("%w: %w", common.ErrSubmissionRejected, common.ErrInvalidProof)
	}

	l.mu.Lock()
	_, exists := l.records[rec.ID]
	l.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("%w: %w", common.ErrSubmissionRejected, common.ErrAlreadyExists)
	}

	return &FakeTx{hash: "0xc" + rec.ID, apply: func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.records[rec.ID]; ok {
			return fmt.Errorf("%w: %w", common.ErrSubmissionRejected, common.ErrAlreadyExists)
		}
		l.order = append(l.order, rec.ID)
		l.records[rec.ID] = &models.Record{
			ID:                rec.ID,
			OrganizationName:  rec.OrganizationName,
			Location:          rec.Location,
			PublicSupplyCount: rec.PublicSupplyCount,
			Handle:            fhe.HandleOf(rec.Ciphertext),
			CreatedAt:         time.Now().UTC(),
			Creator:           l.Sender,
			State:             models.Unverified,
		}
		return nil
	}, block: l.nextBlock}, nil
}

func (l *FakeLedger) SubmitVerification(ctx context.Context, id string, clearValues, proof []byte) (client.Transaction, error) {
	l.SubmitCalls.Add(1)

	l.mu.Lock()
	r, ok := l.records[id]
	verified := ok && r.IsVerified()
	l.mu.Unlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %w", common.ErrVerificationRejected, common.ErrNotFound)
	case verified:
		return nil, common.ErrAlreadyVerified
	case len(proof) == 0:
		return nil, fmt.Errorf("%w: %w", common.ErrVerificationRejected, common.ErrInvalidProof)
	}

	values, err := fhe.DecodeClearValues(clearValues, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrVerificationRejected, err)
	}

	return &FakeTx{hash: "0xv" + id, apply: func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		r := l.records[id]
		if r.IsVerified() {
			return common.ErrAlreadyVerified
		}
		v := values[0]
		r.State = models.Verified
		r.VerifiedVictimCount = &v
		return nil
	}, block: l.nextBlock}, nil
}

func (l *FakeLedger) CheckAvailability(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

func (l *FakeLedger) ContractAddress(ctx context.Context) (keyx.Address, error) {
	return Contract, nil
}

func (l *FakeLedger) nextBlock() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.block++
	return l.block
}

// FakeTx applies its write on the first Wait.
type FakeTx struct {
	hash  string
	apply func() error
	block func() uint64

	once    sync.Once
	receipt *client.Receipt
	err     error
}

func (t *FakeTx) Hash() string {
	return t.hash
}

func (t *FakeTx) Wait(ctx context.Context) (*client.Receipt, error) {
	t.once.Do(func() {
		if t.err = t.apply(); t.err == nil {
			t.receipt = &client.Receipt{TxHash: t.hash, Block: t.block()}
		}
	})
	return t.receipt, t.err
}
