package records

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/server/models"
)

// MemoryRepository keeps ledger state in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]models.Record
	txs     map[string]models.Transaction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]models.Record),
		txs:     make(map[string]models.Transaction),
	}
}

func (r *MemoryRepository) Create(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return common.ErrAlreadyExists
	}
	r.records[rec.ID] = copyRecord(*rec)
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (r *MemoryRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[id]
	return ok, nil
}

func (r *MemoryRepository) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...), nil
}

func (r *MemoryRepository) MarkVerified(_ context.Context, id string, value uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return common.ErrNotFound
	}
	if rec.Verified {
		return common.ErrAlreadyVerified
	}

	rec.Verified = true
	rec.VerifiedVictimCount = &value
	r.records[id] = rec
	return nil
}

func (r *MemoryRepository) SaveTransaction(_ context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[t.Hash]; ok {
		return common.ErrAlreadyExists
	}
	r.txs[t.Hash] = *t
	return nil
}

func (r *MemoryRepository) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[t.Hash]; !ok {
		return common.ErrNotFound
	}
	r.txs[t.Hash] = *t
	return nil
}

func (r *MemoryRepository) GetTransaction(_ context.Context, hash string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.txs[hash]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) LastBlock(context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last uint64
	for _, t := range r.txs {
		last = max(last, t.Block)
	}
	return last, nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func copyRecord(rec models.Record) models.Record {
	if rec.VerifiedVictimCount != nil {
		v := *rec.VerifiedVictimCount
		rec.VerifiedVictimCount = &v
	}
	return rec
}
