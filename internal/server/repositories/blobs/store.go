// Package blobs stores ciphertext bodies addressed by their handle.
//
// The ledger keeps only the 32-byte handle on a record; the ciphertext
// itself lives in a Store so the decryption oracle can fetch it later.
package blobs

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
)

// Store is a content-addressed ciphertext store. Get reports
// common.ErrNotFound for an unknown handle.
type Store interface {
	Put(ctx context.Context, h fhe.Handle, data []byte) error
	Get(ctx context.Context, h fhe.Handle) ([]byte, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[fhe.Handle][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[fhe.Handle][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, h fhe.Handle, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[h] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, h fhe.Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[h]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}
