// Package records stores relief records and ledger transactions.
package records

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/server/models"
)

// Repository is the ledger's durable state.
//
// Create fails with common.ErrAlreadyExists on an identifier collision.
// MarkVerified is a conditional write: it fails with common.ErrNotFound for an
// unknown record and common.ErrAlreadyVerified when the record is verified.
type Repository interface {
	Create(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	MarkVerified(ctx context.Context, id string, value uint64) error

	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, hash string) (*models.Transaction, error)
	// LastBlock returns the highest block a transaction was applied in, or 0.
	LastBlock(ctx context.Context) (uint64, error)

	Ping(ctx context.Context) error
}
