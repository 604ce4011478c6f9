// Package operations is the CLI's local journal of transaction status
// events. It records what the user did; it is never consulted for record
// state, which always comes from the ledger.
package operations

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
)

type Repository interface {
	Append(ctx context.Context, s models.TxStatus) error
	// Recent returns at most limit events, newest first.
	Recent(ctx context.Context, limit int) ([]models.TxStatus, error)
	// ForRecord returns the events of one record, oldest first.
	ForRecord(ctx context.Context, recordID string) ([]models.TxStatus, error)
}
