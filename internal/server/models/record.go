// Package models defines the node's persisted state: relief records and the
// write transactions that produce them.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

// Record is a relief application as stored by the ledger.
// VerifiedVictimCount is non-nil exactly when Verified is set.
type Record struct {
	ID                  string
	OrganizationName    string
	Location            string
	PublicSupplyCount   uint64
	Handle              fhe.Handle
	Creator             keyx.Address
	CreatedAt           time.Time
	Verified            bool
	VerifiedVictimCount *uint64
}
