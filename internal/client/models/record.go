// Package models defines the relief records and lifecycle results the CLI
// works with.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

// VerificationState is the ledger-side state of a record's confidential value.
type VerificationState string

const (
	Unverified VerificationState = "unverified"
	Verified   VerificationState = "verified"
)

var ErrInconsistentRecord = errors.New("inconsistent record")

// Record is a read-only projection of a relief application as stored by the
// ledger. It is never mutated locally; callers re-read instead.
type Record struct {
	ID                string
	OrganizationName  string
	Location          string
	PublicSupplyCount uint64
	Handle            fhe.Handle
	CreatedAt         time.Time
	Creator           keyx.Address
	State             VerificationState

	// VerifiedVictimCount is set only for verified records.
	VerifiedVictimCount *uint64
}

// Validate checks that VerifiedVictimCount is present exactly when the
// record is verified.
func (r *Record) Validate() error {
	switch r.State {
	case Verified:
		if r.VerifiedVictimCount == nil {
			return fmt.Errorf("%w: %s is verified without a value", ErrInconsistentRecord, r.ID)
		}
	case Unverified:
		if r.VerifiedVictimCount != nil {
			return fmt.Errorf("%w: %s carries a value while unverified", ErrInconsistentRecord, r.ID)
		}
	default:
		return fmt.Errorf("%w: %s has state %q", ErrInconsistentRecord, r.ID, r.State)
	}
	return nil
}

func (r *Record) IsVerified() bool {
	return r.State == Verified
}

// VictimCount returns the verified value and whether there is one.
func (r *Record) VictimCount() (uint64, bool) {
	if r.State != Verified || r.VerifiedVictimCount == nil {
		return 0, false
	}
	return *r.VerifiedVictimCount, true
}

func (r Record) String() string {
	victims := "encrypted"
	if v, ok := r.VictimCount(); ok {
		victims = fmt.Sprintf("%d (verified)", v)
	}
	return fmt.Sprintf("%s | %s | %s | supplies: %d | victims: %s",
		r.ID, r.OrganizationName, r.Location, r.PublicSupplyCount, victims)
}
