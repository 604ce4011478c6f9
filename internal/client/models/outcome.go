package models

import "fmt"

// Outcome is the result of a decryption request. The set of variants is
// closed: LocallyDecryptedUnverified, OnChainVerified, AlreadyVerified and
// Failed. Consumers switch on the concrete type.
type Outcome interface {
	outcome()
	String() string
}

// LocallyDecryptedUnverified carries a value the oracle produced and the
// ledger accepted, but which a re-read did not yet show as verified. It must
// not be treated as the record's verified value.
type LocallyDecryptedUnverified struct {
	Value uint64
}

// OnChainVerified carries the value read back from the ledger after this
// request's verification was applied.
type OnChainVerified struct {
	Value uint64
}

// AlreadyVerified carries the value stored by an earlier verification.
type AlreadyVerified struct {
	Value uint64
}

// Failed leaves the record unverified. The request may be retried.
type Failed struct {
	Reason string
	Err    error
}

func (LocallyDecryptedUnverified) outcome() {}
func (OnChainVerified) outcome()            {}
func (AlreadyVerified) outcome()            {}
func (Failed) outcome()                     {}

func (o LocallyDecryptedUnverified) String() string {
	return fmt.Sprintf("decrypted locally, not yet verified on the ledger: %d", o.Value)
}

func (o OnChainVerified) String() string {
	return fmt.Sprintf("verified on the ledger: %d", o.Value)
}

func (o AlreadyVerified) String() string {
	return fmt.Sprintf("already verified: %d", o.Value)
}

func (o Failed) String() string {
	return "failed: " + o.Reason
}

// NewFailed builds a Failed outcome whose reason is err's message.
func NewFailed(err error) Failed {
	return Failed{Reason: err.Error(), Err: err}
}

// TrustedValue returns the value of a verified outcome. Locally decrypted
// values are deliberately not returned.
func TrustedValue(o Outcome) (uint64, bool) {
	switch v := o.(type) {
	case OnChainVerified:
		return v.Value, true
	case AlreadyVerified:
		return v.Value, true
	default:
		return 0, false
	}
}
