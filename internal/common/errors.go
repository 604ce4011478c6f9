package common

import (
	"errors"
	"fmt"
)

// Lifecycle errors. Callers match them with errors.Is; every one of them
// except ErrReadFailure may reach the presentation layer as a tagged failure.
var (
	ErrEncryptionFailure    = errors.New("encryption failure")
	ErrSubmissionRejected   = errors.New("submission rejected")
	ErrDecryptionFailure    = errors.New("decryption failure")
	ErrVerificationRejected = errors.New("verification rejected")
	ErrUserCancelled        = errors.New("cancelled by user")
	ErrReadFailure          = errors.New("read failure")

	// ErrAlreadyVerified is the recoverable sub-case of ErrVerificationRejected.
	ErrAlreadyVerified = fmt.Errorf("%w: already verified", ErrVerificationRejected)
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("identifier already exists")
	ErrInvalidProof      = errors.New("invalid proof")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOperationInFlight = errors.New("operation already in flight")
	ErrRateLimited       = errors.New("rate limited")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongPassword = errors.New("wrong password")
)

// AlreadyVerifiedReason is the revert reason the ledger reports when a
// verification loses the race against an earlier one.
const AlreadyVerifiedReason = "already verified"
