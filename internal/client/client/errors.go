package client

import "errors"

var (
	ErrUnavailable     = errors.New("node unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrMalformedRecord = errors.New("malformed record")
	// ErrOutcomeUnknown means a submitted transaction could not be confirmed
	// or ruled out; it may still be applied.
	ErrOutcomeUnknown  = errors.New("transaction outcome unknown")
)
