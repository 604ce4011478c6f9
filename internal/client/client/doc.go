// Package client is the CLI's boundary to the ledger node.
//
// # Overview
//
// LedgerClient is the transport-agnostic contract the lifecycle core
// depends on: record reads, ciphertext handle lookup, record creation,
// verification submission and a liveness probe. Writes return a
// Transaction that can be awaited until the node's sequencer applied or
// reverted it.
//
// GRPCClient implements LedgerClient over gRPC with the JSON codec from
// internal/rpc. It also exposes the oracle calls the encryption capability
// needs. A unary interceptor attaches the bearer token and transparently
// logs in again with the wallet key when the node answers Unauthenticated.
// Every write is passed to the wallet approval step before it is sent.
//
// # Error Handling
//
// gRPC statuses are mapped back to sentinels: ErrUnavailable,
// ErrUnauthorized, common.ErrNotFound, common.ErrSubmissionRejected,
// common.ErrVerificationRejected and its recoverable sub-case
// common.ErrAlreadyVerified. Reverted receipts map the same way from their
// reason string.
//
// InitDatabase opens the local SQLite journal and applies its embedded
// goose migrations.
package client
