// Package cli provides the interactive relief command-line client.
//
// It unlocks the wallet, then runs a REPL over the record service while a
// background watcher probes node availability. Typical flow: create a
// record, list records, request decryption of a record's victim count.
//
// Commands:
//   - create: encrypt a victim count and submit a new record
//   - list / search / show: read records from the ledger
//   - decrypt: decrypt and verify a record's victim count
//   - check / stats / history: node availability, summary, local journal
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
