// Package services contains the application services of the relief CLI.
//
// RecordService is the record lifecycle controller: it creates records,
// refreshes the record list from the ledger and runs decryption requests,
// publishing a TxStatus for every step. AuthService connects the wallet to a
// node and pins the node's identity on first use.
package services
