// Package common contains constants and sentinel errors shared by the relief
// CLI and the ledger node.
package common

// AccessTokenHeaderName is the gRPC metadata key carrying the bearer token
// on signed requests.
const AccessTokenHeaderName = "access_token"

// RecordIDPrefix is prepended to every generated record identifier.
const RecordIDPrefix = "relief-"
