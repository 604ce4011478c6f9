// Package config loads runtime configuration for the relief CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the ledger node gRPC endpoint
//	-i int      online status check interval (seconds)
//	-w string   keystore path
//	-j string   journal database path
//	-v string   log level
//
// # JSON schema
//
//	{
//	  "node_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "keystore_path": "relief/keystore.json",
//	  "journal_path": "relief/journal.db",
//	  "log_level": "warn"
//	}
package config
