// Package config handles configuration for the ledger node,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the ledger node.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the Ledger and Oracle gRPC services.
//   - MetricsAddr: bind address for /metrics and /healthz.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps records in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration: access token lifetime.
//   - OracleKeysDir: directory holding the oracle key files. Empty generates ephemeral keys.
//   - ContractAddress: the verifier identity proofs are bound to.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     ciphertext storage. Empty bucket keeps ciphertexts in memory.
//   - DecryptionsPerMinute: per-requester oracle limit, 0 disables it.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrGRPC            string
	MetricsAddr                 string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	OracleKeysDir               string
	ContractAddress             string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	DecryptionsPerMinute        int
	LogLevel                    string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9090"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.OracleKeysDir = "oracle-keys"
	c.ContractAddress = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.DecryptionsPerMinute = 30
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
