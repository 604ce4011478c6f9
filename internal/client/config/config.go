package config

import "time"

// Config holds runtime settings for the relief CLI.
//
// Fields:
//   - NodeEndpointAddr: host:port of the ledger node gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes node availability.
//   - KeystorePath: file holding the password-sealed signing key.
//   - JournalPath: SQLite file with the local operation journal.
//   - LogLevel: level of the diagnostic log written to stderr.
type Config struct {
	NodeEndpointAddr    string
	OnlineCheckInterval time.Duration
	KeystorePath        string
	JournalPath         string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.NodeEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.KeystorePath = "relief/keystore.json"
	c.JournalPath = "relief/journal.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
