package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the ledger node
//	-i int      online check interval in seconds
//	-w string   keystore path
//	-j string   journal database path
//	-v string   log level
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-w", "-j", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.NodeEndpointAddr, "a", cfg.NodeEndpointAddr, "address and port of the ledger node")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.KeystorePath, "w", cfg.KeystorePath, "keystore path")
	fs.StringVar(&cfg.JournalPath, "j", cfg.JournalPath, "journal database path")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
