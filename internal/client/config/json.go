package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelief/internal/flagx"
	"github.com/dmitrijs2005/gophrelief/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	NodeEndpointAddr    string          `json:"node_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	KeystorePath        string          `json:"keystore_path"`
	JournalPath         string          `json:"journal_path"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Keys absent from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.NodeEndpointAddr, jc.NodeEndpointAddr)
	setString(&cfg.KeystorePath, jc.KeystorePath)
	setString(&cfg.JournalPath, jc.JournalPath)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
