package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelief/internal/flagx"
	"github.com/dmitrijs2005/gophrelief/internal/timex"
)

// JsonConfig is the on-disk shape of the node configuration. Interval fields
// use timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	MetricsAddr                 string          `json:"metrics_addr"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	OracleKeysDir               *string         `json:"oracle_keys_dir"`
	ContractAddress             string          `json:"contract_address"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	DecryptionsPerMinute        *int            `json:"decryptions_per_minute"`
	LogLevel                    string          `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config. Absent
// keys keep their current value; pointer fields allow an explicit empty
// string or zero to switch a backend off. Unreadable or invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.ContractAddress, c.ContractAddress)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.OracleKeysDir != nil {
		config.OracleKeysDir = *c.OracleKeysDir
	}
	if c.S3Bucket != nil {
		config.S3Bucket = *c.S3Bucket
	}
	if c.DecryptionsPerMinute != nil {
		config.DecryptionsPerMinute = *c.DecryptionsPerMinute
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
