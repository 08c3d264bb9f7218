package config

import (
	"encoding/json"
	"os"

	"github.com/achildrenmile/qslcardgenerator/internal/flagx"
	"github.com/achildrenmile/qslcardgenerator/internal/timex"
)

// JsonConfig is the intermediate DTO for configuration file parsing. It
// uses timex.Duration so interval fields accept both strings such as "168h"
// and integer nanoseconds. Values are copied into the runtime Config after
// unmarshalling; zero values leave the current Config value untouched.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	DataDir         string         `json:"data_dir"`
	WebRoot         string         `json:"web_root"`
	SessionTTL      timex.Duration `json:"session_ttl"`
	SweepInterval   timex.Duration `json:"sweep_interval"`
	BcryptCost      int            `json:"bcrypt_cost"`
	LoginRateLimit  int            `json:"login_rate_limit"`
	LoginRateWindow timex.Duration `json:"login_rate_window"`
	MaxUploadBytes  int64          `json:"max_upload_bytes"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no file is named, nothing
// is loaded. An unreadable or malformed file panics: a half-applied config
// is worse than a failed start.
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
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != "" {
		config.Addr = c.Addr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}
	if c.WebRoot != "" {
		config.WebRoot = c.WebRoot
	}
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.LoginRateLimit != 0 {
		config.LoginRateLimit = c.LoginRateLimit
	}
	if c.LoginRateWindow.Duration != 0 {
		config.LoginRateWindow = c.LoginRateWindow.Duration
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
