// Package config handles configuration for the server component: defaults,
// .env/environment overlay, optional JSON file, and command-line flags, in
// that order.
package config

import "time"

// Config holds runtime settings for the QSL card generator server.
type Config struct {
	// Addr is the HTTP bind address, e.g. ":3000".
	Addr string
	// DatabaseDSN selects the backend: an SQLite file path, or a
	// postgres:// URL.
	DatabaseDSN string
	// DataDir is the root for the callsign store file and, with the
	// filesystem backend, uploaded images.
	DataDir string
	// WebRoot, when the directory exists, is served as the static frontend.
	WebRoot string

	// SessionTTL is the fixed session lifetime from issuance; sessions are
	// not renewed on use.
	SessionTTL time.Duration
	// SweepInterval is how often expired sessions are purged.
	SweepInterval time.Duration
	// BcryptCost is the password hash cost factor.
	BcryptCost int

	// LoginRateLimit failed-or-not login attempts are allowed per source
	// address per LoginRateWindow.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// MaxUploadBytes caps multipart image uploads.
	MaxUploadBytes int64

	// S3 settings; images move to the bucket when S3Bucket is set.
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":3000"
	c.DatabaseDSN = "data/qslcard.db"
	c.DataDir = "data"
	c.WebRoot = "public"
	c.SessionTTL = 7 * 24 * time.Hour
	c.SweepInterval = time.Hour
	c.BcryptCost = 12
	c.LoginRateLimit = 10
	c.LoginRateWindow = 15 * time.Minute
	c.MaxUploadBytes = 10 << 20
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file), an optional JSON
// file, and finally command-line flags.
func LoadConfig() *Config {
	cfg := LoadConfigNoFlags()
	parseFlags(cfg)
	return cfg
}

// LoadConfigNoFlags is LoadConfig without the command-line pass, for tools
// that parse their own arguments.
func LoadConfigNoFlags() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	return cfg
}
