package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over .env values (godotenv does not overwrite).
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PORT"); v != "" {
		config.Addr = ":" + v
	}
	if v := os.Getenv("QSL_ADDR"); v != "" {
		config.Addr = v
	}
	if v := os.Getenv("QSL_DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("QSL_DATA_DIR"); v != "" {
		config.DataDir = v
	}
	if v := os.Getenv("QSL_WEB_ROOT"); v != "" {
		config.WebRoot = v
	}
	if v := os.Getenv("QSL_S3_ACCESS_KEY"); v != "" {
		config.S3AccessKey = v
	}
	if v := os.Getenv("QSL_S3_SECRET_KEY"); v != "" {
		config.S3SecretKey = v
	}
	if v := os.Getenv("QSL_S3_BUCKET"); v != "" {
		config.S3Bucket = v
	}
	if v := os.Getenv("QSL_S3_REGION"); v != "" {
		config.S3Region = v
	}
	if v := os.Getenv("QSL_S3_ENDPOINT"); v != "" {
		config.S3BaseEndpoint = v
	}
}
