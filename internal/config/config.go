package config

import (
	"fmt"
	"os"
)

type Config struct {
	CoreDatabaseURL string
	RedisURL        string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// ACME settings. The account key path is a filesystem artifact that must
	// survive restarts; its presence means "reuse this CA identity".
	ACMEDirectoryURL   string
	ACMEEmail          string
	ACMEAccountKeyPath string
}

const letsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"

func Load() (*Config, error) {
	cfg := &Config{
		CoreDatabaseURL:    getEnv("CORE_DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		TemporalAddress:    getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:     getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServiceName:        getEnv("SERVICE_NAME", ""),
		ACMEDirectoryURL:   getEnv("ACME_DIRECTORY_URL", letsEncryptProduction),
		ACMEEmail:          getEnv("ACME_EMAIL", ""),
		ACMEAccountKeyPath: getEnv("ACME_ACCOUNT_KEY_PATH", "/var/lib/flarecloud/acme/account.key"),
	}

	return cfg, nil
}

// Validate checks the settings required by the given component
// ("api" or "worker").
func (c *Config) Validate(component string) error {
	if c.CoreDatabaseURL == "" {
		return fmt.Errorf("%s: CORE_DATABASE_URL is required", component)
	}

	switch component {
	case "api":
		if c.HTTPListenAddr == "" {
			return fmt.Errorf("api: HTTP_LISTEN_ADDR is required")
		}
	case "worker":
		if c.ACMEEmail == "" {
			return fmt.Errorf("worker: ACME_EMAIL is required")
		}
		if c.ACMEDirectoryURL == "" {
			return fmt.Errorf("worker: ACME_DIRECTORY_URL is required")
		}
		if c.ACMEAccountKeyPath == "" {
			return fmt.Errorf("worker: ACME_ACCOUNT_KEY_PATH is required")
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
