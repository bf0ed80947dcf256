package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:7233", cfg.TemporalAddress)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, letsEncryptProduction, cfg.ACMEDirectoryURL)
	assert.NotEmpty(t, cfg.ACMEAccountKeyPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CORE_DATABASE_URL", "postgres://core")
	t.Setenv("ACME_DIRECTORY_URL", "https://acme-staging-v02.api.letsencrypt.org/directory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://core", cfg.CoreDatabaseURL)
	assert.Equal(t, "https://acme-staging-v02.api.letsencrypt.org/directory", cfg.ACMEDirectoryURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORE_DATABASE_URL")
}

func TestValidate_WorkerRequiresACMESettings(t *testing.T) {
	cfg := &Config{CoreDatabaseURL: "postgres://core", ACMEDirectoryURL: "https://example.com/dir", ACMEAccountKeyPath: "/tmp/key"}
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACME_EMAIL")

	cfg.ACMEEmail = "ops@example.com"
	assert.NoError(t, cfg.Validate("worker"))
}

func TestValidate_API(t *testing.T) {
	cfg := &Config{CoreDatabaseURL: "postgres://core", HTTPListenAddr: ":8080"}
	assert.NoError(t, cfg.Validate("api"))
}
