package acmex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateAccountKey_CreatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme", "account.key")

	key, err := LoadOrCreateAccountKey(path)
	require.NoError(t, err)
	require.NotNil(t, key)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN PRIVATE KEY")
}

func TestLoadOrCreateAccountKey_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.key")

	first, err := LoadOrCreateAccountKey(path)
	require.NoError(t, err)

	second, err := LoadOrCreateAccountKey(path)
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "loading twice must return identical key material")
}

func TestLoadOrCreateAccountKey_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.key")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := LoadOrCreateAccountKey(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse account key")
}
