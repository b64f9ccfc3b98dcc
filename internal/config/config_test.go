package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bankctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BANK_CONFIG_FILE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, []string{"/auth/login", "/auth/register"}, cfg.PublicPaths)
	assert.Equal(t, 10*time.Second, cfg.RefreshTimeout)
	assert.Equal(t, 100, cfg.ListPageSize)
	assert.Equal(t, StoreFile, cfg.Store)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
base_url: https://bank.example.com/
refresh_timeout: 3s
list_page_size: 25
store: memory
public_paths:
  - /auth/login
  - /auth/register
  - /auth/password-reset
`)
	t.Setenv("BANK_LIST_PAGE_SIZE", "50")
	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bank.example.com", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 3*time.Second, cfg.RefreshTimeout)
	assert.Equal(t, 50, cfg.ListPageSize, "env wins over file")
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Len(t, cfg.PublicPaths, 3)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "env", cfg.Sources["list_page_size"])
	assert.Equal(t, "file:"+path, cfg.Sources["refresh_timeout"])
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "BANK_REFRESH_TIMEOUT", "ten seconds"},
		{"bad page size", "BANK_LIST_PAGE_SIZE", "many"},
		{"unknown store", "BANK_CREDENTIAL_STORE", "floppy"},
		{"bad scheme", "BANK_API_BASE_URL", "ftp://bank"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			assert.Error(t, err)
		})
	}
}
