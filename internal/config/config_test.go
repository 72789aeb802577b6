package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "DANGDOC_STORAGE", "DANGDOC_API_BASE_URL", "DANGDOC_HTTP_TIMEOUT", "DANGDOC_LOOKUP_CONCURRENCY", "DANGDOC_NUTRITION_CACHE_TTL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.LookupConcurrency)
	assert.Equal(t, 168*time.Hour, cfg.NutritionCacheTTL)
}

func TestLoadReadsDotenvWithoutOverridingEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DANGDOC_API_BASE_URL=https://dotenv.example\nDANGDOC_KAKAO_CLIENT_ID=kakao-123\n"), 0o600))

	t.Setenv("DANGDOC_API_BASE_URL", "https://env.example")
	unsetenv(t, "DANGDOC_KAKAO_CLIENT_ID")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.APIBaseURL)
	assert.Equal(t, "kakao-123", cfg.KakaoClientID)
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	t.Setenv("DANGDOC_STORAGE", "etcd")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	cfg := Config{Storage: StorageMemory, LookupConcurrency: 0, HTTPTimeout: time.Second}
	assert.Error(t, cfg.Validate())
}

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestExchangeURL(t *testing.T) {
	cfg := Config{APIBaseURL: "https://api.example/"}
	assert.Equal(t, "https://api.example/auth/kakao/callback", cfg.ExchangeURL())

	cfg.KakaoExchangeURL = "https://auth.example/kakao/exchange"
	assert.Equal(t, "https://auth.example/kakao/exchange", cfg.ExchangeURL())
}
