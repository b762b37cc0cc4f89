package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "TABLE_PREFIX", "LLM_MAX_RETRIES", "LLM_RETRY_BASE_DELAY", "AUTO_MIGRATE", "JWT_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 3, cfg.LLMMaxRetries)
	assert.Equal(t, 5*time.Second, cfg.LLMRetryBaseDelay)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLMModel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("AUTO_MIGRATE", "")
	t.Setenv("LLM_MAX_RETRIES", "5")
	t.Setenv("LLM_RETRY_BASE_DELAY", "250")
	t.Setenv("CACHE_TTL", "2m")

	cfg := Load()

	assert.Equal(t, "prod_", cfg.TablePrefix)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 5, cfg.LLMMaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.LLMRetryBaseDelay)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
}

func TestSetupLogFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"server-2020-01-01T00-00-00.log", "server-2020-01-02T00-00-00.log", "server-2020-01-03T00-00-00.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "server-*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, f.Name())
}
