package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "https://grsai.dakka.com.cn", cfg.ProviderDomesticHost)
	assert.Equal(t, "https://grsaiapi.com", cfg.ProviderOverseasHost)
	assert.Equal(t, 3, cfg.ProviderAttemptsPerHost)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PROVIDER_HOST_MODE", "Overseas")
	t.Setenv("PROVIDER_OVERSEAS_HOST", "https://example.test/")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("PROVIDER_ATTEMPTS_PER_HOST", "5")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "overseas", cfg.ProviderHostMode)
	assert.Equal(t, "https://example.test", cfg.ProviderOverseasHost)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.ProviderAttemptsPerHost)
	assert.Equal(t, "cache:6380", cfg.RedisFullAddr())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download_dir: /srv/videos\n"), 0o600))

	Viper.SetConfigFile(path)
	t.Cleanup(func() {
		Viper = newViper()
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/srv/videos", cfg.DownloadDir)
}
