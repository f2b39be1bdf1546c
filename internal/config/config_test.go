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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, int64(268435456), cfg.Server.MaxUploadSize)
	assert.Equal(t, "AES-256-GCM", cfg.Crypto.Algorithm)
	assert.Equal(t, 300*time.Millisecond, cfg.Pipeline.PreviewThrottle)
	assert.Equal(t, 64, cfg.Pipeline.PreviewCacheSize)
	assert.False(t, cfg.Limits.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_LISTEN", ":9090")
	t.Setenv("CRYPTO_ALGORITHM", "ChaCha20-Poly1305")
	t.Setenv("PIPELINE_PREVIEW_THROTTLE", "1s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "ChaCha20-Poly1305", cfg.Crypto.Algorithm)
	assert.Equal(t, time.Second, cfg.Pipeline.PreviewThrottle)
}

func TestLoadFile(t *testing.T) {
	t.Run("env vars still win over file values", func(t *testing.T) {
		t.Setenv("SERVER_LISTEN", ":9999")

		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		data := []byte("server:\n  listen: \":7070\"\n")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9999", cfg.Server.Listen)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("unknown algorithm", func(t *testing.T) {
		t.Setenv("CRYPTO_ALGORITHM", "ROT13")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported crypto algorithm")
	})

	t.Run("rate limits must be positive when enabled", func(t *testing.T) {
		t.Setenv("LIMITS_ENABLED", "true")
		t.Setenv("LIMITS_GLOBAL_RPS", "0")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("zero cache size rejected", func(t *testing.T) {
		t.Setenv("PIPELINE_PREVIEW_CACHE_SIZE", "0")
		_, err := Load("")
		require.Error(t, err)
	})
}
