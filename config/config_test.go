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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Workers, cfg.Workers)
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.Equal(t, 1, cfg.Burst)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvVisionURL, "https://vision.local/api/dlapis/8f80467f")
	t.Setenv(EnvInsecureTLS, "true")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvRateLimit, "2.5")
	t.Setenv(EnvBurst, "4")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://vision.local/api/dlapis/8f80467f", cfg.VisionURL)
	assert.True(t, cfg.InsecureTLS)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 4, cfg.Burst)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable workers", EnvWorkers, "many"},
		{"too many workers", EnvWorkers, "1000"},
		{"bad duration", EnvTimeout, "soon"},
		{"bad url", EnvVisionURL, "not a url"},
		{"bad level", EnvLogLevel, "chatty"},
		{"bad bool", EnvInsecureTLS, "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	require.NoError(t, os.Unsetenv(EnvVisionAuth))
	t.Cleanup(func() { _ = os.Unsetenv(EnvVisionAuth) })

	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte(EnvVisionAuth+"=\"Basic dGVzdDp0ZXN0\"\n"), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "Basic dGVzdDp0ZXN0", cfg.VisionAuth)
}
