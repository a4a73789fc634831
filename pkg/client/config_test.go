package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_BASE_URL",
		"AUTHCLIENT_BASE_URL",
		"AUTHCLIENT_REFRESH_PATH",
		"AUTHCLIENT_TIMEOUT",
		"AUTHCLIENT_STORAGE_TYPE",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearClientEnv(t)

		config, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, config.BaseURL)
		assert.Equal(t, "/auth/refresh", config.RefreshPath)
		assert.Equal(t, 30*time.Second, config.Timeout)
	})

	t.Run("overrides", func(t *testing.T) {
		clearClientEnv(t)
		t.Setenv("API_BASE_URL", "https://api.example.com/")
		t.Setenv("AUTHCLIENT_REFRESH_PATH", "/token")
		t.Setenv("AUTHCLIENT_TIMEOUT", "5s")

		c, config, err := NewClientFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com", c.BaseURL())
		assert.Equal(t, "/token", config.RefreshPath)
		assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	})

	t.Run("prefixed base URL wins", func(t *testing.T) {
		clearClientEnv(t)
		t.Setenv("API_BASE_URL", "https://fallback.example.com")
		t.Setenv("AUTHCLIENT_BASE_URL", "https://primary.example.com")

		config, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "https://primary.example.com", config.BaseURL)
	})

	t.Run("bad timeout", func(t *testing.T) {
		clearClientEnv(t)
		t.Setenv("AUTHCLIENT_TIMEOUT", "soon")
		_, err := ConfigFromEnv()
		assert.Error(t, err)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		clearClientEnv(t)
		t.Setenv("AUTHCLIENT_BASE_URL", "not a url")
		_, err := ConfigFromEnv()
		assert.Error(t, err)
	})
}
