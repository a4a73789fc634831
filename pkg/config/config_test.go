package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_BASE_URL", "AUTHCLIENT_BASE_URL", "AUTHCLIENT_TIMEOUT",
		"AUTHCLIENT_PROFILE", "AUTHCLIENT_STORAGE_TYPE", "AUTHCLIENT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, config.BaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, "/auth/refresh", config.RefreshPath)
	assert.Equal(t, "/auth/login", config.LoginPath)
	assert.Equal(t, "default", config.Profile)
	assert.Equal(t, "file", config.Storage.Type)
	assert.NotEmpty(t, config.Storage.FilePath)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "authclient.yaml")
	content := `
base_url: https://api.example.com/
timeout: 5s
profile: staging
log:
  level: debug
  format: json
storage:
  type: redis
  redis_addr: localhost:6379
encryption:
  enabled: true
  passphrase: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", config.BaseURL)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, "staging", config.Profile)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "redis", config.Storage.Type)
	assert.Equal(t, "localhost:6379", config.Storage.RedisAddr)
	assert.True(t, config.Encryption.Enabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHCLIENT_TIMEOUT", "2s")
	t.Setenv("AUTHCLIENT_STORAGE_TYPE", "memory")
	t.Setenv("API_BASE_URL", "http://backend:4000/api")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, config.Timeout)
	assert.Equal(t, "memory", config.Storage.Type)
	assert.Equal(t, "http://backend:4000/api", config.BaseURL)
}

func TestLoadConfig_PrefixedBaseURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "http://fallback/api")
	t.Setenv("AUTHCLIENT_BASE_URL", "http://primary/api")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://primary/api", config.BaseURL)
}

func TestLoad_BoundValues(t *testing.T) {
	clearEnv(t)

	v := viper.New()
	v.Set("profile", "from-flag")

	config, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", config.Profile)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"relative base url", func(c *Config) { c.BaseURL = "/api" }, false},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://host/api" }, false},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, false},
		{"empty profile", func(c *Config) { c.Profile = "" }, false},
		{"unknown storage", func(c *Config) { c.Storage.Type = "sqlite" }, false},
		{"redis without addr", func(c *Config) { c.Storage.Type = "redis" }, false},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, false},
		{"s3 with bucket", func(c *Config) { c.Storage.Type = "s3"; c.Storage.S3Bucket = "b" }, true},
		{"encryption without key", func(c *Config) { c.Encryption.Enabled = true }, false},
		{"encryption with kms", func(c *Config) {
			c.Encryption.Enabled = true
			c.Encryption.KMSKeyID = "alias/x"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
