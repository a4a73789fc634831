package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/takutakahashi/authclient/pkg/storage"
)

const (
	// EnvPrefix prefixes every environment variable read by LoadConfig
	EnvPrefix = "AUTHCLIENT"

	DefaultBaseURL     = "http://localhost:4000/api"
	DefaultRefreshPath = "/auth/refresh"
	DefaultLoginPath   = "/auth/login"
	DefaultLogoutPath  = "/auth/logout"
	DefaultProfile     = "default"
	DefaultTimeout     = 30 * time.Second
)

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// Config represents the client configuration
type Config struct {
	// BaseURL is the API root every request path is resolved against
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	RefreshPath string        `json:"refresh_path" mapstructure:"refresh_path"`
	LoginPath   string        `json:"login_path" mapstructure:"login_path"`
	LogoutPath  string        `json:"logout_path" mapstructure:"logout_path"`
	// Profile selects which stored credentials are used
	Profile string `json:"profile" mapstructure:"profile"`

	Log        LogConfig                `json:"log" mapstructure:"log"`
	Storage    storage.StorageConfig    `json:"storage" mapstructure:"storage"`
	Encryption storage.EncryptionConfig `json:"encryption" mapstructure:"encryption"`
}

// DefaultCredentialsPath returns the default credential file location
func DefaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "authclient", "credentials.json")
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		RefreshPath: DefaultRefreshPath,
		LoginPath:   DefaultLoginPath,
		LogoutPath:  DefaultLogoutPath,
		Profile:     DefaultProfile,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: storage.StorageConfig{
			Type:     "file",
			FilePath: DefaultCredentialsPath(),
		},
	}
}

// setDefaults registers every key so environment variables are picked up by Unmarshal
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("refresh_path", d.RefreshPath)
	v.SetDefault("login_path", d.LoginPath)
	v.SetDefault("logout_path", d.LogoutPath)
	v.SetDefault("profile", d.Profile)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.file_path", d.Storage.FilePath)
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.prefix", "")

	v.SetDefault("encryption.enabled", false)
	v.SetDefault("encryption.passphrase", "")
	v.SetDefault("encryption.kms_key_id", "")
	v.SetDefault("encryption.kms_region", "")
}

// LoadConfig loads configuration from an optional file, AUTHCLIENT_*
// environment variables and defaults
func LoadConfig(filename string) (*Config, error) {
	return Load(viper.New(), filename)
}

// Load reads configuration into v, which may already carry bound flags.
// An empty filename skips the config file.
func Load(v *viper.Viper, filename string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_BASE_URL is the variable the backend's own tooling uses
	if err := v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind base_url: %w", err)
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values the client cannot work with
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Profile == "" {
		return fmt.Errorf("profile must not be empty")
	}

	switch c.Storage.Type {
	case "memory", "":
	case "file":
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required for file storage")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for redis storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Encryption.Enabled && c.Encryption.Passphrase == "" && c.Encryption.KMSKeyID == "" {
		return fmt.Errorf("encryption requires a passphrase or a KMS key ID")
	}
	return nil
}
