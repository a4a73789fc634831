package client

import (
	"time"

	"github.com/spf13/viper"
	"github.com/takutakahashi/authclient/pkg/config"
	"github.com/takutakahashi/authclient/pkg/utils"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = config.DefaultBaseURL

// Config holds the client configuration
type Config struct {
	BaseURL     string
	RefreshPath string
	Timeout     time.Duration
}

// ConfigFromEnv creates a client configuration from AUTHCLIENT_* environment
// variables and defaults, resolved the same way as config.LoadConfig.
// API_BASE_URL is honoured when AUTHCLIENT_BASE_URL is unset.
func ConfigFromEnv() (*Config, error) {
	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		return nil, err
	}

	return &Config{
		BaseURL:     cfg.BaseURL,
		RefreshPath: cfg.RefreshPath,
		Timeout:     cfg.Timeout,
	}, nil
}

// NewClientFromConfig creates a client from config; opts are applied after
// the options derived from config
func NewClientFromConfig(config *Config, opts ...Option) *Client {
	httpClient := utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: config.Timeout})

	base := []Option{
		WithHTTPClient(httpClient),
		WithRefreshPath(config.RefreshPath),
	}
	return NewClient(config.BaseURL, append(base, opts...)...)
}

// NewClientFromEnv creates a new client from environment variables
func NewClientFromEnv(opts ...Option) (*Client, *Config, error) {
	config, err := ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}

	return NewClientFromConfig(config, opts...), config, nil
}
