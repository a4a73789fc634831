package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/takutakahashi/authclient/pkg/client"
	"github.com/takutakahashi/authclient/pkg/config"
	"github.com/takutakahashi/authclient/pkg/logger"
	"github.com/takutakahashi/authclient/pkg/session"
	"github.com/takutakahashi/authclient/pkg/storage"
	"gopkg.in/yaml.v3"
)

// environment is everything a command needs to talk to the API
type environment struct {
	config  *config.Config
	log     *logrus.Logger
	client  *client.Client
	storage storage.Storage
	session *session.Manager
}

// setup loads configuration, opens credential storage and restores the
// stored session into a new client
func setup(ctx context.Context) (*environment, error) {
	if envFile := viper.GetString("env_file"); envFile != "" {
		vars, err := config.LoadEnvFile(envFile)
		if err != nil {
			return nil, err
		}
		config.ApplyEnvVars(vars)
	}

	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if viper.GetBool("verbose") {
		level = logrus.DebugLevel.String()
	}
	log, err := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, Output: os.Stderr})
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Storage, cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}

	c := client.NewClientFromConfig(&client.Config{
		BaseURL:     cfg.BaseURL,
		RefreshPath: cfg.RefreshPath,
		Timeout:     cfg.Timeout,
	}, client.WithLogger(log))

	mgr := session.NewManager(c, store,
		session.WithProfile(cfg.Profile),
		session.WithLoginPath(cfg.LoginPath),
		session.WithLogoutPath(cfg.LogoutPath),
		session.WithLogger(log),
	)
	if _, err := mgr.Bootstrap(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"base_url": cfg.BaseURL,
		"profile":  cfg.Profile,
		"storage":  cfg.Storage.Type,
	}).Debug("client ready")

	return &environment{
		config:  cfg,
		log:     log,
		client:  c,
		storage: store,
		session: mgr,
	}, nil
}

func (e *environment) Close() {
	if err := e.storage.Close(); err != nil {
		e.log.WithError(err).Warn("failed to close credential storage")
	}
}

// render writes v as text, json or yaml
func render(w io.Writer, format string, v interface{}, text func(io.Writer) error) error {
	switch format {
	case "", "text":
		return text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
