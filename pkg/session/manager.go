// Package session keeps the signed-in user's credentials across runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/takutakahashi/authclient/pkg/client"
	"github.com/takutakahashi/authclient/pkg/credentials"
	"github.com/takutakahashi/authclient/pkg/logger"
	"github.com/takutakahashi/authclient/pkg/storage"
)

const (
	DefaultLoginPath  = "/auth/login"
	DefaultLogoutPath = "/auth/logout"
	DefaultProfile    = "default"
)

// ErrNotSignedIn is returned by operations that need stored credentials
var ErrNotSignedIn = errors.New("not signed in")

// LoginRequest is the body of the login call
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the user object returned by the login call
type User struct {
	ID    interface{} `json:"id"`
	Email string      `json:"email"`
	Role  string      `json:"role"`
}

// LoginResponse is the body returned by the login call
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Manager ties a client's credential store to persistent storage
type Manager struct {
	client     *client.Client
	storage    storage.Storage
	profile    string
	loginPath  string
	logoutPath string
	logger     logrus.FieldLogger

	mu       sync.RWMutex
	identity *Identity
}

// Option configures a Manager
type Option func(*Manager)

// WithProfile selects the storage profile
func WithProfile(profile string) Option {
	return func(m *Manager) {
		if profile != "" {
			m.profile = profile
		}
	}
}

// WithLoginPath overrides the login endpoint path
func WithLoginPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.loginPath = path
		}
	}
}

// WithLogoutPath overrides the logout endpoint path
func WithLogoutPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.logoutPath = path
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager and registers it as c's renewal hook, so
// renewed credentials are written back to s
func NewManager(c *client.Client, s storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		client:     c,
		storage:    s,
		profile:    DefaultProfile,
		loginPath:  DefaultLoginPath,
		logoutPath: DefaultLogoutPath,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithField("profile", m.profile)

	c.Coordinator().OnRenew(m.Persist)
	return m
}

// Profile returns the storage profile
func (m *Manager) Profile() string {
	return m.profile
}

// Bootstrap loads the stored credentials into the client.
// Having nothing stored is not an error.
func (m *Manager) Bootstrap(ctx context.Context) (*Identity, error) {
	record, err := m.storage.Load(ctx, m.profile)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Debug("no stored credentials")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	m.client.Store().Set(record.Pair())
	return m.setIdentity(record.AccessToken), nil
}

// Login exchanges email and password for a credential pair and stores it
func (m *Manager) Login(ctx context.Context, email, password string) (*Identity, error) {
	req, err := client.NewJSONRequest(http.MethodPost, m.loginPath, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req.Anonymous = true

	var resp LoginResponse
	if err := m.client.DoJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("failed to log in: response carries no access token")
	}

	identity, err := m.Adopt(ctx, credentials.Pair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	// tokens without identity claims fall back to the user object
	if identity == nil && resp.User != nil {
		identity = &Identity{
			UserID: fmt.Sprint(resp.User.ID),
			Email:  resp.User.Email,
			Role:   resp.User.Role,
		}
		m.mu.Lock()
		m.identity = identity
		m.mu.Unlock()
	}
	return identity, nil
}

// Adopt stores an already obtained credential pair
func (m *Manager) Adopt(ctx context.Context, pair credentials.Pair) (*Identity, error) {
	if err := m.storage.Save(ctx, m.profile, storage.NewRecord(pair)); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	m.client.Store().Set(pair)
	m.logger.Info("signed in")
	return m.setIdentity(pair.AccessToken), nil
}

// Logout forgets the credentials locally
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.storage.Delete(ctx, m.profile); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	m.client.Store().Clear()

	m.mu.Lock()
	m.identity = nil
	m.mu.Unlock()

	m.logger.Info("signed out")
	return nil
}

// LogoutRemote asks the backend to revoke the refresh token, then logs out
// locally. The remote call is best effort.
func (m *Manager) LogoutRemote(ctx context.Context) error {
	pair := m.client.Store().Current()
	if pair.RefreshToken != "" {
		req, err := client.NewJSONRequest(http.MethodPost, m.logoutPath, map[string]string{"refreshToken": pair.RefreshToken})
		if err != nil {
			return err
		}
		req.Anonymous = true
		if _, err := m.client.Do(ctx, req); err != nil {
			m.logger.WithError(err).Warn("remote logout failed")
		}
	}
	return m.Logout(ctx)
}

// Persist writes a renewed pair back to storage.
// It runs as the client's renewal hook, so failures are logged, not returned.
func (m *Manager) Persist(ctx context.Context, pair credentials.Pair) {
	if err := m.storage.Save(ctx, m.profile, storage.NewRecord(pair)); err != nil {
		m.logger.WithError(err).Error("failed to persist renewed credentials")
		return
	}
	m.setIdentity(pair.AccessToken)
	m.logger.Debug("renewed credentials persisted")
}

// Identity returns the signed-in user, or nil
func (m *Manager) Identity() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.identity == nil {
		return nil
	}
	identity := *m.identity
	return &identity
}

// Require returns the identity or ErrNotSignedIn
func (m *Manager) Require() (*Identity, error) {
	identity := m.Identity()
	if identity == nil && m.client.Store().Current().IsZero() {
		return nil, ErrNotSignedIn
	}
	return identity, nil
}

func (m *Manager) setIdentity(accessToken string) *Identity {
	identity, err := DecodeIdentity(accessToken)
	if err != nil {
		m.logger.WithError(err).Debug("access token carries no readable identity")
		identity = nil
	}

	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()

	if identity == nil {
		return nil
	}
	copied := *identity
	return &copied
}
