// Package mockapi is a development backend speaking the authclient protocol:
// short-lived JWT access tokens and single-use rotating refresh tokens.
package mockapi

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/takutakahashi/authclient/pkg/logger"
	"github.com/takutakahashi/authclient/pkg/utils"
)

const (
	DefaultBasePath   = "/api"
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	DefaultCleanupInterval = time.Minute
)

// User is an account known to the mock backend
type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// DefaultUsers returns one account per role
func DefaultUsers() []User {
	return []User{
		{ID: 1, Email: "candidate@example.com", Password: "password", Role: "candidate"},
		{ID: 2, Email: "company@example.com", Password: "password", Role: "company"},
	}
}

// Options configures a Server
type Options struct {
	// Secret signs access tokens; a random secret is generated when empty
	Secret     []byte
	BasePath   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Users      []User
	// RefreshDelay holds every refresh response, widening the window in
	// which concurrent requests pile up behind one renewal
	RefreshDelay time.Duration
	// CleanupInterval is how often expired refresh tokens are dropped
	CleanupInterval time.Duration
	Logger          logrus.FieldLogger
}

// Server is the mock backend
type Server struct {
	echo         *echo.Echo
	secret       []byte
	accessTTL    time.Duration
	refreshDelay time.Duration
	logger       logrus.FieldLogger

	users map[string]User
	// refreshTokens maps an outstanding refresh token to the owner's email
	refreshTokens *utils.TTLCache
	stopCleanup   func()
	// generation is embedded in access tokens; bumping it expires them all
	generation atomic.Int64

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64

	jobsMu sync.Mutex
	jobs   []Job
	nextID int
}

// New creates a mock backend
func New(opts Options) *Server {
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Users == nil {
		opts.Users = DefaultUsers()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if len(opts.Secret) == 0 {
		opts.Secret = randomSecret()
	}

	s := &Server{
		secret:        opts.Secret,
		accessTTL:     opts.AccessTTL,
		refreshDelay:  opts.RefreshDelay,
		logger:        opts.Logger,
		users:         make(map[string]User, len(opts.Users)),
		refreshTokens: utils.NewTTLCache(opts.RefreshTTL),
		nextID:        1,
	}
	for _, u := range opts.Users {
		s.users[u.Email] = u
	}
	s.stopCleanup = s.refreshTokens.StartCleanupGoroutine(opts.CleanupInterval)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": c.Request().Header.Get(echo.HeaderXRequestID),
			}).Debug("request")
			return nil
		},
	}))

	s.echo = e
	s.registerRoutes(e.Group(opts.BasePath))
	return s
}

func (s *Server) registerRoutes(g *echo.Group) {
	g.POST("/auth/login", s.handleLogin)
	g.POST("/auth/refresh", s.handleRefresh)
	g.POST("/auth/logout", s.handleLogout)

	authed := g.Group("", s.requireAccess)
	authed.GET("/me", s.handleMe)
	authed.GET("/jobs", s.handleListJobs)
	authed.POST("/jobs", s.handleCreateJob, requireRole("company"))
}

// GetEcho returns the underlying echo instance
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// ServeHTTP makes Server usable with httptest.NewServer
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully and ends the refresh token cleanup
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopCleanup()
	return s.echo.Shutdown(ctx)
}

// Close ends the refresh token cleanup of a server that was never started
func (s *Server) Close() {
	s.stopCleanup()
}

// OutstandingRefreshTokens returns how many refresh tokens are held,
// including expired ones not yet cleaned up
func (s *Server) OutstandingRefreshTokens() int {
	return s.refreshTokens.Size()
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RefreshCalls returns how many refresh requests were received
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// LoginCalls returns how many login requests were received
func (s *Server) LoginCalls() int64 {
	return s.loginCalls.Load()
}
