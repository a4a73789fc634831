package mockapi

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/authclient/pkg/credentials"
)

const claimsContextKey = "claims"

// Claims are the access token claims
type Claims struct {
	UserID     int    `json:"userId"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

func randomSecret() []byte {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return secret
}

// IssuePair signs an access token for u and records a fresh refresh token
func (s *Server) IssuePair(u User) (credentials.Pair, error) {
	now := time.Now()
	claims := Claims{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Generation: s.generation.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := uuid.NewString()
	s.refreshTokens.Set(refresh, u.Email)

	return credentials.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// verify parses and checks an access token
func (s *Server) verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Generation != s.generation.Load() {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

// requireAccess rejects requests without a valid access token with 401
func (s *Server) requireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		claims, err := s.verify(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token expired or invalid")
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := claimsFrom(c)
			if claims == nil || claims.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("%s role required", role))
			}
			return next(c)
		}
	}
}

func claimsFrom(c echo.Context) *Claims {
	claims, _ := c.Get(claimsContextKey).(*Claims)
	return claims
}
