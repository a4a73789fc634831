package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Job is a posting owned by a company user
type Job struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleLogin handles POST /auth/login
func (s *Server) handleLogin(c echo.Context) error {
	s.loginCalls.Add(1)

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	u, ok := s.users[req.Email]
	if !ok || u.Password != req.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	pair, err := s.IssuePair(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.logger.WithField("email", u.Email).Info("user logged in")

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &u,
	})
}

// handleRefresh handles POST /auth/refresh; each refresh token works once
func (s *Server) handleRefresh(c echo.Context) error {
	s.refreshCalls.Add(1)

	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	if s.refreshDelay > 0 {
		select {
		case <-time.After(s.refreshDelay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	owner, ok := s.refreshTokens.Take(req.RefreshToken)
	if !ok {
		s.logger.Warn("unknown or reused refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}
	u, ok := s.users[owner.(string)]
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	pair, err := s.IssuePair(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// handleLogout handles POST /auth/logout by revoking the refresh token
func (s *Server) handleLogout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.RefreshToken != "" {
		s.refreshTokens.Delete(req.RefreshToken)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleMe handles GET /me
func (s *Server) handleMe(c echo.Context) error {
	claims := claimsFrom(c)
	return c.JSON(http.StatusOK, map[string]string{
		"userId": strconv.Itoa(claims.UserID),
		"email":  claims.Email,
		"role":   claims.Role,
	})
}

// handleListJobs handles GET /jobs
func (s *Server) handleListJobs(c echo.Context) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	return c.JSON(http.StatusOK, jobs)
}

// handleCreateJob handles POST /jobs
func (s *Server) handleCreateJob(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job := Job{
		ID:        s.nextID,
		Title:     req.Title,
		CreatedBy: claimsFrom(c).Email,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.jobs = append(s.jobs, job)
	return c.JSON(http.StatusCreated, job)
}
