package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts Options) *Server {
	s := New(opts)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, email string) tokenResponse {
	t.Helper()

	rec := do(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: "password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	s := newServer(t, Options{})

	resp := login(t, s, "company@example.com")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "company", resp.User.Role)

	rec := do(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: "company@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int64(2), s.LoginCalls())
}

func TestAccessToken(t *testing.T) {
	s := newServer(t, Options{})
	resp := login(t, s, "candidate@example.com")

	rec := do(t, s, http.MethodGet, "/me", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "candidate@example.com")

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/me", "garbage", nil).Code)

	s.ExpireAccessTokens()
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/me", resp.AccessToken, nil).Code)
}

func TestAccessToken_OtherSecretRejected(t *testing.T) {
	issuer := newServer(t, Options{Secret: []byte("one")})
	verifier := newServer(t, Options{Secret: []byte("two")})

	resp := login(t, issuer, "candidate@example.com")
	assert.Equal(t, http.StatusUnauthorized, do(t, verifier, http.MethodGet, "/me", resp.AccessToken, nil).Code)
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	s := newServer(t, Options{})
	first := login(t, s, "candidate@example.com")

	rec := do(t, s, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var second tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	rec = do(t, s, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reused refresh token")

	rec = do(t, s, http.MethodPost, "/auth/refresh", "", refreshRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, int64(3), s.RefreshCalls())
}

func TestRefreshTokens_ExpiredAreCleanedUp(t *testing.T) {
	s := newServer(t, Options{RefreshTTL: time.Millisecond, CleanupInterval: 5 * time.Millisecond})

	login(t, s, "candidate@example.com")
	login(t, s, "company@example.com")

	assert.Eventually(t, func() bool {
		return s.OutstandingRefreshTokens() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestShutdown_StopsCleanup(t *testing.T) {
	s := New(Options{RefreshTTL: time.Millisecond, CleanupInterval: 5 * time.Millisecond})
	require.NoError(t, s.Shutdown(context.Background()))
	s.Close()

	login(t, s, "candidate@example.com")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, s.OutstandingRefreshTokens(), "no cleanup after shutdown")
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	s := newServer(t, Options{})
	resp := login(t, s, "candidate@example.com")

	rec := do(t, s, http.MethodPost, "/auth/logout", "", refreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/refresh", "", refreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobs(t *testing.T) {
	s := newServer(t, Options{})
	company := login(t, s, "company@example.com")
	candidate := login(t, s, "candidate@example.com")

	rec := do(t, s, http.MethodPost, "/jobs", company.AccessToken, map[string]string{"title": "Backend engineer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodPost, "/jobs", candidate.AccessToken, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodPost, "/jobs", company.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/jobs", candidate.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "Backend engineer", jobs[0].Title)
	assert.Equal(t, "company@example.com", jobs[0].CreatedBy)
}
