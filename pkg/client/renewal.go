package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/takutakahashi/authclient/pkg/credentials"
	"github.com/takutakahashi/authclient/pkg/utils"
)

// DefaultRefreshPath is the renewal endpoint relative to the base URL
const DefaultRefreshPath = "/auth/refresh"

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// HTTPRenewer renews credentials with POST <base>/auth/refresh.
// The call never carries the Authorization header.
type HTTPRenewer struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPRenewer creates a renewer posting to baseURL+path
func NewHTTPRenewer(baseURL, path string, httpClient *http.Client) *HTTPRenewer {
	if path == "" {
		path = DefaultRefreshPath
	}
	if httpClient == nil {
		httpClient = utils.NewDefaultHTTPClient()
	}
	return &HTTPRenewer{
		endpoint:   baseURL + path,
		httpClient: httpClient,
	}
}

// Renew exchanges refreshToken for a new pair.
// Any non-2xx status or a body without an access token is an error.
func (r *HTTPRenewer) Renew(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	jsonData, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.SafeCloseResponse(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return credentials.Pair{}, NewStatusError(resp.StatusCode, http.MethodPost, r.endpoint, body)
	}

	var out refreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return credentials.Pair{}, fmt.Errorf("%w: %v", ErrMalformedRenewal, err)
	}
	if out.AccessToken == "" {
		return credentials.Pair{}, fmt.Errorf("%w: missing accessToken", ErrMalformedRenewal)
	}

	return credentials.Pair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}, nil
}
