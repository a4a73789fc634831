package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultHTTPClient(t *testing.T) {
	client := NewDefaultHTTPClient()
	assert.Equal(t, 30*time.Second, client.Timeout)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.Nil(t, client.Transport)
}

func TestSafeCloseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		SafeCloseResponse(resp)
		SafeCloseResponse(nil)
		SafeCloseResponse(&http.Response{})
	})
}
