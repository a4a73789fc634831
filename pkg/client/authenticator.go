package client

import (
	"net/http"

	"github.com/takutakahashi/authclient/pkg/credentials"
)

// CredentialSource provides the credential pair attached to a request
type CredentialSource interface {
	Current() credentials.Pair
}

// fixedAccess is the credential source of a replay: the access token handed
// over by the renewal that resumed the request
type fixedAccess string

func (f fixedAccess) Current() credentials.Pair {
	return credentials.Pair{AccessToken: string(f)}
}

// Authenticate sets "Authorization: Bearer <accessToken>" when an access
// credential is present and leaves the request untouched otherwise.
// It returns the access token it attached.
func Authenticate(req *http.Request, source CredentialSource) string {
	token := source.Current().AccessToken
	if token == "" {
		return ""
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return token
}
