package oauthrp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	resp    *http.Response
	err     error
	lastReq *http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestDiscoveryURLOAuth2RootPath(t *testing.T) {
	u, err := DiscoveryURL("https://h.example/", DiscoveryOAuth2)
	require.NoError(t, err)
	require.Equal(t, "https://h.example/.well-known/oauth-authorization-server", u)
}

func TestDiscoveryURLOAuth2WithTenantPath(t *testing.T) {
	u, err := DiscoveryURL("https://h.example/tenant/1", DiscoveryOAuth2)
	require.NoError(t, err)
	require.Equal(t, "https://h.example/.well-known/oauth-authorization-server/tenant/1", u)
}

func TestDiscoveryURLOIDCWithTenantPath(t *testing.T) {
	u, err := DiscoveryURL("https://h.example/tenant/1", DiscoveryOIDC)
	require.NoError(t, err)
	require.Equal(t, "https://h.example/tenant/1/.well-known/openid-configuration", u)
}

func TestDiscoveryURLOIDCRootPathCollapsesSlashes(t *testing.T) {
	u, err := DiscoveryURL("https://h.example/", DiscoveryOIDC)
	require.NoError(t, err)
	require.Equal(t, "https://h.example/.well-known/openid-configuration", u)
}

func TestValidateDiscoveryResponseHappyPath(t *testing.T) {
	doer := &stubDoer{resp: jsonResponse(http.StatusOK, `{
		"issuer": "https://h.example",
		"token_endpoint": "https://h.example/token",
		"jwks_uri": "https://h.example/jwks",
		"id_token_signing_alg_values_supported": ["ES256"]
	}`)}

	as, err := ValidateDiscoveryResponse(context.Background(), doer, "https://h.example", DiscoveryOIDC)
	require.NoError(t, err)
	require.Equal(t, "https://h.example/token", as.TokenEndpoint)
	require.Equal(t, []string{"ES256"}, as.IDTokenSigningAlgValuesSupported)
	require.NotNil(t, as.Raw)
}

func TestValidateDiscoveryResponseIssuerMismatch(t *testing.T) {
	doer := &stubDoer{resp: jsonResponse(http.StatusOK, `{"issuer": "https://wrong.example"}`)}

	_, err := ValidateDiscoveryResponse(context.Background(), doer, "https://h.example", DiscoveryOIDC)
	require.Error(t, err)
}

func TestValidateDiscoveryResponseBadStatus(t *testing.T) {
	doer := &stubDoer{resp: jsonResponse(http.StatusInternalServerError, `{}`)}

	_, err := ValidateDiscoveryResponse(context.Background(), doer, "https://h.example", DiscoveryOIDC)
	require.Error(t, err)
}
