package oauthrp

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oidcrp/oidcrp/pkg/jose"
)

func TestBuildProtectedResourceRequestBearer(t *testing.T) {
	req, err := BuildProtectedResourceRequest(context.Background(), http.MethodGet, "https://api.example/data", "at123", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer at123", req.Header.Get("Authorization"))
	require.Empty(t, req.Header.Get("DPoP"))
}

func TestBuildProtectedResourceRequestDPoP(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)
	key.MarkExtractable()
	pub := key.PublicJWK()

	req, err := BuildProtectedResourceRequest(context.Background(), http.MethodGet, "https://api.example/data", "at123", &DPoPOptions{PrivateKey: key, PublicKey: pub}, nil)
	require.NoError(t, err)
	require.Equal(t, "DPoP at123", req.Header.Get("Authorization"))
	require.NotEmpty(t, req.Header.Get("DPoP"))
}

func TestNoRedirectClientStopsAtFirstResponse(t *testing.T) {
	c := NoRedirectClient(nil)
	require.NotNil(t, c.CheckRedirect)
	require.Equal(t, http.ErrUseLastResponse, c.CheckRedirect(nil, nil))
}
