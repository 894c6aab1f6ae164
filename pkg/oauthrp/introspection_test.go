package oauthrp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
)

func TestBuildIntrospectionRequestDefaultsToJSON(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", IntrospectionEndpoint: "https://h.example/introspect"}
	client := &Client{ClientID: "c", ClientSecret: "s", TokenEndpointAuthMethod: clientauth.MethodClientSecretPost}

	req, err := BuildIntrospectionRequest(context.Background(), as, client, "tok123", false)
	require.NoError(t, err)
	require.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestBuildIntrospectionRequestRequestsJWTResponse(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", IntrospectionEndpoint: "https://h.example/introspect"}
	client := &Client{ClientID: "c", ClientSecret: "s", TokenEndpointAuthMethod: clientauth.MethodClientSecretPost}

	req, err := BuildIntrospectionRequest(context.Background(), as, client, "tok123", true)
	require.NoError(t, err)
	require.Equal(t, introspectionJWTMediaType, req.Header.Get("Accept"))
}

func TestValidateIntrospectionResponseJSONHappyPath(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"active":true,"scope":"read"}`)
	ir, err := ValidateIntrospectionResponse(context.Background(), resp, as, client, nil)
	require.NoError(t, err)
	require.True(t, ir.Active)
}

func TestValidateIntrospectionResponseMissingActive(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"scope":"read"}`)
	_, err := ValidateIntrospectionResponse(context.Background(), resp, as, client, nil)
	require.Error(t, err)
}

func TestValidateIntrospectionResponseJWTHappyPath(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{
		Issuer:                                "https://h.example",
		IntrospectionSigningAlgValuesSupported: []string{"ES256"},
	}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	now := time.Now()
	payload, err := json.Marshal(map[string]interface{}{
		"iss": as.Issuer, "aud": "c", "iat": now.Unix(),
		"token_introspection": map[string]interface{}{"active": true},
	})
	require.NoError(t, err)
	token, err := jose.Sign(&jose.Header{Type: "token-introspection+jwt"}, payload, key)
	require.NoError(t, err)

	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(token)),
		Header:     http.Header{"Content-Type": []string{introspectionJWTMediaType}},
	}

	ir, err := ValidateIntrospectionResponse(context.Background(), resp, as, client, keyProviderFor(key))
	require.NoError(t, err)
	require.True(t, ir.Active)
}
