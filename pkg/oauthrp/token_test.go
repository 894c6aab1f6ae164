package oauthrp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

func signedIDToken(t *testing.T, key *jose.Key, claims map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	tok, err := jose.Sign(&jose.Header{Type: "JWT"}, payload, key)
	require.NoError(t, err)
	return tok
}

func keyProviderFor(key *jose.Key) jose.KeyProvider {
	return func(ctx context.Context, h *jose.Header) (*jose.Key, error) {
		return key.PublicJWK(), nil
	}
}

func TestValidateAuthorizationCodeOIDCResponseHappyPath(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{
		Issuer:                            "https://h.example",
		TokenEndpoint:                     "https://h.example/token",
		IDTokenSigningAlgValuesSupported:  []string{"ES256"},
	}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	now := time.Now()
	idToken := signedIDToken(t, key, map[string]interface{}{
		"iss": as.Issuer, "aud": "c", "sub": "u",
		"iat": now.Unix(), "exp": now.Add(5 * time.Minute).Unix(),
		"nonce": "N",
	})

	body := `{"access_token":"a","token_type":"Bearer","id_token":"` + idToken + `"}`
	resp := jsonResponse(200, body)

	tr, err := ValidateAuthorizationCodeOIDCResponse(context.Background(), resp, as, client, keyProviderFor(key), validate.Expect("N"), MaxAgeOption{})
	require.NoError(t, err)
	require.Equal(t, "bearer", tr.TokenType)

	claims, ok := GetValidatedIDTokenClaims(tr)
	require.True(t, ok)
	require.Equal(t, "u", claims["sub"])
}

func TestValidateAuthorizationCodeOAuth2ResponseRejectsIDToken(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"access_token":"a","token_type":"Bearer","id_token":"x.y.z"}`)
	_, err := ValidateAuthorizationCodeOAuth2Response(context.Background(), resp, as, client)
	require.Error(t, err)
}

func TestValidateTokenResponseRejectsMissingAccessToken(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"token_type":"Bearer"}`)
	_, err := ValidateTokenResponse(context.Background(), resp, as, client, nil)
	require.Error(t, err)
}

func TestValidateTokenResponseRejectsNonPositiveExpiresIn(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"access_token":"a","token_type":"Bearer","expires_in":0}`)
	_, err := ValidateTokenResponse(context.Background(), resp, as, client, nil)
	require.Error(t, err)
}

func TestValidateClientCredentialsResponseIgnoresIDToken(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"access_token":"a","token_type":"Bearer","id_token":"x.y.z"}`)
	tr, err := ValidateClientCredentialsResponse(context.Background(), resp, as, client)
	require.NoError(t, err)
	require.Equal(t, "a", tr.AccessToken)
}

func TestBuildTokenRequestAuthorizationCode(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s", TokenEndpointAuthMethod: clientauth.MethodClientSecretPost}

	req, err := BuildTokenRequest(context.Background(), as, client, TokenRequestParams{
		GrantType: GrantAuthorizationCode, Code: "abc", RedirectURI: "https://app.example/cb",
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
}

func TestBuildTokenRequestRejectsMissingCode(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example", TokenEndpoint: "https://h.example/token"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	_, err := BuildTokenRequest(context.Background(), as, client, TokenRequestParams{GrantType: GrantAuthorizationCode}, nil, nil)
	require.Error(t, err)
}
