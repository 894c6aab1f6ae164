package oauthrp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

func TestValidateUserInfoResponseJSONHappyPath(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"sub":"u1","name":"Alice"}`)
	ui, err := ValidateUserInfoResponse(context.Background(), resp, as, client, nil, validate.Expect("u1"))
	require.NoError(t, err)
	require.Equal(t, "u1", ui.Subject)
}

func TestValidateUserInfoResponseJSONSubjectMismatch(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"sub":"u1"}`)
	_, err := ValidateUserInfoResponse(context.Background(), resp, as, client, nil, validate.Expect("other"))
	require.Error(t, err)
}

func TestValidateUserInfoResponseSkipSubjectCheck(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	resp := jsonResponse(200, `{"sub":"whatever"}`)
	ui, err := ValidateUserInfoResponse(context.Background(), resp, as, client, nil, validate.ExpectSentinel(validate.SkipSubjectCheck))
	require.NoError(t, err)
	require.Equal(t, "whatever", ui.Subject)
}

func TestValidateUserInfoResponseJWTHappyPathWithoutIssOrAud(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{Issuer: "https://h.example", UserinfoSigningAlgValuesSupported: []string{"ES256"}}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	idToken := signedIDToken(t, key, map[string]interface{}{"sub": "u1"})

	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(idToken)),
		Header:     http.Header{"Content-Type": []string{"application/jwt"}},
	}

	ui, err := ValidateUserInfoResponse(context.Background(), resp, as, client, keyProviderFor(key), validate.Expect("u1"))
	require.NoError(t, err)
	require.Equal(t, "u1", ui.Subject)
}
