package oauthrp

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

func TestValidateJARMResponseHappyPath(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	now := time.Now()
	payload, err := json.Marshal(map[string]interface{}{
		"iss": as.Issuer, "aud": "c", "exp": now.Add(time.Minute).Unix(),
		"code": "abc", "state": "xyz",
	})
	require.NoError(t, err)
	response, err := jose.Sign(&jose.Header{Type: "JWT"}, payload, key)
	require.NoError(t, err)

	values := url.Values{"response": {response}}
	cb, err := ValidateJARMResponse(context.Background(), values, as, client, keyProviderFor(key), validate.Expect("xyz"))
	require.NoError(t, err)
	require.Equal(t, "abc", cb.Code)
	require.Equal(t, "xyz", cb.State)
}

func TestValidateJARMResponseMissingResponseParam(t *testing.T) {
	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	_, err := ValidateJARMResponse(context.Background(), url.Values{}, as, client, nil, validate.ExpectSentinel(validate.SkipStateCheck))
	require.Error(t, err)
}

func TestValidateJARMResponseSurfacesOAuth2Error(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{Issuer: "https://h.example"}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	now := time.Now()
	payload, err := json.Marshal(map[string]interface{}{
		"iss": as.Issuer, "aud": "c", "exp": now.Add(time.Minute).Unix(),
		"error": "access_denied", "error_description": "user declined",
	})
	require.NoError(t, err)
	response, err := jose.Sign(&jose.Header{Type: "JWT"}, payload, key)
	require.NoError(t, err)

	values := url.Values{"response": {response}}
	_, err = ValidateJARMResponse(context.Background(), values, as, client, keyProviderFor(key), validate.ExpectSentinel(validate.SkipStateCheck))
	oe, ok := IsOAuth2Error(err)
	require.True(t, ok)
	require.Equal(t, "access_denied", oe.ErrorCode)
}

func TestValidateJARMResponseCarriesIssWhenRequired(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "k1")
	require.NoError(t, err)

	as := &AuthorizationServer{Issuer: "https://h.example", AuthorizationResponseIssParameterSupported: true}
	client := &Client{ClientID: "c", ClientSecret: "s"}

	now := time.Now()
	payload, err := json.Marshal(map[string]interface{}{
		"iss": as.Issuer, "aud": "c", "exp": now.Add(time.Minute).Unix(),
		"code": "abc", "state": "xyz",
	})
	require.NoError(t, err)
	response, err := jose.Sign(&jose.Header{Type: "JWT"}, payload, key)
	require.NoError(t, err)

	values := url.Values{"response": {response}}
	cb, err := ValidateJARMResponse(context.Background(), values, as, client, keyProviderFor(key), validate.Expect("xyz"))
	require.NoError(t, err)
	require.Equal(t, "abc", cb.Code)
}
