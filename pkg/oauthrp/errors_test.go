package oauthrp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireStatusExtractsOAuth2ErrorOn4xx(t *testing.T) {
	resp := jsonResponse(400, `{"error":"invalid_request","error_description":"missing code"}`)
	body := []byte(`{"error":"invalid_request","error_description":"missing code"}`)

	err := requireStatus(resp, body, 200)
	require.Error(t, err)
	oe, ok := IsOAuth2Error(err)
	require.True(t, ok)
	require.Equal(t, "invalid_request", oe.ErrorCode)
	require.Equal(t, "missing code", oe.ErrorDescription)
	require.Equal(t, "invalid_request: missing code", oe.Error())
}

func TestRequireStatusPassesOnMatch(t *testing.T) {
	resp := jsonResponse(200, `{}`)
	require.NoError(t, requireStatus(resp, []byte(`{}`), 200))
}

func TestRequireStatusRejects5xxWithoutOAuth2Error(t *testing.T) {
	resp := jsonResponse(502, `bad gateway`)
	err := requireStatus(resp, []byte(`bad gateway`), 200)
	require.Error(t, err)
	_, ok := IsOAuth2Error(err)
	require.False(t, ok)
}

func TestIsOAuth2ErrorFalseForOrdinaryError(t *testing.T) {
	_, ok := IsOAuth2Error(errors.New("boom"))
	require.False(t, ok)
}
