package oauthrp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWWWAuthenticateSingleScheme(t *testing.T) {
	challenges := ParseWWWAuthenticate(`Bearer realm="api", error="invalid_token", error_description="The access token expired"`)
	require.Len(t, challenges, 1)
	require.Equal(t, "bearer", challenges[0].Scheme)
	require.Equal(t, "api", challenges[0].Params["realm"])
	require.Equal(t, "invalid_token", challenges[0].Params["error"])
	require.Equal(t, "The access token expired", challenges[0].Params["error_description"])
}

func TestParseWWWAuthenticateMultipleSchemes(t *testing.T) {
	challenges := ParseWWWAuthenticate(`Bearer realm="api", error="invalid_token", DPoP algs="ES256", error="invalid_dpop_proof"`)
	require.Len(t, challenges, 2)

	require.Equal(t, "bearer", challenges[0].Scheme)
	require.Equal(t, "invalid_token", challenges[0].Params["error"])

	require.Equal(t, "dpop", challenges[1].Scheme)
	require.Equal(t, "ES256", challenges[1].Params["algs"])
	require.Equal(t, "invalid_dpop_proof", challenges[1].Params["error"])
}

func TestParseWWWAuthenticateBareScheme(t *testing.T) {
	challenges := ParseWWWAuthenticate(`Basic, Bearer realm="api"`)
	require.Len(t, challenges, 2)
	require.Equal(t, "basic", challenges[0].Scheme)
	require.Empty(t, challenges[0].Params)
	require.Equal(t, "bearer", challenges[1].Scheme)
	require.Equal(t, "api", challenges[1].Params["realm"])
}

func TestParseWWWAuthenticateQuotedCommaNotSplit(t *testing.T) {
	challenges := ParseWWWAuthenticate(`Bearer error_description="expired, please retry"`)
	require.Len(t, challenges, 1)
	require.Equal(t, "expired, please retry", challenges[0].Params["error_description"])
}

func TestChallengeDecode(t *testing.T) {
	challenges := ParseWWWAuthenticate(`DPoP algs="ES256", error="invalid_dpop_proof"`)
	require.Len(t, challenges, 1)

	var params struct {
		Algs  string `mapstructure:"algs"`
		Error string `mapstructure:"error"`
	}
	require.NoError(t, challenges[0].Decode(&params))
	require.Equal(t, "ES256", params.Algs)
	require.Equal(t, "invalid_dpop_proof", params.Error)
}
