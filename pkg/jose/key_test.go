package jose

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJWKRSA(t *testing.T) {
	raw := []byte(`{
		"kty": "RSA",
		"n": "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		"e": "AQAB",
		"alg": "RS256",
		"kid": "2011-04-29"
	}`)

	key, err := ParseJWK(raw)
	require.NoError(t, err)
	require.Equal(t, KeyTypeRSA, key.KeyType)
	require.Equal(t, "2011-04-29", key.KeyID)
	require.False(t, key.HasPrivateKey())
}

func TestParseJWKRejectsUnsupportedKty(t *testing.T) {
	raw := []byte(`{"kty":"oct","k":"AyM1SysPpbyDfgZld3umjw"}`)
	_, err := ParseJWK(raw)
	require.Error(t, err)
}

func TestParseJWKRejectsBadCurve(t *testing.T) {
	raw := []byte(`{"kty":"EC","crv":"P-192","x":"AA","y":"AA"}`)
	_, err := ParseJWK(raw)
	require.Error(t, err)
}

func TestThumbprintMatchesRFC7638Vector(t *testing.T) {
	raw := []byte(`{
		"kty": "RSA",
		"n": "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		"e": "AQAB",
		"alg": "RS256",
		"kid": "2011-04-29"
	}`)

	key, err := ParseJWK(raw)
	require.NoError(t, err)

	thumb, err := key.Thumbprint()
	require.NoError(t, err)
	require.Equal(t, "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs", thumb)
}

func TestGenerateRSAKeyPairRejectsSmallModulus(t *testing.T) {
	_, err := GenerateRSAKeyPair(1024, AlgRS256, "")
	require.Error(t, err)
}

func TestGenerateECKeyPairRoundTripsPublicJWK(t *testing.T) {
	key, err := GenerateECKeyPair(AlgES256, "kid-1")
	require.NoError(t, err)
	require.True(t, key.HasPrivateKey())

	pub := key.PublicJWK()
	require.False(t, pub.HasPrivateKey())
	require.Nil(t, pub.D)
	require.Equal(t, key.X, pub.X)
	require.Equal(t, key.Y, pub.Y)
}

func TestExtractable(t *testing.T) {
	key, err := GenerateECKeyPair(AlgES256, "")
	require.NoError(t, err)
	require.True(t, key.Extractable())
}
