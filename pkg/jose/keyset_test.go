package jose

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeKeySet(t *testing.T) {
	raw := []byte(`{
		"keys": [
			{
				"kty": "RSA",
				"n": "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
				"e": "AQAB",
				"alg": "RS256",
				"kid": "rsa-1"
			},
			{
				"kty": "oct",
				"k": "ignored"
			}
		]
	}`)

	ks, err := DecodeKeySet(raw)
	require.NoError(t, err)
	require.Len(t, ks.Keys, 1)
	require.Equal(t, "rsa-1", ks.Keys[0].KeyID)
}

func TestDecodeKeySetMalformed(t *testing.T) {
	_, err := DecodeKeySet([]byte(`not json`))
	require.Error(t, err)
}
