package jose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func countSegments(token string) int {
	return strings.Count(token, ".") + 1
}

func TestEncryptECDHES(t *testing.T) {
	key, err := GenerateECKeyPair(AlgES256, "enc-1")
	require.NoError(t, err)

	header := &JWEHeader{Algorithm: AlgECDHES, Encryption: EncA128GCM, KeyID: "enc-1"}
	token, err := Encrypt(header, []byte("plaintext"), key.PublicJWK())
	require.NoError(t, err)
	require.Equal(t, 5, countSegments(token))
}

func TestEncryptRSAOAEP(t *testing.T) {
	key, err := GenerateRSAKeyPair(2048, AlgRS256, "enc-rsa")
	require.NoError(t, err)

	for _, alg := range []JWEAlgorithm{AlgRSAOAEP, AlgRSAOAEP256, AlgRSAOAEP384, AlgRSAOAEP512} {
		header := &JWEHeader{Algorithm: alg, Encryption: EncA256GCM}
		token, err := Encrypt(header, []byte("plaintext"), key.PublicJWK())
		require.NoError(t, err, "alg=%s", alg)
		require.Equal(t, 5, countSegments(token))
	}
}

func TestEncryptCBCHS(t *testing.T) {
	key, err := GenerateRSAKeyPair(2048, AlgRS256, "")
	require.NoError(t, err)

	for _, enc := range []JWEEncryption{EncA128CBCHS256, EncA192CBCHS384, EncA256CBCHS512} {
		header := &JWEHeader{Algorithm: AlgRSAOAEP256, Encryption: enc}
		token, err := Encrypt(header, []byte("some plaintext payload"), key.PublicJWK())
		require.NoError(t, err, "enc=%s", enc)
		require.Equal(t, 5, countSegments(token))
	}
}

func TestEncryptRejectsWrongKeyTypeForRSAOAEP(t *testing.T) {
	key, err := GenerateECKeyPair(AlgES256, "")
	require.NoError(t, err)

	header := &JWEHeader{Algorithm: AlgRSAOAEP256, Encryption: EncA256GCM}
	_, err = Encrypt(header, []byte("x"), key.PublicJWK())
	require.Error(t, err)
}

func TestEncryptRejectsUnsupportedAlg(t *testing.T) {
	key, err := GenerateRSAKeyPair(2048, AlgRS256, "")
	require.NoError(t, err)

	header := &JWEHeader{Algorithm: "unknown", Encryption: EncA128GCM}
	_, err = Encrypt(header, []byte("x"), key.PublicJWK())
	require.Error(t, err)
}
