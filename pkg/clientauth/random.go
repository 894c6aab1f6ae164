// Package clientauth implements token-endpoint client authentication
// client assertions, DPoP proof construction, and the PKCE/state/
// nonce/jti random generators client calls need.
package clientauth

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/gofrs/uuid"
	"github.com/oidcrp/oidcrp/pkg/codec"
)

// GenerateCodeVerifier produces a fresh RFC 7636 PKCE code_verifier:
// 32 random bytes, base64url-encoded (43 characters, well within the
// 43-128 length bound the RFC requires).
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return codec.EncodeToString(b), nil
}

// CodeChallengeS256 derives the S256 code_challenge from a verifier;
// Only S256 is supported, never "plain".
func CodeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return codec.EncodeToString(sum[:])
}

// GenerateState produces a fresh random state parameter.
func GenerateState() (string, error) {
	return randomToken(16)
}

// GenerateNonce produces a fresh random OIDC nonce parameter.
func GenerateNonce() (string, error) {
	return randomToken(16)
}

// GenerateJTI produces a fresh RFC 4122 v4 UUID for use as a JWT jti
// (client assertions, DPoP proofs).
func GenerateJTI() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return codec.EncodeToString(b), nil
}
