package clientauth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifierAndChallenge(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(verifier), 43)
	require.LessOrEqual(t, len(verifier), 128)

	challenge := CodeChallengeS256(verifier)
	require.NotEmpty(t, challenge)
	require.NotEqual(t, verifier, challenge)
}

func TestGenerateStateNonceJTIAreUnique(t *testing.T) {
	s1, err := GenerateState()
	require.NoError(t, err)
	s2, err := GenerateState()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	n1, err := GenerateNonce()
	require.NoError(t, err)
	require.NotEmpty(t, n1)

	j1, err := GenerateJTI()
	require.NoError(t, err)
	j2, err := GenerateJTI()
	require.NoError(t, err)
	require.NotEqual(t, j1, j2)
}
