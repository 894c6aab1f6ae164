package clientauth

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/stretchr/testify/require"
)

func TestBuildProofIncludesNonceAndAth(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "dpop-1")
	require.NoError(t, err)

	store := NewNonceStore(4)
	store.Observe("https://rs.example", "srv-nonce-1")

	token, err := BuildProof(ProofOptions{
		Key:         key,
		Method:      "GET",
		URL:         "https://rs.example/resource?x=1",
		AccessToken: "at-123",
	}, store)
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(token, ".")+1)

	rawPayload, err := codec.DecodeString(strings.Split(token, ".")[1])
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rawPayload, &payload))
	require.Equal(t, "srv-nonce-1", payload["nonce"])
	require.Equal(t, CodeChallengeS256("at-123"), payload["ath"])
}

func TestBuildProofPublishesExplicitPublicKey(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "dpop-1")
	require.NoError(t, err)
	key.MarkExtractable()
	pub := key.PublicJWK()
	pub.KeyID = "published-kid"

	token, err := BuildProof(ProofOptions{
		Key:       key,
		PublicKey: pub,
		Method:    "GET",
		URL:       "https://rs.example/resource",
	}, nil)
	require.NoError(t, err)

	headerJSON, err := codec.DecodeString(strings.SplitN(token, ".", 2)[0])
	require.NoError(t, err)
	var header struct {
		JWK struct {
			KeyID string `json:"kid"`
		} `json:"jwk"`
	}
	require.NoError(t, json.Unmarshal(headerJSON, &header))
	require.Equal(t, "published-kid", header.JWK.KeyID)
}

func TestBuildProofRejectsKeyWithoutPrivateMaterial(t *testing.T) {
	key, err := jose.GenerateECKeyPair(jose.AlgES256, "")
	require.NoError(t, err)

	_, err = BuildProof(ProofOptions{Key: key.PublicJWK(), Method: "GET", URL: "https://rs.example/"}, nil)
	require.Error(t, err)
}

func TestNonceStoreObserveAndGet(t *testing.T) {
	store := NewNonceStore(2)
	store.Observe("https://a.example", "n1")
	store.Observe("https://b.example", "n2")
	store.Observe("https://c.example", "n3") // rotates a.example into "previous"

	n, ok := store.Get("https://c.example")
	require.True(t, ok)
	require.Equal(t, "n3", n)

	n, ok = store.Get("https://a.example")
	require.True(t, ok)
	require.Equal(t, "n1", n)
}

func TestObserveResponseNonceIgnoresEmpty(t *testing.T) {
	store := NewNonceStore(4)
	ObserveResponseNonce(store, "https://rs.example/resource", "")
	_, ok := store.Get("https://rs.example")
	require.False(t, ok)

	ObserveResponseNonce(store, "https://rs.example/resource", "fresh-nonce")
	n, ok := store.Get("https://rs.example")
	require.True(t, ok)
	require.Equal(t, "fresh-nonce", n)
}
