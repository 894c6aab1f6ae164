package validate

import (
	"encoding/json"
	"testing"

	"github.com/oidcrp/oidcrp/pkg/jose"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// GenerateTestKey builds a throwaway RS256 signing key for pipeline tests.
func GenerateTestKey(t *testing.T) (*jose.Key, error) {
	t.Helper()
	return jose.GenerateRSAKeyPair(2048, jose.AlgRS256, "test-kid")
}
