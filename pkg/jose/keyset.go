package jose

import (
	"encoding/json"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// KeySet is a JSON Web Key Set: `{ "keys": [...] }`.
type KeySet struct {
	Keys []*Key `json:"keys"`
}

// DecodeKeySet parses and materializes every key in a JWKS document.
func DecodeKeySet(raw []byte) (*KeySet, error) {
	var wire struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jwks", "malformed JWK Set")
	}
	ks := &KeySet{}
	for _, rawKey := range wire.Keys {
		key, err := ParseJWK(rawKey)
		if err != nil {
			// Skip keys this engine can't materialize (e.g. "oct" or
			// "OKP" entries some providers still publish); only RSA and EC
			// selector only ever needs RSA/EC candidates.
			continue
		}
		ks.Keys = append(ks.Keys, key)
	}
	return ks, nil
}
