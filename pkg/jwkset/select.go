package jwkset

import (
	"strings"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// ktyForAlg maps a JWS alg's first letter to the JWK kty it must carry:
// RSA algorithms start with P (PSxxx) or R (RSxxx); EC algorithms start
// with E (ESxxx).
func ktyForAlg(alg jose.Algorithm) jose.KeyType {
	if strings.HasPrefix(string(alg), "R") || strings.HasPrefix(string(alg), "P") {
		return jose.KeyTypeRSA
	}
	if strings.HasPrefix(string(alg), "E") {
		return jose.KeyTypeEC
	}
	return ""
}

// selectCandidates narrows ks to the keys eligible to verify a JWS with
// the given header alg/kid, via a six-step narrowing progression.
func selectCandidates(ks *jose.KeySet, alg jose.Algorithm, kid string) []*jose.Key {
	wantKty := ktyForAlg(alg)
	wantCurve := jose.CurveForAlg(alg)

	var candidates []*jose.Key
	for _, key := range ks.Keys {
		if wantKty != "" && key.KeyType != wantKty {
			continue
		}
		if kid != "" && key.KeyID != kid {
			continue
		}
		if key.Algorithm != "" && key.Algorithm != alg {
			continue
		}
		if key.PublicKeyUse != "" && key.PublicKeyUse != jose.UseSignature {
			continue
		}
		if len(key.KeyOperations) > 0 && !hasKeyOp(key.KeyOperations, jose.KeyOpVerify) {
			continue
		}
		if key.KeyType == jose.KeyTypeEC && wantCurve != "" && key.Curve != wantCurve {
			continue
		}
		candidates = append(candidates, key)
	}
	return candidates
}

func hasKeyOp(ops []jose.KeyOperation, want jose.KeyOperation) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

// resolveOne applies the key-selection outcome rules to a candidate list:
// exactly one is success, zero or many are both errors (the caller
// decides whether zero warrants a stale-retry).
func resolveOne(candidates []*jose.Key, alg jose.Algorithm) (*jose.Key, error) {
	switch len(candidates) {
	case 1:
		key := candidates[0].PublicJWK()
		key.Algorithm = alg
		return key, nil
	case 0:
		return nil, rperr.NewProcessingError(codeNoApplicableKeys, "no JWKS key matches alg %q", alg)
	default:
		return nil, rperr.NewProcessingError("ambiguous_key_selection", "multiple JWKS keys match alg %q; header must carry kid", alg)
	}
}

// codeNoApplicableKeys is the ProcessingError.Code for a zero-candidate
// selection, the one outcome that warrants an evict-and-retry against a
// stale cache entry (the AS may have rotated in a new key since the
// cached fetch).
const codeNoApplicableKeys = "no_applicable_keys"
