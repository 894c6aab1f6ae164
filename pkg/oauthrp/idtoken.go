package oauthrp

import (
	"sync"

	"github.com/oidcrp/oidcrp/pkg/validate"
)

// idTokenClaimsMap is the side mapping of validated ID Token claims,
// keyed by the identity of the TokenResponse they were parsed from.
var idTokenClaimsMap sync.Map

func recordIDTokenClaims(tr *TokenResponse, claims validate.Claims) {
	idTokenClaimsMap.Store(tr, claims)
}

// GetValidatedIDTokenClaims retrieves the ID Token claims validated
// while processing resp, if resp carried and validated one.
func GetValidatedIDTokenClaims(resp *TokenResponse) (validate.Claims, bool) {
	v, ok := idTokenClaimsMap.Load(resp)
	if !ok {
		return nil, false
	}
	return v.(validate.Claims), true
}
