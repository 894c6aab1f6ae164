package oauthrp

import (
	"context"
	"net/url"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

// jarmExcludedClaims are dropped when flattening a verified JARM
// payload into callback-style query parameters: only timestamps and
// non-string claims carry no meaning as callback parameters. iss is
// kept so ValidateAuthorizationCallback's own iss check still has an
// input when the AS advertises authorization_response_iss_parameter_supported.
var jarmExcludedClaims = map[string]bool{
	"exp": true, "iat": true, "nbf": true,
}

// ValidateJARMResponse verifies the JWS carried in values's "response"
// parameter (JWT Secured Authorization Response Mode), then flattens
// its string claims into a fresh set of callback parameters and falls
// through to ValidateAuthorizationCallback.
func ValidateJARMResponse(ctx context.Context, values url.Values, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider, expectedState validate.StringOrSentinel) (*AuthorizationCallback, error) {
	response := values.Get("response")
	if response == "" {
		return nil, rperr.NewArgumentError("response", "JARM validation requires a %q parameter", "response")
	}

	claims, err := validate.Validate(ctx, response, validate.Options{
		KeyProvider:    keyProvider,
		RequiredClaims: []string{"iss", "aud", "exp"},
		Issuer:         as.Issuer,
		Audience:       client.ClientID,
	})
	if err != nil {
		return nil, err
	}

	flat := url.Values{}
	for k, v := range claims {
		if jarmExcludedClaims[k] {
			continue
		}
		if s, ok := v.(string); ok {
			flat.Set(k, s)
		}
	}

	return ValidateAuthorizationCallback(flat, as, expectedState)
}
