package oauthrp

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

const introspectionJWTMediaType = "application/token-introspection+jwt"

// IntrospectionResponse is a normalized introspection endpoint response.
type IntrospectionResponse struct {
	Active bool
	Raw    map[string]interface{}
}

// BuildIntrospectionRequest authenticates and builds an introspection
// request for token. requestJWTResponse, or a configured
// client.IntrospectionSigningAlg, negotiates the signed-JWT response
// media type via Accept.
func BuildIntrospectionRequest(ctx context.Context, as *AuthorizationServer, client *Client, token string, requestJWTResponse bool) (*http.Request, error) {
	if as == nil || as.IntrospectionEndpoint == "" {
		return nil, rperr.NewArgumentError("as", "authorization server has no introspection_endpoint")
	}
	if token == "" {
		return nil, rperr.NewArgumentError("token", "token is required")
	}

	form := url.Values{}
	form.Set("token", token)
	headers := map[string]string{}
	if err := client.Credentials().Apply(headers, form, as.Issuer, as.IntrospectionEndpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, as.IntrospectionEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", libraryUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if requestJWTResponse || client.RequestIntrospectionJWTResponse || client.IntrospectionSigningAlg != "" {
		req.Header.Set("Accept", introspectionJWTMediaType)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// ValidateIntrospectionResponse validates an introspection response,
// either a bare JSON object (default) or a signed
// application/token-introspection+jwt body.
func ValidateIntrospectionResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider) (*IntrospectionResponse, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusOK); err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	var raw map[string]interface{}
	if mediaType == introspectionJWTMediaType {
		claims, err := validate.Validate(ctx, string(body), validate.Options{
			KeyProvider:    keyProvider,
			ExpectedAlg:    client.IntrospectionSigningAlg,
			SupportedAlgs:  as.IntrospectionAlgs(),
			TypHeader:      "token-introspection+jwt",
			RequiredClaims: []string{"iss", "aud", "iat"},
			Issuer:         as.Issuer,
			Audience:       client.ClientID,
		})
		if err != nil {
			return nil, err
		}
		nested, ok := claims["token_introspection"].(map[string]interface{})
		if !ok {
			return nil, rperr.NewProcessingError("missing_claim", "missing required claim %q", "token_introspection")
		}
		raw = nested
	} else {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, rperr.WrapProcessingError(err, "invalid_introspection_body", "introspection response is not a JSON object")
		}
	}

	active, ok := raw["active"].(bool)
	if !ok {
		return nil, rperr.NewProcessingError("missing_claim", "missing required claim %q", "active")
	}
	return &IntrospectionResponse{Active: active, Raw: raw}, nil
}
