package oauthrp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

// TokenResponse is a normalized token-endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// GrantType identifies the token-endpoint grant being exercised.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantClientCredentials GrantType = "client_credentials"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// TokenRequestParams carries the grant-specific form fields for
// BuildTokenRequest.
type TokenRequestParams struct {
	GrantType    GrantType
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	DeviceCode   string
	Scope        string
}

// BuildTokenRequest constructs an authenticated, optionally
// DPoP-bound, token-endpoint request for params.GrantType.
func BuildTokenRequest(ctx context.Context, as *AuthorizationServer, client *Client, params TokenRequestParams, dpop *DPoPOptions, nonceStore *clientauth.NonceStore) (*http.Request, error) {
	if as == nil || as.TokenEndpoint == "" {
		return nil, rperr.NewArgumentError("as", "authorization server has no token_endpoint")
	}
	if err := client.Validate(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", string(params.GrantType))

	switch params.GrantType {
	case GrantAuthorizationCode:
		if params.Code == "" {
			return nil, rperr.NewArgumentError("code", "authorization_code grant requires a code")
		}
		form.Set("code", params.Code)
		if params.RedirectURI != "" {
			form.Set("redirect_uri", params.RedirectURI)
		}
		if params.CodeVerifier != "" {
			form.Set("code_verifier", params.CodeVerifier)
		}
	case GrantRefreshToken:
		if params.RefreshToken == "" {
			return nil, rperr.NewArgumentError("refreshToken", "refresh_token grant requires a refresh token")
		}
		form.Set("refresh_token", params.RefreshToken)
	case GrantClientCredentials:
		// No grant-specific fields beyond scope.
	case GrantDeviceCode:
		if params.DeviceCode == "" {
			return nil, rperr.NewArgumentError("deviceCode", "device_code grant requires a device_code")
		}
		form.Set("device_code", params.DeviceCode)
	default:
		return nil, rperr.NewArgumentError("grantType", "unsupported grant type %q", params.GrantType)
	}
	if params.Scope != "" {
		form.Set("scope", params.Scope)
	}

	authHeaders := map[string]string{}
	if err := client.Credentials().Apply(authHeaders, form, as.Issuer, as.TokenEndpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, as.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", libraryUserAgent)
	for k, v := range authHeaders {
		req.Header.Set(k, v)
	}

	if dpop != nil {
		if err := dpop.Validate(); err != nil {
			return nil, err
		}
		proof, err := clientauth.BuildProof(clientauth.ProofOptions{
			Key:           dpop.PrivateKey,
			PublicKey:     dpop.PublicKey,
			Method:        http.MethodPost,
			URL:           as.TokenEndpoint,
			NonceOverride: dpop.NonceOverride,
		}, nonceStore)
		if err != nil {
			return nil, err
		}
		req.Header.Set("DPoP", proof)
	}

	return req, nil
}

// MaxAgeOption models the three-valued auth_time/maxAge default: an
// explicit duration, an explicit request to skip the check, or (the
// zero value) "use the client's configured default, else skip."
type MaxAgeOption struct {
	sentinel *validate.Sentinel
	duration *time.Duration
}

// ExpectMaxAge requires auth_time + d >= now (within clock tolerance).
func ExpectMaxAge(d time.Duration) MaxAgeOption { return MaxAgeOption{duration: &d} }

// SkipAuthTime disables the auth_time/maxAge check outright, even if
// the client has a configured default_max_age.
func SkipAuthTime() MaxAgeOption { return MaxAgeOption{sentinel: validate.SkipAuthTimeCheck} }

// tokenValidationConfig is the internal shape shared by every public
// token-response validator variant.
type tokenValidationConfig struct {
	requireIDToken     bool
	rejectIDToken      bool
	ignoreIDToken      bool
	nonce              validate.StringOrSentinel
	maxAge             MaxAgeOption
}

// ValidateTokenResponse is the generic token-endpoint response
// validator, used directly for refresh and device-code responses.
func ValidateTokenResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider) (*TokenResponse, error) {
	return validateTokenResponse(ctx, resp, as, client, keyProvider, tokenValidationConfig{})
}

// ValidateAuthorizationCodeOIDCResponse requires an ID Token and
// enforces nonce and auth_time/maxAge.
func ValidateAuthorizationCodeOIDCResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider, expectedNonce validate.StringOrSentinel, maxAge MaxAgeOption) (*TokenResponse, error) {
	return validateTokenResponse(ctx, resp, as, client, keyProvider, tokenValidationConfig{
		requireIDToken: true,
		nonce:          expectedNonce,
		maxAge:         maxAge,
	})
}

// ValidateAuthorizationCodeOAuth2Response rejects a response carrying
// an id_token (the caller used the wrong mode for this flow).
func ValidateAuthorizationCodeOAuth2Response(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client) (*TokenResponse, error) {
	return validateTokenResponse(ctx, resp, as, client, nil, tokenValidationConfig{rejectIDToken: true})
}

// ValidateRefreshTokenResponse is the generic validator under its
// refresh-specific name.
func ValidateRefreshTokenResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider) (*TokenResponse, error) {
	return ValidateTokenResponse(ctx, resp, as, client, keyProvider)
}

// ValidateDeviceCodeTokenResponse is the generic validator under its
// device-code-specific name.
func ValidateDeviceCodeTokenResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider) (*TokenResponse, error) {
	return ValidateTokenResponse(ctx, resp, as, client, keyProvider)
}

// ValidateClientCredentialsResponse never processes an ID Token or
// requires a refresh_token.
func ValidateClientCredentialsResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client) (*TokenResponse, error) {
	return validateTokenResponse(ctx, resp, as, client, nil, tokenValidationConfig{ignoreIDToken: true})
}

func validateTokenResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider, cfg tokenValidationConfig) (*TokenResponse, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusOK); err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_token_body", "token response is not a JSON object")
	}

	tr := &TokenResponse{Raw: raw}
	tr.AccessToken, _ = raw["access_token"].(string)
	tr.TokenType, _ = raw["token_type"].(string)
	if tr.AccessToken == "" {
		return nil, rperr.NewProcessingError("missing_field", "token response missing non-empty %q", "access_token")
	}
	if tr.TokenType == "" {
		return nil, rperr.NewProcessingError("missing_field", "token response missing non-empty %q", "token_type")
	}
	tr.TokenType = strings.ToLower(tr.TokenType)

	if v, present := raw["expires_in"]; present {
		n, ok := v.(float64)
		if !ok || n <= 0 {
			return nil, rperr.NewProcessingError("invalid_field", "token response %q must be strictly positive", "expires_in")
		}
		tr.ExpiresIn = int(n)
	}
	if v, present := raw["refresh_token"]; present {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, rperr.NewProcessingError("invalid_field", "token response %q must be a non-empty string", "refresh_token")
		}
		tr.RefreshToken = s
	}
	if v, present := raw["scope"]; present {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, rperr.NewProcessingError("invalid_field", "token response %q must be a non-empty string", "scope")
		}
		tr.Scope = s
	}

	idTokenValue, hasIDToken := raw["id_token"]
	if cfg.rejectIDToken && hasIDToken {
		return nil, rperr.NewProcessingError("unexpected_id_token", "id_token present in an OAuth2 authorization-code response")
	}
	if cfg.requireIDToken && !hasIDToken {
		return nil, rperr.NewProcessingError("missing_claim", "missing required claim %q", "id_token")
	}

	if hasIDToken && !cfg.ignoreIDToken {
		idToken, ok := idTokenValue.(string)
		if !ok || idToken == "" {
			return nil, rperr.NewProcessingError("invalid_field", "token response %q must be a non-empty string", "id_token")
		}
		tr.IDToken = idToken

		requireAuthTime := client.RequireAuthTime
		var maxAge *time.Duration
		switch {
		case cfg.maxAge.sentinel == validate.SkipAuthTimeCheck:
			requireAuthTime = false
		case cfg.maxAge.duration != nil:
			maxAge = cfg.maxAge.duration
			requireAuthTime = true
		case client.DefaultMaxAge != nil:
			maxAge = client.DefaultMaxAge
			requireAuthTime = true
		}

		claims, err := validate.Validate(ctx, idToken, validate.Options{
			KeyProvider:     keyProvider,
			ExpectedAlg:     client.IDTokenSigningAlg,
			SupportedAlgs:   as.IDTokenAlgs(),
			RequiredClaims:  []string{"iss", "aud", "sub", "iat", "exp"},
			Issuer:          as.Issuer,
			Audience:        client.ClientID,
			ExpectedAZP:     client.ClientID,
			RequireAuthTime: requireAuthTime,
			MaxAge:          maxAge,
			AccessToken:     tr.AccessToken,
			Nonce:           cfg.nonce,
		})
		if err != nil {
			return nil, err
		}
		recordIDTokenClaims(tr, claims)
	}

	return tr, nil
}
