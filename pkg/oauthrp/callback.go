package oauthrp

import (
	"net/url"

	"github.com/oidcrp/oidcrp/pkg/rperr"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

// AuthorizationCallback is a validated authorization-code callback.
type AuthorizationCallback struct {
	Code  string
	State string
	Raw   url.Values
}

// ParseAuthorizationCallbackURL extracts the query parameters from a
// full callback URL for ValidateAuthorizationCallback.
func ParseAuthorizationCallbackURL(rawURL string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_url", "malformed callback URL")
	}
	return u.Query(), nil
}

// ValidateAuthorizationCallback validates an authorization-code
// callback's query parameters. It rejects a JARM "response" parameter
// (use ValidateJARMResponse instead) and any hybrid/implicit
// id_token/token parameters, surfaces an "error" parameter verbatim as
// an *OAuth2Error, and checks iss (when the AS advertises
// authorization_response_iss_parameter_supported) and the three-valued
// state parameter.
func ValidateAuthorizationCallback(values url.Values, as *AuthorizationServer, expectedState validate.StringOrSentinel) (*AuthorizationCallback, error) {
	if values.Get("response") != "" {
		return nil, rperr.NewUnsupportedOperationError("JARM response parameter present; use ValidateJARMResponse instead")
	}
	if values.Get("id_token") != "" || values.Get("token") != "" {
		return nil, rperr.NewUnsupportedOperationError("hybrid/implicit authorization responses are not supported")
	}
	if errCode := values.Get("error"); errCode != "" {
		return nil, &OAuth2Error{
			ErrorCode:        errCode,
			ErrorDescription: values.Get("error_description"),
			ErrorURI:         values.Get("error_uri"),
		}
	}

	if as != nil && as.AuthorizationResponseIssParameterSupported {
		iss := values.Get("iss")
		if iss == "" {
			return nil, rperr.NewProcessingError("missing_field", "missing required parameter %q", "iss")
		}
		if iss != as.Issuer {
			return nil, rperr.NewProcessingError("issuer_mismatch", "expected iss %q, got %q", as.Issuer, iss)
		}
	}

	if err := checkCallbackState(values, expectedState); err != nil {
		return nil, err
	}

	code := values.Get("code")
	if code == "" {
		return nil, rperr.NewProcessingError("missing_field", "missing required parameter %q", "code")
	}

	return &AuthorizationCallback{Code: code, State: values.Get("state"), Raw: values}, nil
}

func checkCallbackState(values url.Values, expected validate.StringOrSentinel) error {
	state, present := values["state"]
	var stateValue string
	if present && len(state) > 0 {
		stateValue = state[0]
	}

	switch {
	case expected.Sentinel == validate.SkipStateCheck:
		return nil
	case expected.Sentinel == validate.ExpectNoState:
		if present {
			return rperr.NewProcessingError("unexpected_state", "state parameter must be absent")
		}
		return nil
	case expected.Sentinel == nil && expected.Value == "":
		return nil
	default:
		if !present {
			return rperr.NewProcessingError("missing_field", "missing required parameter %q", "state")
		}
		if stateValue != expected.Value {
			return rperr.NewProcessingError("state_mismatch", "state does not match expected value")
		}
		return nil
	}
}
