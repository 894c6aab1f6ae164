package oauthrp

import (
	"encoding/json"
	"net/http"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// PushedAuthorizationResponse is the body of a successful PAR response
// (RFC 9126 §2.2).
type PushedAuthorizationResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
	Raw        map[string]interface{} `json:"-"`
}

// ValidatePushedAuthorizationResponse checks a PAR response: status
// 201, request_uri a non-empty string, expires_in strictly positive.
func ValidatePushedAuthorizationResponse(resp *http.Response) (*PushedAuthorizationResponse, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusCreated); err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_par_body", "PAR response is not a JSON object")
	}
	var par PushedAuthorizationResponse
	if err := json.Unmarshal(body, &par); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_par_body", "PAR response does not match the expected schema")
	}
	par.Raw = raw

	if par.RequestURI == "" {
		return nil, rperr.NewProcessingError("missing_field", "PAR response missing non-empty %q", "request_uri")
	}
	if par.ExpiresIn <= 0 {
		return nil, rperr.NewProcessingError("invalid_field", "PAR response %q must be strictly positive", "expires_in")
	}
	return &par, nil
}
