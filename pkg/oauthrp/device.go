package oauthrp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// DeviceAuthorizationResponse is the body of a device authorization
// response (RFC 8628 §3.2). Interval is supplemented from the wire's
// integer seconds for direct use in a polling loop.
type DeviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	IntervalSeconds         int    `json:"interval,omitempty"`

	Interval time.Duration          `json:"-"`
	Raw      map[string]interface{} `json:"-"`
}

// ValidateDeviceAuthorizationResponse checks a device authorization
// response: status 200, the required string fields non-empty,
// expires_in strictly positive. interval defaults to 5s per RFC 8628
// when absent.
func ValidateDeviceAuthorizationResponse(resp *http.Response) (*DeviceAuthorizationResponse, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusOK); err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_device_body", "device authorization response is not a JSON object")
	}
	var dar DeviceAuthorizationResponse
	if err := json.Unmarshal(body, &dar); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_device_body", "device authorization response does not match the expected schema")
	}
	dar.Raw = raw

	for name, v := range map[string]string{
		"device_code":       dar.DeviceCode,
		"user_code":         dar.UserCode,
		"verification_uri":  dar.VerificationURI,
	} {
		if v == "" {
			return nil, rperr.NewProcessingError("missing_field", "device authorization response missing non-empty %q", name)
		}
	}
	if dar.ExpiresIn <= 0 {
		return nil, rperr.NewProcessingError("invalid_field", "device authorization response %q must be strictly positive", "expires_in")
	}

	interval := dar.IntervalSeconds
	if interval <= 0 {
		interval = 5
	}
	dar.Interval = time.Duration(interval) * time.Second

	return &dar, nil
}
