package oauthrp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// OAuth2Error is the {error, error_description?, error_uri?} shape
// returned by every token, introspection, revocation, PAR, and device
// authorization endpoint on failure. Validators return it as a regular
// Go error value (wrapped so errors.As finds it), never as a panic.
type OAuth2Error struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
	}
	return e.ErrorCode
}

// IsOAuth2Error reports whether err is (or wraps) an *OAuth2Error,
// returning it for inspection.
func IsOAuth2Error(err error) (*OAuth2Error, bool) {
	var oe *OAuth2Error
	if stderrors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// requireStatus enforces an endpoint's required success status code,
// extracting an OAuth2Error from any 4xx body and erroring otherwise on
// a non-success status.
func requireStatus(resp *http.Response, body []byte, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		oe, err := extractOAuthError(body)
		if err != nil {
			return err
		}
		return oe
	}
	return rperr.NewProcessingError("unexpected_status", "expected status %d, got %d", want, resp.StatusCode)
}

// extractOAuthError parses a 4xx body as an OAuth2Error: error must be
// a non-empty string; non-string error_description/error_uri members
// are dropped rather than rejected.
func extractOAuthError(body []byte) (*OAuth2Error, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_error_body", "4xx response body is not a JSON object")
	}
	code, ok := raw["error"].(string)
	if !ok || code == "" {
		return nil, rperr.NewProcessingError("invalid_error_body", "4xx response missing non-empty %q", "error")
	}
	oe := &OAuth2Error{ErrorCode: code}
	if desc, ok := raw["error_description"].(string); ok {
		oe.ErrorDescription = desc
	}
	if uri, ok := raw["error_uri"].(string); ok {
		oe.ErrorURI = uri
	}
	return oe, nil
}

// readBody reads and closes resp.Body once so its bytes can be reused
// by every subsequent check (status, error body, schema).
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return b, nil
}
