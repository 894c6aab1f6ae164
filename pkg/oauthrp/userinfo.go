package oauthrp

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
	"github.com/oidcrp/oidcrp/pkg/validate"
)

// UserInfoResponse is a normalized userinfo endpoint response body.
type UserInfoResponse struct {
	Subject string
	Raw     map[string]interface{}
}

// ValidateUserInfoResponse validates a userinfo response, either a
// bare JSON object or a signed application/jwt body. For the signed
// path, the optional iss check compares against client_id rather than
// the AS issuer, and the optional aud check compares against the AS
// issuer rather than client_id; both checks are skipped when the claim
// is absent. See DESIGN.md for the rationale for this asymmetry.
func ValidateUserInfoResponse(ctx context.Context, resp *http.Response, as *AuthorizationServer, client *Client, keyProvider jose.KeyProvider, expectedSubject validate.StringOrSentinel) (*UserInfoResponse, error) {
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusOK); err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	var raw map[string]interface{}
	if mediaType == "application/jwt" {
		claims, err := validate.Validate(ctx, string(body), validate.Options{
			KeyProvider:      keyProvider,
			ExpectedAlg:      client.UserinfoSigningAlg,
			SupportedAlgs:    as.UserinfoAlgs(),
			Issuer:           client.ClientID,
			IssuerOptional:   true,
			Audience:         as.Issuer,
			AudienceOptional: true,
		})
		if err != nil {
			return nil, err
		}
		raw = claims
	} else {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, rperr.WrapProcessingError(err, "invalid_userinfo_body", "userinfo response is not a JSON object")
		}
	}

	sub, ok := raw["sub"].(string)
	if !ok || sub == "" {
		return nil, rperr.NewProcessingError("missing_claim", "missing required claim %q", "sub")
	}
	if expectedSubject.Sentinel != validate.SkipSubjectCheck && expectedSubject.Value != sub {
		return nil, rperr.NewProcessingError("subject_mismatch", "expected sub %q, got %q", expectedSubject.Value, sub)
	}

	return &UserInfoResponse{Subject: sub, Raw: raw}, nil
}
