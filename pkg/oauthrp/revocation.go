package oauthrp

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// BuildRevocationRequest authenticates and builds a revocation request
// (RFC 7009) for token. tokenTypeHint, if non-empty, is sent as
// token_type_hint.
func BuildRevocationRequest(ctx context.Context, as *AuthorizationServer, client *Client, token, tokenTypeHint string) (*http.Request, error) {
	if as == nil || as.RevocationEndpoint == "" {
		return nil, rperr.NewArgumentError("as", "authorization server has no revocation_endpoint")
	}
	if token == "" {
		return nil, rperr.NewArgumentError("token", "token is required")
	}

	form := url.Values{}
	form.Set("token", token)
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	headers := map[string]string{}
	if err := client.Credentials().Apply(headers, form, as.Issuer, as.RevocationEndpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, as.RevocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", libraryUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// ValidateRevocationResponse requires status 200; RFC 7009 allows an
// empty body on success.
func ValidateRevocationResponse(resp *http.Response) error {
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	return requireStatus(resp, body, http.StatusOK)
}
