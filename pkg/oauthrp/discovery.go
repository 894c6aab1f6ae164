package oauthrp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// DiscoveryMode selects the metadata-document URL transformation.
type DiscoveryMode string

const (
	// DiscoveryOIDC appends /.well-known/openid-configuration to the
	// issuer's pathname. This is the default.
	DiscoveryOIDC DiscoveryMode = "oidc"
	// DiscoveryOAuth2 applies RFC 8414's path-insertion rule instead.
	DiscoveryOAuth2 DiscoveryMode = "oauth2"
)

// DiscoveryURL computes the metadata document URL for issuer under mode.
func DiscoveryURL(issuer string, mode DiscoveryMode) (string, error) {
	u, err := url.Parse(issuer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", rperr.NewArgumentError("issuer", "invalid issuer URL %q", issuer)
	}

	switch mode {
	case DiscoveryOAuth2:
		if u.Path == "" || u.Path == "/" {
			u.Path = "/.well-known/oauth-authorization-server"
		} else {
			u.Path = "/.well-known/oauth-authorization-server" + u.Path
		}
	default:
		u.Path = collapseSlashes(u.Path + "/.well-known/openid-configuration")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// ValidateDiscoveryResponse fetches and validates an authorization
// server's metadata document. The recorded issuer must equal
// expectedIssuer byte-for-byte after URL normalization.
func ValidateDiscoveryResponse(ctx context.Context, doer Doer, expectedIssuer string, mode DiscoveryMode) (*AuthorizationServer, error) {
	discoveryURL, err := DiscoveryURL(expectedIssuer, mode)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", libraryUserAgent)

	logrus.WithFields(logrus.Fields{"issuer": expectedIssuer, "url": discoveryURL}).Debug("fetching discovery document")

	resp, err := doer.Do(req)
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "discovery_fetch_failed", "discovery request failed")
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(resp, body, http.StatusOK); err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_discovery_body", "discovery body is not a JSON object")
	}

	var as AuthorizationServer
	if err := json.Unmarshal(body, &as); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_discovery_body", "discovery body does not match the metadata schema")
	}
	as.Raw = raw

	expected, err := url.Parse(expectedIssuer)
	if err != nil {
		return nil, rperr.NewArgumentError("issuer", "invalid issuer URL %q", expectedIssuer)
	}
	got, err := url.Parse(as.Issuer)
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_issuer", "discovered issuer is not a valid URL")
	}
	if got.String() != expected.String() {
		return nil, rperr.NewProcessingError("issuer_mismatch", "discovered issuer %q does not match expected %q", as.Issuer, expectedIssuer)
	}

	return &as, nil
}
