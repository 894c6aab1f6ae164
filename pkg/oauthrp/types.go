// Package oauthrp implements the protocol-state validators for every
// authorization-server response kind, the WWW-Authenticate challenge
// parser, and the protected-resource request builder, layered on
// pkg/jose, pkg/validate, pkg/jwkset, and pkg/clientauth.
package oauthrp

import (
	"net/http"
	"time"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// Doer abstracts the HTTP round-trip (the library's "fetch" capability),
// letting *http.Client and test doubles satisfy the same interface.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// libraryUserAgent identifies this client to resource and authorization
// servers.
const libraryUserAgent = "oidcrp/1.0"

// AuthorizationServer holds an authorization server's discovered
// metadata. Constructed once by ValidateDiscoveryResponse and treated
// as immutable thereafter.
type AuthorizationServer struct {
	Issuer                                      string   `json:"issuer"`
	AuthorizationEndpoint                        string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                                string   `json:"token_endpoint,omitempty"`
	PushedAuthorizationRequestEndpoint           string   `json:"pushed_authorization_request_endpoint,omitempty"`
	IntrospectionEndpoint                        string   `json:"introspection_endpoint,omitempty"`
	RevocationEndpoint                           string   `json:"revocation_endpoint,omitempty"`
	UserinfoEndpoint                             string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                                      string   `json:"jwks_uri,omitempty"`
	DeviceAuthorizationEndpoint                   string   `json:"device_authorization_endpoint,omitempty"`
	IDTokenSigningAlgValuesSupported             []string `json:"id_token_signing_alg_values_supported,omitempty"`
	TokenEndpointAuthSigningAlgValuesSupported   []string `json:"token_endpoint_auth_signing_alg_values_supported,omitempty"`
	IntrospectionSigningAlgValuesSupported       []string `json:"introspection_signing_alg_values_supported,omitempty"`
	UserinfoSigningAlgValuesSupported            []string `json:"userinfo_signing_alg_values_supported,omitempty"`
	AuthorizationResponseIssParameterSupported   bool     `json:"authorization_response_iss_parameter_supported,omitempty"`
	RequirePushedAuthorizationRequests           bool     `json:"require_pushed_authorization_requests,omitempty"`

	// Raw is the full decoded metadata document, so callers can reach
	// provider-specific extensions this struct doesn't name.
	Raw map[string]interface{} `json:"-"`
}

// IDTokenAlgs returns IDTokenSigningAlgValuesSupported as jose.Algorithm
// values, dropping any member outside the supported JWS set.
func (as *AuthorizationServer) IDTokenAlgs() []jose.Algorithm {
	return filterSupportedJWSAlgs(as.IDTokenSigningAlgValuesSupported)
}

// IntrospectionAlgs is IDTokenAlgs' analog for signed introspection
// responses.
func (as *AuthorizationServer) IntrospectionAlgs() []jose.Algorithm {
	return filterSupportedJWSAlgs(as.IntrospectionSigningAlgValuesSupported)
}

// UserinfoAlgs is IDTokenAlgs' analog for signed userinfo responses.
func (as *AuthorizationServer) UserinfoAlgs() []jose.Algorithm {
	return filterSupportedJWSAlgs(as.UserinfoSigningAlgValuesSupported)
}

// HMACAuthSigningAlgs filters TokenEndpointAuthSigningAlgValuesSupported
// to the HMAC members client_secret_jwt may use.
func (as *AuthorizationServer) HMACAuthSigningAlgs() []jose.HMACAlgorithm {
	var out []jose.HMACAlgorithm
	for _, a := range as.TokenEndpointAuthSigningAlgValuesSupported {
		h := jose.HMACAlgorithm(a)
		if jose.IsSupportedHMACAlg(h) {
			out = append(out, h)
		}
	}
	return out
}

func filterSupportedJWSAlgs(raw []string) []jose.Algorithm {
	var out []jose.Algorithm
	for _, a := range raw {
		alg := jose.Algorithm(a)
		if jose.IsSupportedJWSAlg(alg) {
			out = append(out, alg)
		}
	}
	return out
}

// Client is the application's registered identity at one AS.
type Client struct {
	ClientID     string
	ClientSecret string

	// TokenEndpointAuthMethod defaults to client_secret_basic.
	TokenEndpointAuthMethod clientauth.Method
	// PrivateKey signs private_key_jwt assertions. It is not used for
	// DPoP proofs, which are signed with DPoPOptions.PrivateKey.
	PrivateKey *jose.Key

	// IDTokenSigningAlg, IntrospectionSigningAlg, UserinfoSigningAlg,
	// when set, override the AS's advertised algorithm list in the
	// corresponding pipeline run's alg policy.
	IDTokenSigningAlg       jose.Algorithm
	IntrospectionSigningAlg jose.Algorithm
	UserinfoSigningAlg      jose.Algorithm

	// RequestIntrospectionJWTResponse asks the introspection endpoint
	// for a signed JWT body via Accept negotiation.
	RequestIntrospectionJWTResponse bool

	// DefaultMaxAge and RequireAuthTime feed the ID Token auth_time
	// check's three-valued default.
	DefaultMaxAge   *time.Duration
	RequireAuthTime bool
}

// Validate enforces the client-authentication-method invariants of
// pkg/clientauth.Credentials.IsValid, plus a required client_id and a
// required client secret for the client_secret_* methods.
func (c *Client) Validate() error {
	if c.ClientID == "" {
		return rperr.NewArgumentError("clientID", "client_id is required")
	}
	creds := c.Credentials()
	switch creds.Method {
	case clientauth.MethodClientSecretBasic, clientauth.MethodClientSecretPost, clientauth.MethodClientSecretJWT:
		if c.ClientSecret == "" {
			return rperr.NewArgumentError("clientSecret", "client_secret is required with method %q", creds.Method)
		}
	}
	return creds.IsValid()
}

// Credentials builds the pkg/clientauth.Credentials used to authenticate
// token-endpoint (and introspection/revocation) requests.
func (c *Client) Credentials() *clientauth.Credentials {
	method := c.TokenEndpointAuthMethod
	if method == "" {
		method = clientauth.MethodClientSecretBasic
	}
	return &clientauth.Credentials{
		ClientID:         c.ClientID,
		ClientSecret:     c.ClientSecret,
		ClientPrivateKey: c.PrivateKey,
		Method:           method,
	}
}

// DPoPOptions configures DPoP for one protected-resource or token
// request. Both keys are required and must be a matching asymmetric
// pair; PublicKey must be extractable.
type DPoPOptions struct {
	PrivateKey    *jose.Key
	PublicKey     *jose.Key
	NonceOverride string
}

// Validate checks DPoPOptions' key-shape invariants: a private signing
// key paired with a separate, extractable public key whose public
// components (the RFC 7638 thumbprint) actually match PrivateKey's own
// public half.
func (d *DPoPOptions) Validate() error {
	if d.PrivateKey == nil || !d.PrivateKey.HasPrivateKey() {
		return rperr.NewArgumentError("privateKey", "DPoP requires a private signing key")
	}
	if d.PublicKey == nil || d.PublicKey.HasPrivateKey() {
		return rperr.NewArgumentError("publicKey", "DPoP requires a separate public key")
	}
	if !d.PublicKey.Extractable() {
		return rperr.NewUnsupportedOperationError("DPoP public key must be marked extractable")
	}
	privateThumb, err := d.PrivateKey.PublicJWK().Thumbprint()
	if err != nil {
		return err
	}
	publicThumb, err := d.PublicKey.Thumbprint()
	if err != nil {
		return err
	}
	if privateThumb != publicThumb {
		return rperr.NewArgumentError("publicKey", "DPoP public key does not match the private key's own public half")
	}
	return nil
}
