package clientauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"hash"
	"net/url"
	"strings"
	"time"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// Method identifies a token-endpoint client authentication method, per
// methods.
type Method string

const (
	MethodClientSecretBasic Method = "client_secret_basic"
	MethodClientSecretPost  Method = "client_secret_post"
	MethodClientSecretJWT   Method = "client_secret_jwt"
	MethodPrivateKeyJWT     Method = "private_key_jwt"
	MethodNone              Method = "none"
)

const assertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Credentials holds the metadata needed to authenticate at a token
// endpoint. Only the fields the chosen Method requires need be set;
// IsValid enforces the forbidden combinations named below.
type Credentials struct {
	ClientID     string
	ClientSecret string

	// ClientPrivateKey signs private_key_jwt assertions. Its Algorithm
	// field determines the JWS alg used.
	ClientPrivateKey *jose.Key

	Method Method
	// TokenEndpointAuthSigningAlg, for client_secret_jwt, overrides the
	// HMAC alg derived from SupportedHMACAlgs.
	TokenEndpointAuthSigningAlg jose.HMACAlgorithm
	// SupportedHMACAlgs is the AS metadata's
	// token_endpoint_auth_signing_alg_values_supported, filtered to the
	// HMAC members; used when TokenEndpointAuthSigningAlg is unset.
	SupportedHMACAlgs []jose.HMACAlgorithm
}

// IsValid rejects the forbidden credential/method combinations
// §4.4 names: client_secret_* methods with a configured private key,
// and private_key_jwt/none with a configured client secret.
func (c *Credentials) IsValid() error {
	switch c.Method {
	case MethodClientSecretBasic, MethodClientSecretPost, MethodClientSecretJWT:
		if c.ClientPrivateKey != nil {
			return rperr.NewArgumentError("clientPrivateKey", "must not be set with method %q", c.Method)
		}
	case MethodPrivateKeyJWT, MethodNone:
		if c.ClientSecret != "" {
			return rperr.NewArgumentError("clientSecret", "must not be set with method %q", c.Method)
		}
	}
	return nil
}

// Apply authenticates a token-endpoint request: it adds body form
// fields and sets header values according to Method, mutating form and
// header in place. issuer and tokenEndpoint are needed for the JWT
// assertion audience.
func (c *Credentials) Apply(header map[string]string, form url.Values, issuer, tokenEndpoint string) error {
	if err := c.IsValid(); err != nil {
		return err
	}

	switch c.Method {
	case MethodClientSecretBasic:
		header["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString(
			[]byte(formEncode(c.ClientID)+":"+formEncode(c.ClientSecret)))
	case MethodClientSecretPost:
		form.Set("client_id", c.ClientID)
		form.Set("client_secret", c.ClientSecret)
	case MethodClientSecretJWT:
		assertion, err := c.signHMACAssertion(issuer, tokenEndpoint)
		if err != nil {
			return err
		}
		form.Set("client_id", c.ClientID)
		form.Set("client_assertion_type", assertionType)
		form.Set("client_assertion", assertion)
	case MethodPrivateKeyJWT:
		assertion, err := c.signPrivateKeyAssertion(issuer, tokenEndpoint)
		if err != nil {
			return err
		}
		form.Set("client_id", c.ClientID)
		form.Set("client_assertion_type", assertionType)
		form.Set("client_assertion", assertion)
	case MethodNone:
		form.Set("client_id", c.ClientID)
	default:
		return rperr.NewArgumentError("method", "unsupported client authentication method %q", c.Method)
	}
	return nil
}

// formEncode implements application/x-www-form-urlencoded encoding per
// RFC 6749 Appendix B: percent-encode, then rewrite %20 back to '+'.
func formEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%20", "+")
}

func (c *Credentials) signPrivateKeyAssertion(issuer, tokenEndpoint string) (string, error) {
	if c.ClientPrivateKey == nil {
		return "", rperr.NewArgumentError("clientPrivateKey", "private_key_jwt requires a signing key")
	}
	jti, err := GenerateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := map[string]interface{}{
		"jti": jti,
		"aud": []string{issuer, tokenEndpoint},
		"exp": now.Add(60 * time.Second).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": c.ClientID,
		"sub": c.ClientID,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return jose.Sign(&jose.Header{Type: "JWT"}, payload, c.ClientPrivateKey)
}

func (c *Credentials) signHMACAssertion(issuer, tokenEndpoint string) (string, error) {
	alg := c.TokenEndpointAuthSigningAlg
	if alg == "" {
		for _, a := range c.SupportedHMACAlgs {
			if jose.IsSupportedHMACAlg(a) {
				alg = a
				break
			}
		}
	}
	if alg == "" {
		alg = jose.AlgHS256
	}

	jti, err := GenerateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := map[string]interface{}{
		"jti": jti,
		"aud": []string{issuer, tokenEndpoint},
		"exp": now.Add(60 * time.Second).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": c.ClientID,
		"sub": c.ClientID,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return signHMACJWT(alg, payload, c.ClientSecret)
}

func signHMACJWT(alg jose.HMACAlgorithm, payload []byte, secret string) (string, error) {
	header, err := json.Marshal(map[string]interface{}{"alg": string(alg), "typ": "JWT"})
	if err != nil {
		return "", err
	}
	signingInput := codec.ConcatJSON(header, payload)
	mac := hmac.New(hmacHashForAlg(alg), []byte(secret))
	mac.Write([]byte(signingInput))
	sig := mac.Sum(nil)
	return signingInput + "." + codec.EncodeToString(sig), nil
}

func hmacHashForAlg(alg jose.HMACAlgorithm) func() hash.Hash {
	switch alg {
	case jose.AlgHS384:
		return sha512.New384
	case jose.AlgHS512:
		return sha512.New
	default:
		return sha256.New
	}
}
