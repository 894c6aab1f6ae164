// Package validate implements the short-circuiting JWT validation
// pipeline used for ID Tokens, signed introspection/userinfo bodies,
// and JARM authorization responses.
package validate

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/json"
	"strings"
	"time"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/jose"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// clockTolerance is the symmetric window applied to exp/nbf/auth_time
// comparisons against the local clock.
const clockTolerance = 30 * time.Second

// Claims is a decoded JWT payload, before any structural checks run.
type Claims map[string]interface{}

// Options configures one pipeline run. The alg policy and the aud
// check always run (with neither ExpectedAlg nor SupportedAlgs set,
// only RS256 is accepted); iss is checked when Issuer is non-empty;
// the remaining checks run only when their option is set.
type Options struct {
	// KeyProvider resolves the verification key for the parsed header.
	KeyProvider jose.KeyProvider

	// ExpectedAlg, if set, is the client's configured expected alg; it
	// takes priority over SupportedAlgs in the alg-policy step.
	ExpectedAlg jose.Algorithm
	// SupportedAlgs is the AS metadata's id_token_signing_alg_values_supported
	// (or the introspection/userinfo analog); used when ExpectedAlg is unset.
	SupportedAlgs []jose.Algorithm

	// TypHeader, if non-empty, is the expected typ header value
	// (already stripped of any "application/" prefix), compared
	// case-insensitively. Used for introspection, never for ID Tokens.
	TypHeader string

	// RequiredClaims lists claim names that must be present (any type).
	RequiredClaims []string

	Issuer string
	// IssuerOptional skips the iss check entirely when the claim is
	// absent, rather than treating absence as a mismatch (used for
	// userinfo's optional signed-issuer check).
	IssuerOptional bool

	// Audience is the client_id to check aud against. AudienceOptional
	// skips the whole check when aud is absent (used for userinfo).
	Audience         string
	AudienceOptional bool

	// ExpectedAZP is compared against azp when aud is an array of
	// length != 1; when empty, Audience is used in its place, and when
	// both are empty azp is not checked.
	ExpectedAZP string

	// RequireAuthTime forces the auth_time check even without MaxAge.
	RequireAuthTime bool
	// MaxAge, if non-nil, additionally requires
	// auth_time + *MaxAge >= now - clockTolerance.
	MaxAge *time.Duration

	// AccessToken, if non-empty, is checked against the at_hash claim
	// when the token carries one; a token without at_hash passes.
	AccessToken string

	// Nonce is the three-valued nonce check: Expect(value),
	// ExpectSentinel(ExpectNoNonce), or the zero value to skip.
	Nonce StringOrSentinel
}

// Validate runs the short-circuiting pipeline over a compact JWS and
// returns its decoded, checked claims.
func Validate(ctx context.Context, token string, opts Options) (Claims, error) {
	verified, err := jose.Verify(ctx, token, opts.KeyProvider)
	if err != nil {
		return nil, err
	}

	if err := checkAlgPolicy(verified.Header.Algorithm, opts); err != nil {
		return nil, err
	}
	if len(verified.Header.Critical) > 0 {
		return nil, rperr.NewProcessingError("unsupported_crit", "crit header parameters are not supported")
	}
	if opts.TypHeader != "" {
		if err := checkTyp(verified.Header.Type, opts.TypHeader); err != nil {
			return nil, err
		}
	}

	claims, err := parsePayload(verified.Payload)
	if err != nil {
		return nil, err
	}

	if err := checkPresence(claims, opts.RequiredClaims); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := checkTypesAndTimestamps(claims, now); err != nil {
		return nil, err
	}
	if opts.Issuer != "" {
		if _, present := claims["iss"]; !present && opts.IssuerOptional {
			// absent and optional: skip entirely
		} else if err := checkIssuer(claims, opts.Issuer); err != nil {
			return nil, err
		}
	}
	if err := checkAudience(claims, opts.Audience, opts.AudienceOptional); err != nil {
		return nil, err
	}
	expectedAZP := opts.ExpectedAZP
	if expectedAZP == "" {
		expectedAZP = opts.Audience
	}
	if err := checkAZP(claims, expectedAZP); err != nil {
		return nil, err
	}
	if err := checkAuthTime(claims, opts, now); err != nil {
		return nil, err
	}
	if _, present := claims["at_hash"]; opts.AccessToken != "" && present {
		if err := checkAtHash(claims, opts.AccessToken, verified.Header.Algorithm); err != nil {
			return nil, err
		}
	}
	if err := checkNonce(claims, opts.Nonce); err != nil {
		return nil, err
	}

	return claims, nil
}

// checkAlgPolicy resolves the accepted alg in priority order: the
// client's configured expected alg, then the AS metadata's supported
// set, then RS256.
func checkAlgPolicy(headerAlg jose.Algorithm, opts Options) error {
	switch {
	case opts.ExpectedAlg != "":
		if headerAlg != opts.ExpectedAlg {
			return rperr.NewProcessingError("alg_mismatch", "expected alg %q, got %q", opts.ExpectedAlg, headerAlg)
		}
	case len(opts.SupportedAlgs) > 0:
		if !algIn(headerAlg, opts.SupportedAlgs) {
			return rperr.NewProcessingError("alg_mismatch", "alg %q is not in the server's supported set", headerAlg)
		}
	default:
		if headerAlg != jose.AlgRS256 {
			return rperr.NewProcessingError("alg_mismatch", "expected alg %q (fallback), got %q", jose.AlgRS256, headerAlg)
		}
	}
	return nil
}

func algIn(alg jose.Algorithm, set []jose.Algorithm) bool {
	for _, a := range set {
		if a == alg {
			return true
		}
	}
	return false
}

func checkTyp(headerTyp, want string) error {
	got := strings.TrimPrefix(strings.ToLower(headerTyp), "application/")
	if got != strings.ToLower(want) {
		return rperr.NewProcessingError("typ_mismatch", "expected typ %q, got %q", want, headerTyp)
	}
	return nil
}

// parsePayload requires the decoded bytes to be a top-level JSON
// object literal, not an array or null.
func parsePayload(raw []byte) (Claims, error) {
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_payload", "payload is not a JSON object")
	}
	if claims == nil {
		return nil, rperr.NewProcessingError("invalid_payload", "payload must not be null")
	}
	return claims, nil
}

func checkPresence(claims Claims, required []string) error {
	for _, name := range required {
		if _, ok := claims[name]; !ok {
			return rperr.NewProcessingError("missing_claim", "missing required claim %q", name)
		}
	}
	return nil
}

func checkTypesAndTimestamps(claims Claims, now time.Time) error {
	if v, ok := claims["exp"]; ok {
		exp, ok := v.(float64)
		if !ok {
			return rperr.NewProcessingError("invalid_claim", "exp must be a number")
		}
		if time.Unix(int64(exp), 0).Before(now.Add(-clockTolerance)) {
			return rperr.NewProcessingError("expired", "token has expired")
		}
	}
	if v, ok := claims["iat"]; ok {
		if _, ok := v.(float64); !ok {
			return rperr.NewProcessingError("invalid_claim", "iat must be a number")
		}
	}
	if v, ok := claims["nbf"]; ok {
		nbf, ok := v.(float64)
		if !ok {
			return rperr.NewProcessingError("invalid_claim", "nbf must be a number")
		}
		if time.Unix(int64(nbf), 0).After(now.Add(clockTolerance)) {
			return rperr.NewProcessingError("not_yet_valid", "token is not yet valid")
		}
	}
	if v, ok := claims["iss"]; ok {
		if _, ok := v.(string); !ok {
			return rperr.NewProcessingError("invalid_claim", "iss must be a string")
		}
	}
	if v, ok := claims["aud"]; ok {
		if _, err := audienceStrings(v); err != nil {
			return err
		}
	}
	return nil
}

func audienceStrings(v interface{}) ([]string, error) {
	switch aud := v.(type) {
	case string:
		return []string{aud}, nil
	case []interface{}:
		out := make([]string, 0, len(aud))
		for _, item := range aud {
			s, ok := item.(string)
			if !ok {
				return nil, rperr.NewProcessingError("invalid_claim", "aud array must contain only strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, rperr.NewProcessingError("invalid_claim", "aud must be a string or array of strings")
	}
}

func checkIssuer(claims Claims, issuer string) error {
	iss, _ := claims["iss"].(string)
	if iss != issuer {
		return rperr.NewProcessingError("issuer_mismatch", "expected iss %q, got %q", issuer, iss)
	}
	return nil
}

func checkAudience(claims Claims, clientID string, optional bool) error {
	v, present := claims["aud"]
	if !present {
		if optional {
			return nil
		}
		return rperr.NewProcessingError("missing_claim", "missing required claim %q", "aud")
	}
	aud, err := audienceStrings(v)
	if err != nil {
		return err
	}
	for _, a := range aud {
		if a == clientID {
			return nil
		}
	}
	return rperr.NewProcessingError("audience_mismatch", "client_id %q not present in aud", clientID)
}

func checkAZP(claims Claims, expectedAZP string) error {
	v, present := claims["aud"]
	if !present || expectedAZP == "" {
		return nil
	}
	aud, err := audienceStrings(v)
	if err != nil {
		return err
	}
	if len(aud) == 1 {
		return nil
	}
	azp, _ := claims["azp"].(string)
	if azp != expectedAZP {
		return rperr.NewProcessingError("azp_mismatch", "expected azp %q, got %q", expectedAZP, azp)
	}
	return nil
}

func checkAuthTime(claims Claims, opts Options, now time.Time) error {
	required := opts.RequireAuthTime || opts.MaxAge != nil
	v, present := claims["auth_time"]
	if !required {
		return nil
	}
	if !present {
		return rperr.NewProcessingError("missing_claim", "missing required claim %q", "auth_time")
	}
	authTime, ok := v.(float64)
	if !ok {
		return rperr.NewProcessingError("invalid_claim", "auth_time must be a number")
	}
	if opts.MaxAge != nil {
		deadline := time.Unix(int64(authTime), 0).Add(*opts.MaxAge)
		if deadline.Before(now.Add(-clockTolerance)) {
			return rperr.NewProcessingError("auth_time_expired", "auth_time + maxAge has elapsed")
		}
	}
	return nil
}

// checkAtHash verifies the ID Token's at_hash claim against the
// left-half hash of accessToken under the digest implied by idTokenAlg.
func checkAtHash(claims Claims, accessToken string, idTokenAlg jose.Algorithm) error {
	want, ok := claims["at_hash"].(string)
	if !ok {
		return rperr.NewProcessingError("missing_claim", "missing required claim %q", "at_hash")
	}
	digest, err := atHashDigest(accessToken, idTokenAlg)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(digest)) != 1 {
		return rperr.NewProcessingError("at_hash_mismatch", "at_hash does not match access_token")
	}
	return nil
}

func atHashDigest(accessToken string, alg jose.Algorithm) (string, error) {
	var full []byte
	switch {
	case strings.HasSuffix(string(alg), "256"):
		sum := sha256.Sum256([]byte(accessToken))
		full = sum[:]
	case strings.HasSuffix(string(alg), "384"):
		sum := sha512.Sum384([]byte(accessToken))
		full = sum[:]
	case strings.HasSuffix(string(alg), "512"):
		sum := sha512.Sum512([]byte(accessToken))
		full = sum[:]
	default:
		return "", rperr.NewUnsupportedOperationError("unsupported ID Token alg %q for at_hash", alg)
	}
	return codec.EncodeToString(full[:len(full)/2]), nil
}

func checkNonce(claims Claims, expected StringOrSentinel) error {
	v, present := claims["nonce"]
	switch {
	case expected.is(ExpectNoNonce):
		if present {
			return rperr.NewProcessingError("unexpected_nonce", "nonce claim must be absent")
		}
		return nil
	case expected.Sentinel == nil && expected.Value == "":
		return nil
	default:
		nonce, ok := v.(string)
		if !present || !ok {
			return rperr.NewProcessingError("missing_claim", "missing required claim %q", "nonce")
		}
		if nonce != expected.Value {
			return rperr.NewProcessingError("nonce_mismatch", "nonce does not match expected value")
		}
		return nil
	}
}
