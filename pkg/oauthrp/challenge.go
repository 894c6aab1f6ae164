package oauthrp

import (
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Challenge is one parsed WWW-Authenticate scheme with its auth-params,
// e.g. Bearer realm="api", error="invalid_token".
type Challenge struct {
	Scheme string
	Params map[string]string
}

// Decode maps c.Params onto out (a pointer to a caller-defined struct),
// for challenge params this type doesn't name as a dedicated field
// (e.g. DPoP's "algs", a provider's nonstandard extension param).
func (c Challenge) Decode(out interface{}) error {
	params := make(map[string]interface{}, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return mapstructure.Decode(params, out)
}

// paramKeyRe matches a parameter key up to and including its '=' sign,
// using the RFC 7230 token charset.
var paramKeyRe = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+\\-.^_`|~]+=")

// ParseWWWAuthenticate parses a WWW-Authenticate header value into its
// component challenges: each comma-leading scheme starts a new
// Challenge; key=value pairs are split on the RFC 7230 token boundary,
// quoted-string values spanning a comma are rejoined, surrounding
// quotes are stripped, and scheme/param names are lowercased.
func ParseWWWAuthenticate(header string) []Challenge {
	var challenges []Challenge
	var currentParams map[string]string

	for _, seg := range splitTopLevelCommas(header) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		if scheme, rest, isNewScheme := splitScheme(seg); isNewScheme {
			currentParams = map[string]string{}
			challenges = append(challenges, Challenge{
				Scheme: strings.ToLower(scheme),
				Params: currentParams,
			})
			if rest != "" {
				addParam(currentParams, rest)
			}
			continue
		}

		if currentParams == nil {
			// No preceding scheme recognized; treat the bare token as
			// an unnamed scheme rather than dropping it.
			currentParams = map[string]string{}
			challenges = append(challenges, Challenge{
				Scheme: strings.ToLower(seg),
				Params: currentParams,
			})
			continue
		}

		addParam(currentParams, seg)
	}
	return challenges
}

// splitTopLevelCommas splits s on commas outside of double-quoted spans.
func splitTopLevelCommas(s string) []string {
	var segments []string
	var buf strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			buf.WriteByte(c)
		case c == ',' && !inQuotes:
			segments = append(segments, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}
	segments = append(segments, buf.String())
	return segments
}

// splitScheme decides whether seg starts a new auth-scheme: a bare
// token, or a token followed by whitespace and then its first
// key=value pair, where the '=' belongs to that first pair rather than
// to a value continuing the prior scheme's param list (detected by the
// '=' occurring before any whitespace).
func splitScheme(seg string) (scheme, rest string, ok bool) {
	eq := strings.IndexByte(seg, '=')
	if eq == -1 {
		return seg, "", true
	}
	sp := strings.IndexByte(seg, ' ')
	if sp == -1 || sp > eq {
		return "", "", false
	}
	first := seg[:sp]
	if strings.ContainsAny(first, `="`) {
		return "", "", false
	}
	return first, strings.TrimSpace(seg[sp+1:]), true
}

// addParam records one key=value pair (quotes stripped, key lowercased)
// into params.
func addParam(params map[string]string, seg string) {
	seg = strings.TrimSpace(seg)
	m := paramKeyRe.FindString(seg)
	if m == "" {
		return
	}
	key := strings.ToLower(strings.TrimSuffix(m, "="))
	value := strings.TrimSpace(seg[len(m):])
	value = strings.Trim(value, `"`)
	params[key] = value
}
