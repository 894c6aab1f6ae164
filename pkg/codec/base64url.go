// Package codec implements the wire codecs used throughout the JOSE
// engine and protocol validators: unpadded base64url for byte strings,
// and base64urlUint for big.Int values per RFC 7518 §2.
package codec

import "encoding/base64"

// EncodeToString encodes b using unpadded base64url, per RFC 7515 §2.
// The result never contains '=', '+', or '/'.
func EncodeToString(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeString decodes an unpadded base64url string produced by
// EncodeToString. It rejects padded input.
func DecodeString(s string) ([]byte, error) {
	return base64.RawURLEncoding.Strict().DecodeString(s)
}

// ConcatJSON base64url-encodes each of parts and joins them with '.',
// the building block of every compact JOSE serialization segment pair.
func ConcatJSON(parts ...[]byte) string {
	out := make([]byte, 0, 64*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, '.')
		}
		out = append(out, []byte(EncodeToString(p))...)
	}
	return string(out)
}
