package codec

import "math/big"

// EncodeUint encodes a non-negative big.Int as base64url per the
// base64urlUint convention of RFC 7518 §2: the minimal big-endian byte
// representation, with no leading zero octets.
func EncodeUint(i *big.Int) string {
	if i == nil {
		return ""
	}
	return EncodeToString(i.Bytes())
}

// DecodeUint parses a base64urlUint string back into a big.Int.
func DecodeUint(s string) (*big.Int, error) {
	b, err := DecodeString(s)
	if err != nil {
		return nil, err
	}
	i := new(big.Int).SetBytes(b)
	return i, nil
}
