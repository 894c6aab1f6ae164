package jose

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// Header holds the subset of JWS/JWE compact header parameters this
// engine produces or inspects.
type Header struct {
	Algorithm Algorithm `json:"alg,omitempty"`
	Type      string    `json:"typ,omitempty"`
	KeyID     string    `json:"kid,omitempty"`
	Critical  []string  `json:"crit,omitempty"`
	JWK       *Key      `json:"jwk,omitempty"`
}

// hashForAlg maps a JWS algorithm suffix to its digest.
func hashForAlg(alg Algorithm) crypto.Hash {
	switch alg {
	case AlgPS256, AlgES256, AlgRS256:
		return crypto.SHA256
	case AlgPS384, AlgES384, AlgRS384:
		return crypto.SHA384
	case AlgPS512, AlgES512, AlgRS512:
		return crypto.SHA512
	}
	return 0
}

// Sign produces a compact JWS over payload using key, whose Algorithm
// field selects the signing algorithm. header.Algorithm is overwritten
// to match the key.
func Sign(header *Header, payload []byte, key *Key) (string, error) {
	if !key.HasPrivateKey() {
		return "", rperr.NewArgumentError("key", "signing requires a private key")
	}
	alg := key.Algorithm
	if !IsSupportedJWSAlg(alg) {
		return "", rperr.NewUnsupportedOperationError("unsupported signing algorithm %q", alg)
	}
	if !algMatchesKeyType(alg, key.KeyType) {
		return "", rperr.NewUnsupportedOperationError("algorithm %q does not match key type %q", alg, key.KeyType)
	}

	h := *header
	h.Algorithm = alg
	headerJSON, err := json.Marshal(&h)
	if err != nil {
		return "", err
	}

	signingInput := codec.ConcatJSON(headerJSON, payload)
	sig, err := signWithKey(alg, key, []byte(signingInput))
	if err != nil {
		return "", err
	}

	return signingInput + "." + codec.EncodeToString(sig), nil
}

func algMatchesKeyType(alg Algorithm, kt KeyType) bool {
	switch alg {
	case AlgPS256, AlgPS384, AlgPS512, AlgRS256, AlgRS384, AlgRS512:
		return kt == KeyTypeRSA
	case AlgES256, AlgES384, AlgES512:
		return kt == KeyTypeEC
	}
	return false
}

func signWithKey(alg Algorithm, key *Key, signingInput []byte) ([]byte, error) {
	if err := key.materialize(); err != nil {
		return nil, err
	}
	h := hashForAlg(alg)
	hasher := h.New()
	hasher.Write(signingInput)
	digest := hasher.Sum(nil)

	switch alg {
	case AlgRS256, AlgRS384, AlgRS512:
		priv, ok := key.privateKey.(*rsa.PrivateKey)
		if !ok {
			return nil, rperr.NewArgumentError("key", "private key is not RSA")
		}
		if priv.N.BitLen() < minRSAModulusBits {
			return nil, rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", priv.N.BitLen())
		}
		return rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	case AlgPS256, AlgPS384, AlgPS512:
		priv, ok := key.privateKey.(*rsa.PrivateKey)
		if !ok {
			return nil, rperr.NewArgumentError("key", "private key is not RSA")
		}
		if priv.N.BitLen() < minRSAModulusBits {
			return nil, rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", priv.N.BitLen())
		}
		saltLen := h.Size()
		return rsa.SignPSS(rand.Reader, priv, h, digest, &rsa.PSSOptions{SaltLength: saltLen, Hash: h})
	case AlgES256, AlgES384, AlgES512:
		priv, ok := key.privateKey.(*ecdsa.PrivateKey)
		if !ok {
			return nil, rperr.NewArgumentError("key", "private key is not EC")
		}
		r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
		if err != nil {
			return nil, err
		}
		return fixedLengthECDSASignature(alg, r, s), nil
	}
	return nil, rperr.NewUnsupportedOperationError("unsupported signing algorithm %q", alg)
}

func fixedLengthECDSASignature(alg Algorithm, r, s *big.Int) []byte {
	octets := ecdsaOctets(alg)
	buf := make([]byte, 2*octets)
	r.FillBytes(buf[:octets])
	s.FillBytes(buf[octets:])
	return buf
}

func ecdsaOctets(alg Algorithm) int {
	switch alg {
	case AlgES256:
		return 32
	case AlgES384:
		return 48
	case AlgES512:
		return 66
	}
	return 0
}

// KeyProvider resolves the verification key for a parsed JWS header. It
// is handed the header (so a JWKS selector can use kid/alg) and returns
// the Key to verify against. Implementations backed by a JWKS fetch
// honor ctx cancellation.
type KeyProvider func(ctx context.Context, header *Header) (*Key, error)

// VerifiedJWS is the output of Verify: the parsed header and the raw
// (still-JSON) payload bytes, ready for the claims pipeline to decode.
type VerifiedJWS struct {
	Header  *Header
	Payload []byte
}

// Verify splits, parses, and verifies a compact JWS. A 5-segment token
// (JWE presented where a JWS was expected) and anything other than 3
// segments are rejected outright.
func Verify(ctx context.Context, token string, resolveKey KeyProvider) (*VerifiedJWS, error) {
	segments := strings.Split(token, ".")
	switch len(segments) {
	case 5:
		return nil, rperr.NewUnsupportedOperationError("JWE-structured token presented where a JWS was expected")
	case 3:
		// continue
	default:
		return nil, rperr.NewProcessingError("invalid_jws", "expected 3 segments, got %d", len(segments))
	}

	headerJSON, err := codec.DecodeString(segments[0])
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jws", "malformed header")
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jws", "malformed header")
	}
	if !IsSupportedJWSAlg(header.Algorithm) {
		return nil, rperr.NewUnsupportedOperationError("unsupported alg %q", header.Algorithm)
	}

	payload, err := codec.DecodeString(segments[1])
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jws", "malformed payload")
	}
	sig, err := codec.DecodeString(segments[2])
	if err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jws", "malformed signature")
	}

	key, err := resolveKey(ctx, &header)
	if err != nil {
		return nil, err
	}
	if err := key.materialize(); err != nil {
		return nil, err
	}
	if !algMatchesKeyType(header.Algorithm, key.KeyType) {
		return nil, rperr.NewUnsupportedOperationError("algorithm %q does not match key type %q", header.Algorithm, key.KeyType)
	}

	signingInput := segments[0] + "." + segments[1]
	if err := verifyWithKey(header.Algorithm, key, []byte(signingInput), sig); err != nil {
		return nil, rperr.WrapProcessingError(err, "bad_signature", "signature verification failed")
	}

	return &VerifiedJWS{Header: &header, Payload: payload}, nil
}

func verifyWithKey(alg Algorithm, key *Key, signingInput, sig []byte) error {
	h := hashForAlg(alg)
	hasher := h.New()
	hasher.Write(signingInput)
	digest := hasher.Sum(nil)

	switch alg {
	case AlgRS256, AlgRS384, AlgRS512:
		pub, ok := key.publicKey.(*rsa.PublicKey)
		if !ok {
			return rperr.NewArgumentError("key", "public key is not RSA")
		}
		if pub.N.BitLen() < minRSAModulusBits {
			return rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", pub.N.BitLen())
		}
		return rsa.VerifyPKCS1v15(pub, h, digest, sig)
	case AlgPS256, AlgPS384, AlgPS512:
		pub, ok := key.publicKey.(*rsa.PublicKey)
		if !ok {
			return rperr.NewArgumentError("key", "public key is not RSA")
		}
		if pub.N.BitLen() < minRSAModulusBits {
			return rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", pub.N.BitLen())
		}
		return rsa.VerifyPSS(pub, h, digest, sig, &rsa.PSSOptions{SaltLength: h.Size(), Hash: h})
	case AlgES256, AlgES384, AlgES512:
		pub, ok := key.publicKey.(*ecdsa.PublicKey)
		if !ok {
			return rperr.NewArgumentError("key", "public key is not EC")
		}
		octets := ecdsaOctets(alg)
		if len(sig) != 2*octets {
			return rperr.NewProcessingError("bad_signature", "unexpected ECDSA signature length")
		}
		r := new(big.Int).SetBytes(sig[:octets])
		s := new(big.Int).SetBytes(sig[octets:])
		if !ecdsa.Verify(pub, digest, r, s) {
			return rperr.NewProcessingError("bad_signature", "ECDSA verification failed")
		}
		return nil
	}
	return rperr.NewUnsupportedOperationError("unsupported verification algorithm %q", alg)
}
