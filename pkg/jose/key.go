package jose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"math/big"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// minRSAModulusBits is the modulus-length floor enforced before signing
// or verifying with an RSA key.
const minRSAModulusBits = 2048

// bigInt marshals/unmarshals a *big.Int using base64urlUint, the
// encoding RFC 7518 mandates for JWK numeric members.
type bigInt big.Int

func (bi *bigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(codec.EncodeUint((*big.Int)(bi)))
}

func (bi *bigInt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	i, err := codec.DecodeUint(s)
	if err != nil {
		return err
	}
	*bi = bigInt(*i)
	return nil
}

func (bi *bigInt) big() *big.Int { return (*big.Int)(bi) }

// KeyType is the JWK "kty" value.
type KeyType string

const (
	KeyTypeRSA KeyType = "RSA"
	KeyTypeEC  KeyType = "EC"
)

// PublicKeyUse is the JWK "use" value.
type PublicKeyUse string

const (
	UseSignature  PublicKeyUse = "sig"
	UseEncryption PublicKeyUse = "enc"
)

// KeyOperation is a JWK "key_ops" entry.
type KeyOperation string

const (
	KeyOpSign    KeyOperation = "sign"
	KeyOpVerify  KeyOperation = "verify"
	KeyOpEncrypt KeyOperation = "encrypt"
	KeyOpDecrypt KeyOperation = "decrypt"
)

// Key is a JSON Web Key. Only the RSA and EC members
// recognizes are modeled; the engine never imports symmetric JWKs.
type Key struct {
	KeyType       KeyType        `json:"kty,omitempty"`
	KeyID         string         `json:"kid,omitempty"`
	Algorithm     Algorithm      `json:"alg,omitempty"`
	PublicKeyUse  PublicKeyUse   `json:"use,omitempty"`
	KeyOperations []KeyOperation `json:"key_ops,omitempty"`

	// EC
	Curve EllipticCurve `json:"crv,omitempty"`
	X     *bigInt       `json:"x,omitempty"`
	Y     *bigInt       `json:"y,omitempty"`

	// RSA
	N *bigInt `json:"n,omitempty"`
	E *bigInt `json:"e,omitempty"`

	// Private-key members. Never (un)marshaled into a response coming
	// from a remote JWKS; only used for locally held signing keys.
	D  *bigInt `json:"d,omitempty"`
	P  *bigInt `json:"p,omitempty"`
	Q  *bigInt `json:"q,omitempty"`
	DP *bigInt `json:"dp,omitempty"`
	DQ *bigInt `json:"dq,omitempty"`
	QI *bigInt `json:"qi,omitempty"`

	publicKey  crypto.PublicKey
	privateKey crypto.PrivateKey

	// extractable mirrors the Web Crypto notion of an extractable key:
	// DPoP requires the public key it binds to be extractable so its
	// JWK form can be published in the proof header.
	extractable bool
}

// IsValid reports structural problems with the key.
func (key *Key) IsValid() error {
	switch key.KeyType {
	case KeyTypeRSA:
		if key.N == nil {
			return rperr.NewArgumentError("n", "missing RSA modulus")
		}
		if key.E == nil {
			return rperr.NewArgumentError("e", "missing RSA exponent")
		}
	case KeyTypeEC:
		if key.Curve != CurveP256 && key.Curve != CurveP384 && key.Curve != CurveP521 {
			return rperr.NewArgumentError("crv", "unsupported curve %q", key.Curve)
		}
		if key.X == nil || key.Y == nil {
			return rperr.NewArgumentError("x/y", "missing EC coordinates")
		}
	default:
		return rperr.NewArgumentError("kty", "unsupported key type %q", key.KeyType)
	}
	if key.Algorithm != "" && !IsSupportedJWSAlg(key.Algorithm) {
		return rperr.NewArgumentError("alg", "unsupported algorithm %q", key.Algorithm)
	}
	return nil
}

// HasPrivateKey reports whether key material for signing is present.
func (key *Key) HasPrivateKey() bool { return key.privateKey != nil }

// materialize builds the crypto.PublicKey / crypto.PrivateKey from the
// JWK numeric members. It is idempotent.
func (key *Key) materialize() error {
	if key.publicKey != nil {
		return nil
	}
	switch key.KeyType {
	case KeyTypeRSA:
		pub := &rsa.PublicKey{N: key.N.big(), E: int(key.E.big().Int64())}
		key.publicKey = pub
		if key.D != nil && key.P != nil && key.Q != nil {
			priv := &rsa.PrivateKey{
				PublicKey: *pub,
				D:         key.D.big(),
				Primes:    []*big.Int{key.P.big(), key.Q.big()},
			}
			priv.Precompute()
			key.privateKey = priv
		}
	case KeyTypeEC:
		curve := ellipticCurve(key.Curve)
		if curve == nil {
			return rperr.NewArgumentError("crv", "unsupported curve %q", key.Curve)
		}
		pub := &ecdsa.PublicKey{Curve: curve, X: key.X.big(), Y: key.Y.big()}
		key.publicKey = pub
		if key.D != nil {
			key.privateKey = &ecdsa.PrivateKey{PublicKey: *pub, D: key.D.big()}
		}
	default:
		return rperr.NewArgumentError("kty", "unsupported key type %q", key.KeyType)
	}
	return nil
}

func ellipticCurve(crv EllipticCurve) elliptic.Curve {
	switch crv {
	case CurveP256:
		return elliptic.P256()
	case CurveP384:
		return elliptic.P384()
	case CurveP521:
		return elliptic.P521()
	}
	return nil
}

// ParseJWK parses and materializes a single JWK from its JSON form.
func ParseJWK(raw []byte) (*Key, error) {
	var key Key
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, rperr.WrapProcessingError(err, "invalid_jwk", "malformed JWK")
	}
	if err := key.IsValid(); err != nil {
		return nil, err
	}
	if err := key.materialize(); err != nil {
		return nil, err
	}
	return &key, nil
}

// NewRSAPrivateKey wraps an *rsa.PrivateKey as a signing Key for the
// given algorithm. kid is optional but recommended.
func NewRSAPrivateKey(priv *rsa.PrivateKey, alg Algorithm, kid string) (*Key, error) {
	if priv.N.BitLen() < minRSAModulusBits {
		return nil, rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", priv.N.BitLen())
	}
	e := big.NewInt(int64(priv.E))
	key := &Key{
		KeyType:     KeyTypeRSA,
		Algorithm:   alg,
		KeyID:       kid,
		PublicKeyUse: UseSignature,
		N:           (*bigInt)(priv.N),
		E:           (*bigInt)(e),
		D:           (*bigInt)(priv.D),
		P:           (*bigInt)(priv.Primes[0]),
		Q:           (*bigInt)(priv.Primes[1]),
		publicKey:   &priv.PublicKey,
		privateKey:  priv,
		extractable: true,
	}
	return key, key.IsValid()
}

// NewECPrivateKey wraps an *ecdsa.PrivateKey as a signing Key.
func NewECPrivateKey(priv *ecdsa.PrivateKey, kid string) (*Key, error) {
	var crv EllipticCurve
	var alg Algorithm
	switch priv.Curve {
	case elliptic.P256():
		crv, alg = CurveP256, AlgES256
	case elliptic.P384():
		crv, alg = CurveP384, AlgES384
	case elliptic.P521():
		crv, alg = CurveP521, AlgES512
	default:
		return nil, rperr.NewUnsupportedOperationError("unsupported EC curve")
	}
	key := &Key{
		KeyType:      KeyTypeEC,
		Algorithm:    alg,
		KeyID:        kid,
		PublicKeyUse: UseSignature,
		Curve:        crv,
		X:            (*bigInt)(priv.X),
		Y:            (*bigInt)(priv.Y),
		D:            (*bigInt)(priv.D),
		publicKey:    &priv.PublicKey,
		privateKey:   priv,
		extractable:  true,
	}
	return key, key.IsValid()
}

// PublicJWK strips private-key members and all key_ops, producing the
// form suitable for publication (DPoP header jwk, JWKS document
// entries).
func (key *Key) PublicJWK() *Key {
	pub := &Key{
		KeyType:      key.KeyType,
		KeyID:        key.KeyID,
		Algorithm:    key.Algorithm,
		PublicKeyUse: key.PublicKeyUse,
		Curve:        key.Curve,
		X:            key.X,
		Y:            key.Y,
		N:            key.N,
		E:            key.E,
		publicKey:    key.publicKey,
		extractable:  key.extractable,
	}
	return pub
}

// MarkExtractable flags this key's public half as extractable, required
// for DPoP public-key binding.
func (key *Key) MarkExtractable() { key.extractable = true }

// Extractable reports whether PublicJWK() may be safely exported.
func (key *Key) Extractable() bool { return key.extractable }

// Thumbprint computes the RFC 7638 SHA-256 JWK thumbprint, used by
// oauthrp.DPoPOptions.Validate to check that a public key matches a
// private key's public half.
func (key *Key) Thumbprint() (string, error) {
	var s interface{}
	switch key.KeyType {
	case KeyTypeRSA:
		s = struct {
			E   string  `json:"e"`
			Kty KeyType `json:"kty"`
			N   string  `json:"n"`
		}{codec.EncodeUint(key.E.big()), key.KeyType, codec.EncodeUint(key.N.big())}
	case KeyTypeEC:
		s = struct {
			Crv EllipticCurve `json:"crv"`
			Kty KeyType       `json:"kty"`
			X   string        `json:"x"`
			Y   string        `json:"y"`
		}{key.Curve, key.KeyType, codec.EncodeUint(key.X.big()), codec.EncodeUint(key.Y.big())}
	default:
		return "", rperr.NewArgumentError("kty", "unsupported key type %q", key.KeyType)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(b)
	return codec.EncodeToString(digest[:]), nil
}

// GenerateRSAKeyPair creates a fresh RSA signing key of the given
// modulus size (bits must be >= minRSAModulusBits) and algorithm.
func GenerateRSAKeyPair(bits int, alg Algorithm, kid string) (*Key, error) {
	if bits < minRSAModulusBits {
		return nil, rperr.NewUnsupportedOperationError("RSA modulus too small: %d bits", bits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return NewRSAPrivateKey(priv, alg, kid)
}

// GenerateECKeyPair creates a fresh EC signing key on the curve implied
// by alg (ES256 -> P-256, and so on).
func GenerateECKeyPair(alg Algorithm, kid string) (*Key, error) {
	curve := ellipticCurve(curveForJWSAlg(alg))
	if curve == nil {
		return nil, rperr.NewArgumentError("alg", "unsupported EC algorithm %q", alg)
	}
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewECPrivateKey(priv, kid)
}
