package jose

// Algorithm identifies a JWS signing algorithm. Values are the closed
// set supported by the JOSE engine, in priority order; the HMAC
// algorithms used for client_secret_jwt assertions are HMACAlgorithm.
type Algorithm string

// Supported JWS algorithms. RSASSA-PKCS1-v1_5 (RS256/384/512) is
// accepted for both signing and verifying, alongside PS* and ES*.
const (
	AlgPS256 Algorithm = "PS256"
	AlgPS384 Algorithm = "PS384"
	AlgPS512 Algorithm = "PS512"
	AlgES256 Algorithm = "ES256"
	AlgES384 Algorithm = "ES384"
	AlgES512 Algorithm = "ES512"
	AlgRS256 Algorithm = "RS256"
	AlgRS384 Algorithm = "RS384"
	AlgRS512 Algorithm = "RS512"
)

// SupportedJWSAlgs is the closed, order-defined set of JWS algorithms
// this engine will sign or verify.
var SupportedJWSAlgs = []Algorithm{
	AlgPS256, AlgPS384, AlgPS512,
	AlgES256, AlgES384, AlgES512,
	AlgRS256, AlgRS384, AlgRS512,
}

// IsSupportedJWSAlg reports whether alg is a member of SupportedJWSAlgs.
func IsSupportedJWSAlg(alg Algorithm) bool {
	for _, a := range SupportedJWSAlgs {
		if a == alg {
			return true
		}
	}
	return false
}

// HMACAlgorithm identifies the symmetric algorithm used exclusively for
// client_secret_jwt client assertions.
type HMACAlgorithm string

const (
	AlgHS256 HMACAlgorithm = "HS256"
	AlgHS384 HMACAlgorithm = "HS384"
	AlgHS512 HMACAlgorithm = "HS512"
)

// SupportedHMACAlgs is the closed set of HMAC algorithms for
// client_secret_jwt.
var SupportedHMACAlgs = []HMACAlgorithm{AlgHS256, AlgHS384, AlgHS512}

// IsSupportedHMACAlg reports whether alg is a member of SupportedHMACAlgs.
func IsSupportedHMACAlg(alg HMACAlgorithm) bool {
	for _, a := range SupportedHMACAlgs {
		if a == alg {
			return true
		}
	}
	return false
}

// JWEAlgorithm identifies a JWE key-management algorithm.
type JWEAlgorithm string

const (
	AlgECDHES        JWEAlgorithm = "ECDH-ES"
	AlgRSAOAEP       JWEAlgorithm = "RSA-OAEP"
	AlgRSAOAEP256    JWEAlgorithm = "RSA-OAEP-256"
	AlgRSAOAEP384    JWEAlgorithm = "RSA-OAEP-384"
	AlgRSAOAEP512    JWEAlgorithm = "RSA-OAEP-512"
)

// SupportedJWEAlgs is the closed set of JWE key-management algorithms.
var SupportedJWEAlgs = []JWEAlgorithm{AlgECDHES, AlgRSAOAEP, AlgRSAOAEP256, AlgRSAOAEP384, AlgRSAOAEP512}

// JWEEncryption identifies a JWE content-encryption algorithm.
type JWEEncryption string

const (
	EncA128GCM      JWEEncryption = "A128GCM"
	EncA192GCM      JWEEncryption = "A192GCM"
	EncA256GCM      JWEEncryption = "A256GCM"
	EncA128CBCHS256 JWEEncryption = "A128CBC-HS256"
	EncA192CBCHS384 JWEEncryption = "A192CBC-HS384"
	EncA256CBCHS512 JWEEncryption = "A256CBC-HS512"
)

// SupportedJWEEncs is the closed set of JWE content-encryption algorithms.
var SupportedJWEEncs = []JWEEncryption{
	EncA128GCM, EncA192GCM, EncA256GCM,
	EncA128CBCHS256, EncA192CBCHS384, EncA256CBCHS512,
}

// keyBitLen returns the CEK length in bits implied by enc.
func (enc JWEEncryption) keyBitLen() int {
	switch enc {
	case EncA128GCM:
		return 128
	case EncA192GCM:
		return 192
	case EncA256GCM:
		return 256
	case EncA128CBCHS256:
		return 256
	case EncA192CBCHS384:
		return 384
	case EncA256CBCHS512:
		return 512
	}
	return 0
}

// isCBCHS reports whether enc is one of the AES-CBC-HMAC combinations.
func (enc JWEEncryption) isCBCHS() bool {
	switch enc {
	case EncA128CBCHS256, EncA192CBCHS384, EncA256CBCHS512:
		return true
	}
	return false
}

// EllipticCurve is the curve used with an EC JWK, per RFC 7518 §6.2.1.1.
type EllipticCurve string

const (
	CurveP256 EllipticCurve = "P-256"
	CurveP384 EllipticCurve = "P-384"
	CurveP521 EllipticCurve = "P-521"
)

// curveForJWSAlg maps an ECDSA JWS algorithm to its mandated curve.
func curveForJWSAlg(alg Algorithm) EllipticCurve {
	return CurveForAlg(alg)
}

// CurveForAlg maps an ECDSA JWS algorithm to its mandated curve, per
// RFC 7518 §3.4 (ES256↔P-256, ES384↔P-384, ES512↔P-521). Used by the
// JWKS selector to reject EC candidates on the wrong curve for alg.
func CurveForAlg(alg Algorithm) EllipticCurve {
	switch alg {
	case AlgES256:
		return CurveP256
	case AlgES384:
		return CurveP384
	case AlgES512:
		return CurveP521
	}
	return ""
}
