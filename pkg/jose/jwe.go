package jose

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // RSA-OAEP (no suffix) is defined over SHA-1 by RFC 7518 §4.4
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/json"
	"hash"
	"math/big"

	"github.com/oidcrp/oidcrp/pkg/codec"
	"github.com/oidcrp/oidcrp/pkg/rperr"
)

// JWEHeader holds the compact JWE header parameters this engine
// produces. iss/sub/aud are only ever set when encrypting a signed JAR
// (RFC 9101) so the recipient can bind the assertion to client/AS
// identities even though the payload itself is an opaque nested JWS.
type JWEHeader struct {
	Algorithm  JWEAlgorithm  `json:"alg"`
	Encryption JWEEncryption `json:"enc"`
	KeyID      string        `json:"kid,omitempty"`
	Type       string        `json:"typ,omitempty"`
	Ephemeral  *Key          `json:"epk,omitempty"`

	Issuer   string `json:"iss,omitempty"`
	Subject  string `json:"sub,omitempty"`
	Audience string `json:"aud,omitempty"`
}

// Encrypt produces a 5-part compact JWE over payload (typically the
// compact serialization of a signed JAR) using the recipient's public
// key. Only encryption is supported (JWE decryption of
// responses is out of scope).
func Encrypt(header *JWEHeader, payload []byte, recipient *Key) (string, error) {
	if err := recipient.materialize(); err != nil {
		return "", err
	}

	cek, encryptedKey, ephemeral, err := deriveCEK(header.Algorithm, header.Encryption, recipient)
	if err != nil {
		return "", err
	}
	h := *header
	h.Ephemeral = ephemeral

	headerJSON, err := json.Marshal(&h)
	if err != nil {
		return "", err
	}
	aad := []byte(codec.EncodeToString(headerJSON))

	var iv, ciphertext, tag []byte
	if header.Encryption.isCBCHS() {
		iv, ciphertext, tag, err = encryptCBCHS(header.Encryption, cek, aad, payload)
	} else {
		iv, ciphertext, tag, err = encryptGCM(cek, aad, payload)
	}
	if err != nil {
		return "", err
	}

	return string(aad) + "." +
		codec.EncodeToString(encryptedKey) + "." +
		codec.EncodeToString(iv) + "." +
		codec.EncodeToString(ciphertext) + "." +
		codec.EncodeToString(tag), nil
}

// deriveCEK returns the content-encryption key, the (possibly empty)
// encrypted-key segment, and — for ECDH-ES — the ephemeral public key
// to publish in the header.
func deriveCEK(alg JWEAlgorithm, enc JWEEncryption, recipient *Key) (cek, encryptedKey []byte, ephemeral *Key, err error) {
	switch alg {
	case AlgECDHES:
		return deriveCEKECDHES(enc, recipient)
	case AlgRSAOAEP, AlgRSAOAEP256, AlgRSAOAEP384, AlgRSAOAEP512:
		cek = make([]byte, enc.keyBitLen()/8)
		if _, err := rand.Read(cek); err != nil {
			return nil, nil, nil, err
		}
		pub, ok := recipient.publicKey.(*rsa.PublicKey)
		if !ok {
			return nil, nil, nil, rperr.NewArgumentError("recipient", "RSA-OAEP requires an RSA key")
		}
		wrapped, err := rsa.EncryptOAEP(rsaOAEPHash(alg)(), rand.Reader, pub, cek, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return cek, wrapped, nil, nil
	}
	return nil, nil, nil, rperr.NewUnsupportedOperationError("unsupported JWE alg %q", alg)
}

// rsaOAEPHash returns the OAEP digest constructor for alg. Plain
// "RSA-OAEP" is defined over SHA-1; the RFC 7518 §4.x variants name
// their digest in the suffix.
func rsaOAEPHash(alg JWEAlgorithm) func() hash.Hash {
	switch alg {
	case AlgRSAOAEP256:
		return sha256.New
	case AlgRSAOAEP384:
		return sha512.New384
	case AlgRSAOAEP512:
		return sha512.New
	default:
		return sha1.New
	}
}

func deriveCEKECDHES(enc JWEEncryption, recipient *Key) (cek, encryptedKey []byte, ephemeral *Key, err error) {
	curve, err := ecdhCurveFor(recipient.Curve)
	if err != nil {
		return nil, nil, nil, err
	}
	recipientECDH, err := ecdhPublicKey(recipient, curve)
	if err != nil {
		return nil, nil, nil, err
	}

	ephemeralPriv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, nil, err
	}
	shared, err := ephemeralPriv.ECDH(recipientECDH)
	if err != nil {
		return nil, nil, nil, err
	}

	cek, err = concatKDF(shared, string(enc), enc.keyBitLen())
	if err != nil {
		return nil, nil, nil, err
	}

	ephemeralKey, err := ecdhPublicToJWK(ephemeralPriv.PublicKey(), recipient.Curve)
	if err != nil {
		return nil, nil, nil, err
	}

	return cek, nil, ephemeralKey, nil
}

func ecdhCurveFor(crv EllipticCurve) (ecdh.Curve, error) {
	switch crv {
	case CurveP256:
		return ecdh.P256(), nil
	case CurveP384:
		return ecdh.P384(), nil
	case CurveP521:
		return ecdh.P521(), nil
	}
	return nil, rperr.NewUnsupportedOperationError("unsupported ECDH curve %q", crv)
}

func ecdhPublicKey(key *Key, curve ecdh.Curve) (*ecdh.PublicKey, error) {
	octets := curveOctets(key.Curve)
	buf := make([]byte, 1+2*octets)
	buf[0] = 4 // uncompressed point
	key.X.big().FillBytes(buf[1 : 1+octets])
	key.Y.big().FillBytes(buf[1+octets:])
	return curve.NewPublicKey(buf)
}

func curveOctets(crv EllipticCurve) int {
	switch crv {
	case CurveP256:
		return 32
	case CurveP384:
		return 48
	case CurveP521:
		return 66
	}
	return 0
}

func ecdhPublicToJWK(pub *ecdh.PublicKey, crv EllipticCurve) (*Key, error) {
	raw := pub.Bytes()
	octets := curveOctets(crv)
	if len(raw) != 1+2*octets {
		return nil, rperr.NewProcessingError("invalid_key", "unexpected ECDH public key encoding length")
	}
	x := new(big.Int).SetBytes(raw[1 : 1+octets])
	y := new(big.Int).SetBytes(raw[1+octets:])
	return &Key{
		KeyType: KeyTypeEC,
		Curve:   crv,
		X:       (*bigInt)(x),
		Y:       (*bigInt)(y),
	}, nil
}

// concatKDF implements NIST SP 800-56A §5.8.1 Concat-KDF as used by
// RFC 7518 §4.6.2 for ECDH-ES: SHA-256 rounds over
// counter || Z || AlgorithmID || PartyUInfo || PartyVInfo || SuppPubInfo,
// truncated to keyBitLen/8 bytes. SHA-256 is used regardless of enc's
// own strength, per RFC 7518 §4.6, regardless of the enc algorithm's strength.
func concatKDF(z []byte, algorithmID string, keyBitLen int) ([]byte, error) {
	keyLen := keyBitLen / 8
	otherInfo := concatKDFOtherInfo(algorithmID, keyBitLen)

	var out []byte
	for counter := uint32(1); len(out) < keyLen; counter++ {
		h := sha256.New()
		var counterBytes [4]byte
		binary.BigEndian.PutUint32(counterBytes[:], counter)
		h.Write(counterBytes[:])
		h.Write(z)
		h.Write(otherInfo)
		out = append(out, h.Sum(nil)...)
	}
	return out[:keyLen], nil
}

func concatKDFOtherInfo(algorithmID string, keyBitLen int) []byte {
	lenPrefixed := func(b []byte) []byte {
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(b)))
		return append(lenBytes[:], b...)
	}
	var suppPubInfo [4]byte
	binary.BigEndian.PutUint32(suppPubInfo[:], uint32(keyBitLen))

	var out []byte
	out = append(out, lenPrefixed([]byte(algorithmID))...)
	out = append(out, lenPrefixed(nil)...) // PartyUInfo, empty
	out = append(out, lenPrefixed(nil)...) // PartyVInfo, empty
	out = append(out, suppPubInfo[:]...)
	return out
}

func encryptGCM(cek, aad, payload []byte) (iv, ciphertext, tag []byte, err error) {
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, nil, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, 16)
	if err != nil {
		return nil, nil, nil, err
	}
	iv = make([]byte, 12)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, err
	}
	sealed := gcm.Seal(nil, iv, payload, aad)
	ctLen := len(sealed) - gcm.Overhead()
	return iv, sealed[:ctLen], sealed[ctLen:], nil
}

// encryptCBCHS implements AES-CBC-HMAC per RFC 7518 §5.2.2.1: the CEK's
// first half is the HMAC key, the second half the AES-CBC key; the tag
// is the first keySize/8 bytes of
// HMAC(AAD || IV || ciphertext || uint64be(aad_bit_length)).
func encryptCBCHS(enc JWEEncryption, cek, aad, payload []byte) (iv, ciphertext, tag []byte, err error) {
	half := len(cek) / 2
	macKey, encKey := cek[:half], cek[half:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, nil, err
	}
	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, err
	}
	padded := pkcs7Pad(payload, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(hmacHashForCBCHS(enc), macKey)
	mac.Write(aad)
	mac.Write(iv)
	mac.Write(ciphertext)
	var aadLen [8]byte
	binary.BigEndian.PutUint64(aadLen[:], uint64(len(aad))*8)
	mac.Write(aadLen[:])
	tag = mac.Sum(nil)[:half]
	return iv, ciphertext, tag, nil
}

func hmacHashForCBCHS(enc JWEEncryption) func() hash.Hash {
	switch enc {
	case EncA128CBCHS256:
		return sha256.New
	case EncA192CBCHS384:
		return sha512.New384
	case EncA256CBCHS512:
		return sha512.New
	}
	return sha256.New
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	padLen := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+padLen)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}
