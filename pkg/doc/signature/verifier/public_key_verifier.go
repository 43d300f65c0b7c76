/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"

	"github.com/btcsuite/btcd/btcec/v2"
	becdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	tinksubtle "github.com/google/tink/go/signature/subtle"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// JWS algorithm names.
const (
	EdDSA     = "EdDSA"
	ES256     = "ES256"
	ES384     = "ES384"
	ES256K    = "ES256K"
	MLDSA44   = "ML-DSA-44"
	MLDSA65   = "ML-DSA-65"
	MLDSA87   = "ML-DSA-87"
	p256Size  = 32
	p384Size  = 48
	k256Size  = 32
	ed25519Sz = ed25519.SignatureSize
)

// VerificationInput is what a JWS verification needs besides the key.
type VerificationInput struct {
	// Alg is the algorithm of the protected header. Callers must make sure it is the value
	// from the protected header: verifiers trust it and do not re-check the header.
	Alg string
	// SigningInput is exactly "BASE64URL(header).BASE64URL(payload)" as received.
	SigningInput []byte
	// DecodedSignature is the base64url-decoded signature.
	DecodedSignature []byte
}

// SignatureVerifier verifies the signature over VerificationInput with the given public key.
type SignatureVerifier interface {
	Verify(input VerificationInput, key *jwk.JWK) error
}

// AlgorithmVerifier verifies signatures of a single algorithm.
type AlgorithmVerifier interface {
	SignatureVerifier

	// Algorithm is the JWS "alg" the verifier handles.
	Algorithm() string
	// KeyType is the "kty" of the keys it accepts.
	KeyType() string
	// Curve is the "crv" of the keys it accepts, empty for key types without curves.
	Curve() string
}

type baseSignatureVerifier struct {
	keyType   string
	curve     string
	algorithm string
}

func (sv baseSignatureVerifier) KeyType() string {
	return sv.keyType
}

func (sv baseSignatureVerifier) Curve() string {
	return sv.curve
}

func (sv baseSignatureVerifier) Algorithm() string {
	return sv.algorithm
}

func (sv baseSignatureVerifier) checkKey(key *jwk.JWK) error {
	if key == nil {
		return newError(KeyDecodingFailure, "missing public key")
	}

	if key.Kty != sv.keyType {
		return newError(UnsupportedKeyType, "%s requires kty %s, got %q", sv.algorithm, sv.keyType, key.Kty)
	}

	if sv.curve != "" && key.Crv != sv.curve {
		return newError(UnsupportedKeyParams, "%s requires crv %s, got %q", sv.algorithm, sv.curve, key.Crv)
	}

	if key.Algorithm != "" && key.Algorithm != sv.algorithm {
		return newError(UnsupportedKeyParams, "key is restricted to alg %q", key.Algorithm)
	}

	return nil
}

// Ed25519SignatureVerifier verifies an EdDSA signature over the Ed25519 curve.
type Ed25519SignatureVerifier struct {
	baseSignatureVerifier
}

// NewEd25519SignatureVerifier creates a new Ed25519SignatureVerifier.
func NewEd25519SignatureVerifier() *Ed25519SignatureVerifier {
	return &Ed25519SignatureVerifier{
		baseSignatureVerifier: baseSignatureVerifier{
			keyType:   jwk.KeyTypeOKP,
			curve:     jwk.CurveEd25519,
			algorithm: EdDSA,
		},
	}
}

// Verify verifies the signature.
func (sv *Ed25519SignatureVerifier) Verify(input VerificationInput, key *jwk.JWK) error {
	if err := sv.checkKey(key); err != nil {
		return err
	}

	pub, ok := key.Public().Key.(ed25519.PublicKey)
	if !ok {
		return newError(KeyDecodingFailure, "public key is not ed25519, got %T", key.Key)
	}

	// ed25519 panics if key size is wrong
	if len(pub) != ed25519.PublicKeySize {
		return newError(KeyDecodingFailure, "ed25519: invalid key size %d", len(pub))
	}

	if len(input.DecodedSignature) != ed25519Sz {
		return newError(InvalidSignature, "ed25519: invalid signature size %d", len(input.DecodedSignature))
	}

	if !ed25519.Verify(pub, input.SigningInput, input.DecodedSignature) {
		return ErrInvalidSignature
	}

	return nil
}

type ellipticCurve struct {
	curve     elliptic.Curve
	keySize   int
	hash      crypto.Hash
	viaTink   bool
	tinkHash  string
}

// ECDSASignatureVerifier verifies elliptic curve signatures in the JWS "r || s" form.
type ECDSASignatureVerifier struct {
	baseSignatureVerifier

	ec ellipticCurve
}

// NewECDSAES256SignatureVerifier creates a verifier of ECDSA P-256 signatures with SHA-256.
func NewECDSAES256SignatureVerifier() *ECDSASignatureVerifier {
	return &ECDSASignatureVerifier{
		baseSignatureVerifier: baseSignatureVerifier{
			keyType:   jwk.KeyTypeEC,
			curve:     jwk.CurveP256,
			algorithm: ES256,
		},
		ec: ellipticCurve{
			curve:     elliptic.P256(),
			keySize:   p256Size,
			hash:      crypto.SHA256,
			viaTink:   true,
			tinkHash:  "SHA256",
		},
	}
}

// NewECDSAES384SignatureVerifier creates a verifier of ECDSA P-384 signatures with SHA-384.
func NewECDSAES384SignatureVerifier() *ECDSASignatureVerifier {
	return &ECDSASignatureVerifier{
		baseSignatureVerifier: baseSignatureVerifier{
			keyType:   jwk.KeyTypeEC,
			curve:     jwk.CurveP384,
			algorithm: ES384,
		},
		ec: ellipticCurve{
			curve:     elliptic.P384(),
			keySize:   p384Size,
			hash:      crypto.SHA384,
			viaTink:   true,
			tinkHash:  "SHA384",
		},
	}
}

// NewECDSASecp256k1SignatureVerifier creates a verifier of ECDSA secp256k1 signatures with SHA-256.
func NewECDSASecp256k1SignatureVerifier() *ECDSASignatureVerifier {
	return &ECDSASignatureVerifier{
		baseSignatureVerifier: baseSignatureVerifier{
			keyType:   jwk.KeyTypeEC,
			curve:     jwk.CurveSecp256k1,
			algorithm: ES256K,
		},
		ec: ellipticCurve{
			curve:   btcec.S256(),
			keySize: k256Size,
			hash:    crypto.SHA256,
		},
	}
}

// Verify verifies the signature.
func (sv *ECDSASignatureVerifier) Verify(input VerificationInput, key *jwk.JWK) error {
	pub, err := sv.publicKey(key)
	if err != nil {
		return err
	}

	if len(input.DecodedSignature) != 2*sv.ec.keySize {
		return newError(InvalidSignature, "ecdsa: invalid signature size %d", len(input.DecodedSignature))
	}

	if !sv.ec.viaTink {
		digest, err := NewDigest(sv.ec.hash, input.SigningInput)
		if err != nil {
			return &Error{Kind: Unspecified, Err: err}
		}

		return sv.verifySecp256k1(pub, digest.Bytes(), input.DecodedSignature)
	}

	tinkVerifier, err := tinksubtle.NewECDSAVerifierFromPublicKey(sv.ec.tinkHash, "IEEE_P1363", pub)
	if err != nil {
		return newError(KeyDecodingFailure, "ecdsa: %w", err)
	}

	if err := tinkVerifier.Verify(input.DecodedSignature, input.SigningInput); err != nil {
		return &Error{Kind: InvalidSignature, Err: err}
	}

	return nil
}

// VerifyPrehashed verifies a signature over a digest. Only a Digest computed by NewDigest is accepted,
// so the message is known to be hashed with the function the algorithm prescribes.
func (sv *ECDSASignatureVerifier) VerifyPrehashed(digest Digest, signature []byte, key *jwk.JWK) error {
	pub, err := sv.publicKey(key)
	if err != nil {
		return err
	}

	if digest.hash != sv.ec.hash {
		return newError(UnsupportedAlg, "%s requires a %s digest", sv.algorithm, sv.ec.hash)
	}

	if len(signature) != 2*sv.ec.keySize {
		return newError(InvalidSignature, "ecdsa: invalid signature size %d", len(signature))
	}

	if !sv.ec.viaTink {
		return sv.verifySecp256k1(pub, digest.Bytes(), signature)
	}

	r, s := splitSignature(signature, sv.ec.keySize)
	if !ecdsa.Verify(pub, digest.Bytes(), r, s) {
		return ErrInvalidSignature
	}

	return nil
}

func (sv *ECDSASignatureVerifier) publicKey(key *jwk.JWK) (*ecdsa.PublicKey, error) {
	if err := sv.checkKey(key); err != nil {
		return nil, err
	}

	pub, ok := key.Public().Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, newError(KeyDecodingFailure, "ecdsa: public key of type %T", key.Key)
	}

	if pub.X == nil || pub.Y == nil || !sv.ec.curve.IsOnCurve(pub.X, pub.Y) {
		return nil, newError(KeyDecodingFailure, "ecdsa: point is not on curve %s", sv.curve)
	}

	return pub, nil
}

func (sv *ECDSASignatureVerifier) verifySecp256k1(pub *ecdsa.PublicKey, hash, signature []byte) error {
	var pubBytes [1 + 2*k256Size]byte

	pubBytes[0] = 0x04
	pub.X.FillBytes(pubBytes[1 : 1+k256Size])
	pub.Y.FillBytes(pubBytes[1+k256Size:])

	btcPub, err := btcec.ParsePubKey(pubBytes[:])
	if err != nil {
		return newError(KeyDecodingFailure, "secp256k1: %w", err)
	}

	var r, s btcec.ModNScalar

	if overflow := r.SetByteSlice(signature[:k256Size]); overflow || r.IsZero() {
		return newError(InvalidSignature, "secp256k1: invalid r")
	}

	if overflow := s.SetByteSlice(signature[k256Size:]); overflow || s.IsZero() {
		return newError(InvalidSignature, "secp256k1: invalid s")
	}

	if !becdsa.NewSignature(&r, &s).Verify(hash, btcPub) {
		return ErrInvalidSignature
	}

	return nil
}
