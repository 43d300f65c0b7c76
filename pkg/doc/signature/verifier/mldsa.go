/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// MLDSASignatureVerifier verifies post-quantum ML-DSA (FIPS 204) signatures. Keys are "AKP" JWKs
// carrying the raw public key in the "pub" parameter.
type MLDSASignatureVerifier struct {
	baseSignatureVerifier

	scheme sign.Scheme
}

// NewMLDSA44SignatureVerifier creates a verifier of ML-DSA-44 signatures.
func NewMLDSA44SignatureVerifier() *MLDSASignatureVerifier {
	return newMLDSAVerifier(MLDSA44, mldsa44.Scheme())
}

// NewMLDSA65SignatureVerifier creates a verifier of ML-DSA-65 signatures.
func NewMLDSA65SignatureVerifier() *MLDSASignatureVerifier {
	return newMLDSAVerifier(MLDSA65, mldsa65.Scheme())
}

// NewMLDSA87SignatureVerifier creates a verifier of ML-DSA-87 signatures.
func NewMLDSA87SignatureVerifier() *MLDSASignatureVerifier {
	return newMLDSAVerifier(MLDSA87, mldsa87.Scheme())
}

func newMLDSAVerifier(alg string, scheme sign.Scheme) *MLDSASignatureVerifier {
	return &MLDSASignatureVerifier{
		baseSignatureVerifier: baseSignatureVerifier{
			keyType:   jwk.KeyTypeAKP,
			algorithm: alg,
		},
		scheme: scheme,
	}
}

// Verify verifies the signature.
func (sv *MLDSASignatureVerifier) Verify(input VerificationInput, key *jwk.JWK) error {
	if err := sv.checkKey(key); err != nil {
		return err
	}

	if key.Algorithm != sv.algorithm {
		return newError(UnsupportedKeyParams, "AKP key alg %q does not match %s", key.Algorithm, sv.algorithm)
	}

	raw, ok := key.Key.([]byte)
	if !ok || len(raw) != sv.scheme.PublicKeySize() {
		return newError(KeyDecodingFailure, "%s: invalid public key", sv.algorithm)
	}

	pub, err := sv.scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return newError(KeyDecodingFailure, "%s: %w", sv.algorithm, err)
	}

	if len(input.DecodedSignature) != sv.scheme.SignatureSize() {
		return newError(InvalidSignature, "%s: invalid signature size %d", sv.algorithm, len(input.DecodedSignature))
	}

	if !sv.scheme.Verify(pub, input.SigningInput, input.DecodedSignature, nil) {
		return ErrInvalidSignature
	}

	return nil
}
