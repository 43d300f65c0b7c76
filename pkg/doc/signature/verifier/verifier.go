/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// PublicKeyVerifier dispatches signature verification over a closed set of algorithms keyed by "alg".
type PublicKeyVerifier struct {
	verifiers map[string]AlgorithmVerifier
}

// NewPublicKeyVerifier creates a PublicKeyVerifier over the given algorithm verifiers.
func NewPublicKeyVerifier(verifiers ...AlgorithmVerifier) *PublicKeyVerifier {
	v := &PublicKeyVerifier{verifiers: make(map[string]AlgorithmVerifier, len(verifiers))}

	for _, av := range verifiers {
		v.verifiers[av.Algorithm()] = av
	}

	return v
}

// NewDefaultVerifier creates a PublicKeyVerifier for EdDSA, ES256, ES384, ES256K and ML-DSA.
func NewDefaultVerifier() *PublicKeyVerifier {
	return NewPublicKeyVerifier(
		NewEd25519SignatureVerifier(),
		NewECDSAES256SignatureVerifier(),
		NewECDSAES384SignatureVerifier(),
		NewECDSASecp256k1SignatureVerifier(),
		NewMLDSA44SignatureVerifier(),
		NewMLDSA65SignatureVerifier(),
		NewMLDSA87SignatureVerifier(),
	)
}

// Algorithms lists the supported algorithms.
func (pkv *PublicKeyVerifier) Algorithms() []string {
	algs := make([]string, 0, len(pkv.verifiers))

	for alg := range pkv.verifiers {
		algs = append(algs, alg)
	}

	return algs
}

// Verify verifies the signature with the verifier registered for input.Alg.
func (pkv *PublicKeyVerifier) Verify(input VerificationInput, key *jwk.JWK) error {
	v, ok := pkv.verifiers[input.Alg]
	if !ok {
		return newError(UnsupportedAlg, "no verifier for alg %q", input.Alg)
	}

	return v.Verify(input, key)
}

// VerifyPrehashed verifies a signature over a digest for the ECDSA algorithms.
func (pkv *PublicKeyVerifier) VerifyPrehashed(alg string, digest Digest, signature []byte, key *jwk.JWK) error {
	v, ok := pkv.verifiers[alg]
	if !ok {
		return newError(UnsupportedAlg, "no verifier for alg %q", alg)
	}

	ecv, ok := v.(*ECDSASignatureVerifier)
	if !ok {
		return newError(UnsupportedAlg, "alg %q does not support prehashed input", alg)
	}

	return ecv.VerifyPrehashed(digest, signature, key)
}
