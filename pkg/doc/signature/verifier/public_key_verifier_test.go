/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
)

func TestPublicKeyVerifier_SignatureSoundness(t *testing.T) {
	ed, err := signer.NewEd25519Signer()
	require.NoError(t, err)

	p256, err := signer.NewECDSAP256Signer()
	require.NoError(t, err)

	p384, err := signer.NewECDSAP384Signer()
	require.NoError(t, err)

	k256, err := signer.NewECDSASecp256k1Signer()
	require.NoError(t, err)

	mldsa44, err := signer.NewMLDSASigner(MLDSA44)
	require.NoError(t, err)

	mldsa87, err := signer.NewMLDSASigner(MLDSA87)
	require.NoError(t, err)

	v := NewDefaultVerifier()
	msg := []byte("eyJhbGciOiJFZERTQSJ9.eyJpc3MiOiJkaWQ6ZXhhbXBsZToxMjMifQ")

	for _, s := range []signer.Signer{ed, p256, p384, k256, mldsa44, mldsa87} {
		s := s

		t.Run(s.Alg(), func(t *testing.T) {
			sig, err := s.Sign(msg)
			require.NoError(t, err)

			input := VerificationInput{Alg: s.Alg(), SigningInput: msg, DecodedSignature: sig}
			require.NoError(t, v.Verify(input, s.PublicJWK()))

			t.Run("flipped signing input byte", func(t *testing.T) {
				tampered := append([]byte{}, msg...)
				tampered[3] ^= 0x01

				err := v.Verify(VerificationInput{Alg: s.Alg(), SigningInput: tampered, DecodedSignature: sig},
					s.PublicJWK())
				require.ErrorIs(t, err, ErrInvalidSignature)
			})

			t.Run("flipped signature byte", func(t *testing.T) {
				tampered := append([]byte{}, sig...)
				tampered[len(tampered)/2] ^= 0x01

				err := v.Verify(VerificationInput{Alg: s.Alg(), SigningInput: msg, DecodedSignature: tampered},
					s.PublicJWK())
				require.ErrorIs(t, err, ErrInvalidSignature)
			})

			t.Run("truncated signature", func(t *testing.T) {
				err := v.Verify(VerificationInput{Alg: s.Alg(), SigningInput: msg, DecodedSignature: sig[:10]},
					s.PublicJWK())
				require.ErrorIs(t, err, ErrInvalidSignature)
			})
		})
	}
}

func TestPublicKeyVerifier_Errors(t *testing.T) {
	v := NewDefaultVerifier()
	msg := []byte("test message")

	ed, err := signer.NewEd25519Signer()
	require.NoError(t, err)

	p256, err := signer.NewECDSAP256Signer()
	require.NoError(t, err)

	sig, err := ed.Sign(msg)
	require.NoError(t, err)

	t.Run("unsupported alg", func(t *testing.T) {
		err := v.Verify(VerificationInput{Alg: "HS256", SigningInput: msg, DecodedSignature: sig}, ed.PublicJWK())
		require.ErrorIs(t, err, ErrUnsupportedAlg)
	})

	t.Run("key type does not match alg", func(t *testing.T) {
		err := v.Verify(VerificationInput{Alg: ES256, SigningInput: msg, DecodedSignature: sig}, ed.PublicJWK())
		require.ErrorIs(t, err, ErrUnsupportedKeyType)
	})

	t.Run("curve does not match alg", func(t *testing.T) {
		err := v.Verify(VerificationInput{Alg: ES384, SigningInput: msg, DecodedSignature: sig}, p256.PublicJWK())
		require.ErrorIs(t, err, ErrUnsupportedKeyParams)
	})

	t.Run("key restricted to another alg", func(t *testing.T) {
		key := ed.PublicJWK()
		key.Algorithm = "ES256"

		err := v.Verify(VerificationInput{Alg: EdDSA, SigningInput: msg, DecodedSignature: sig}, key)
		require.ErrorIs(t, err, ErrUnsupportedKeyParams)
	})

	t.Run("malformed ed25519 key", func(t *testing.T) {
		key := ed.PublicJWK()
		key.Key = ed25519.PublicKey([]byte("short"))

		err := v.Verify(VerificationInput{Alg: EdDSA, SigningInput: msg, DecodedSignature: sig}, key)
		require.ErrorIs(t, err, ErrKeyDecodingFailure)
	})

	t.Run("missing key", func(t *testing.T) {
		err := v.Verify(VerificationInput{Alg: EdDSA, SigningInput: msg, DecodedSignature: sig}, nil)
		require.ErrorIs(t, err, ErrKeyDecodingFailure)
	})

	t.Run("ML-DSA key of another parameter set", func(t *testing.T) {
		s65, err := signer.NewMLDSASigner(MLDSA65)
		require.NoError(t, err)

		mlSig, err := s65.Sign(msg)
		require.NoError(t, err)

		key := jwk.FromAKP(MLDSA44, s65.PublicJWK().Key.([]byte), "")

		err = v.Verify(VerificationInput{Alg: MLDSA65, SigningInput: msg, DecodedSignature: mlSig}, key)
		require.ErrorIs(t, err, ErrUnsupportedKeyParams)
	})

	t.Run("error message", func(t *testing.T) {
		err := &Error{Kind: InvalidSignature, Err: errors.New("boom")}
		require.EqualError(t, err, "signature verification failed: invalid signature: boom")
		require.EqualError(t, ErrUnsupportedAlg, "signature verification failed: unsupported alg")
		require.False(t, errors.Is(err, ErrUnsupportedAlg))
	})
}

func TestPublicKeyVerifier_VerifyPrehashed(t *testing.T) {
	v := NewDefaultVerifier()
	msg := []byte("prehashed message")

	for _, newSigner := range []func() (*signer.ECDSASigner, error){
		signer.NewECDSAP256Signer, signer.NewECDSASecp256k1Signer,
	} {
		s, err := newSigner()
		require.NoError(t, err)

		sig, err := s.Sign(msg)
		require.NoError(t, err)

		digest, err := NewDigest(crypto.SHA256, msg)
		require.NoError(t, err)
		require.Equal(t, crypto.SHA256, digest.Hash())

		require.NoError(t, v.VerifyPrehashed(s.Alg(), digest, sig, s.PublicJWK()))

		other, err := NewDigest(crypto.SHA256, []byte("other message"))
		require.NoError(t, err)
		require.ErrorIs(t, v.VerifyPrehashed(s.Alg(), other, sig, s.PublicJWK()), ErrInvalidSignature)

		sha384, err := NewDigest(crypto.SHA384, msg)
		require.NoError(t, err)
		require.ErrorIs(t, v.VerifyPrehashed(s.Alg(), sha384, sig, s.PublicJWK()), ErrUnsupportedAlg)
	}

	t.Run("zero digest", func(t *testing.T) {
		s, err := signer.NewECDSAP256Signer()
		require.NoError(t, err)

		require.ErrorIs(t, v.VerifyPrehashed(ES256, Digest{}, make([]byte, 64), s.PublicJWK()), ErrUnsupportedAlg)
	})

	t.Run("EdDSA has no prehashed variant", func(t *testing.T) {
		digest, err := NewDigest(crypto.SHA256, msg)
		require.NoError(t, err)

		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		key, err := jwk.FromKey(pub, "")
		require.NoError(t, err)

		require.ErrorIs(t, v.VerifyPrehashed(EdDSA, digest, make([]byte, 64), key), ErrUnsupportedAlg)
	})

	t.Run("weak hash rejected", func(t *testing.T) {
		_, err := NewDigest(crypto.SHA1, msg)
		require.Error(t, err)
	})
}
