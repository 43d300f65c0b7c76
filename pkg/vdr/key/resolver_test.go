/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
	sigverifier "github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable/validator"
)

func TestResolveInvalid(t *testing.T) {
	v := New()

	t.Run("invalid did", func(t *testing.T) {
		doc, err := v.Resolve("invalid")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid did: invalid")
		require.Nil(t, doc)
	})

	t.Run("other method", func(t *testing.T) {
		doc, err := v.Resolve("did:example:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unexpected method")
		require.Nil(t, doc)
	})

	t.Run("not a fingerprint", func(t *testing.T) {
		doc, err := v.Resolve("did:key:invalid")
		require.Error(t, err)
		require.Nil(t, doc)
	})

	t.Run("not supported public key", func(t *testing.T) {
		doc, err := v.Resolve("did:key:z6LSbysY2xFMRpGMhb7tFTLMpeuPRaqaWM1yECx2AtzE3KCc")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported key multicodec code [0xec]") // Curve25519 public key
		require.Nil(t, doc)
	})

	t.Run("truncated ed25519 key", func(t *testing.T) {
		doc, err := v.Resolve("did:key:z6Mkp")
		require.Error(t, err)
		require.Nil(t, doc)
	})
}

func TestResolveEd25519(t *testing.T) {
	const (
		didEd25519 = "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH"
		kid        = "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH#z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH" //nolint:lll
		keyBase58  = "B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"
	)

	doc, err := New().Resolve(didEd25519)
	require.NoError(t, err)

	assertBase58Doc(t, doc, didEd25519, kid, ed25519VerificationKey2018, keyBase58)

	vm, ok := doc.ResolveMethod(kid, did.ScopeAssertionMethod)
	require.True(t, ok)
	require.Equal(t, jwk.CurveEd25519, vm.JSONWebKey().Crv)
}

func TestResolveBBS(t *testing.T) {
	v := New()

	const (
		k1       = "did:key:zUC7K4ndUaGZgV7Cp2yJy6JtMoUHY6u7tkcSYUvPrEidqBmLCTLmi6d5WvwnUqejscAkERJ3bfjEiSYtdPkRSE8kSa11hFBr4sTgnbZ95SJj19PN2jdvJjyzpSZgxkyyxNnBNnY"                                                                                                                                         //nolint:lll
		k1KID    = "did:key:zUC7K4ndUaGZgV7Cp2yJy6JtMoUHY6u7tkcSYUvPrEidqBmLCTLmi6d5WvwnUqejscAkERJ3bfjEiSYtdPkRSE8kSa11hFBr4sTgnbZ95SJj19PN2jdvJjyzpSZgxkyyxNnBNnY#zUC7K4ndUaGZgV7Cp2yJy6JtMoUHY6u7tkcSYUvPrEidqBmLCTLmi6d5WvwnUqejscAkERJ3bfjEiSYtdPkRSE8kSa11hFBr4sTgnbZ95SJj19PN2jdvJjyzpSZgxkyyxNnBNnY" //nolint:lll
		k1Base58 = "25EEkQtcLKsEzQ6JTo9cg4W7NHpaurn4Wg6LaNPFq6JQXnrP91SDviUz7KrJVMJd76CtAZFsRLYzvgX2JGxo2ccUHtuHk7ELCWwrkBDfrXCFVfqJKDootee9iVaF6NpdJtBE"                                                                                                                                                    //nolint:lll
	)

	doc, err := v.Resolve(k1)
	require.NoError(t, err)

	assertBase58Doc(t, doc, k1, k1KID, bls12381G2Key2020, k1Base58)
	require.Equal(t, jwk.CurveBLS12381G2, doc.VerificationMethod[0].JSONWebKey().Crv)
}

func TestCreate(t *testing.T) {
	v := New()

	t.Run("ed25519", func(t *testing.T) {
		s, err := signer.NewEd25519Signer()
		require.NoError(t, err)

		doc, kid, err := v.Create(s.PublicJWK())
		require.NoError(t, err)
		require.Equal(t, ed25519VerificationKey2018, doc.VerificationMethod[0].Type)
		require.Equal(t, kid, doc.VerificationMethod[0].ID)
	})

	for name, newSigner := range map[string]func() (*signer.ECDSASigner, error){
		"P-256":     signer.NewECDSAP256Signer,
		"P-384":     signer.NewECDSAP384Signer,
		"secp256k1": signer.NewECDSASecp256k1Signer,
	} {
		newSigner := newSigner

		t.Run(name, func(t *testing.T) {
			s, err := newSigner()
			require.NoError(t, err)

			doc, kid, err := v.Create(s.PublicJWK())
			require.NoError(t, err)

			vm, ok := doc.ResolveMethod(kid, did.ScopeAuthentication)
			require.True(t, ok)

			key, err := vm.PublicKeyJWK()
			require.NoError(t, err)
			require.Equal(t, s.PublicJWK().Crv, key.Crv)

			expected, err := s.PublicJWK().PublicKeyBytes()
			require.NoError(t, err)

			actual, err := key.PublicKeyBytes()
			require.NoError(t, err)
			require.Equal(t, expected, actual)
		})
	}

	t.Run("unsupported key", func(t *testing.T) {
		_, _, err := v.Create(jwk.FromSymmetric([]byte("secret"), "HS256", ""))
		require.ErrorIs(t, err, jwk.ErrInvalidKey)

		_, _, err = v.Create(nil)
		require.ErrorIs(t, err, jwk.ErrInvalidKey)
	})
}

func TestResolvedDocValidatesCredential(t *testing.T) {
	s, err := signer.NewEd25519Signer()
	require.NoError(t, err)

	doc, kid, err := New().Create(s.PublicJWK())
	require.NoError(t, err)

	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	vc, err := verifiable.NewCredentialBuilder().
		Issuer(doc.ID).
		Subject(verifiable.Subject{ID: "did:example:holder"}).
		IssuanceDate(issued).
		Build()
	require.NoError(t, err)

	claims, err := vc.JWTClaims(false)
	require.NoError(t, err)

	token, err := jwt.NewSigned(claims, nil, signer.NewJWSSigner(s, kid))
	require.NoError(t, err)

	serialized, err := token.Serialize(false)
	require.NoError(t, err)

	resolved, err := New().Resolve(doc.ID)
	require.NoError(t, err)

	_, err = validator.NewJWTCredentialValidator(sigverifier.NewDefaultVerifier()).Validate(serialized,
		[]*did.Doc{resolved}, validator.FirstError, validator.WithClock(func() time.Time { return issued.Add(time.Hour) }))
	require.NoError(t, err)
}

func assertBase58Doc(t *testing.T, doc *did.Doc, didKey, didKeyID, didKeyType, pubKeyBase58 string) {
	t.Helper()

	require.Equal(t, didKey, doc.ID)
	require.Len(t, doc.VerificationMethod, 1)

	vm := doc.VerificationMethod[0]
	require.Equal(t, didKeyID, vm.ID)
	require.Equal(t, didKeyType, vm.Type)
	require.Equal(t, didKey, vm.Controller)
	require.Equal(t, base58.Decode(pubKeyBase58), vm.Value)

	require.Len(t, doc.Authentication, 1)
	require.Equal(t, didKeyID, doc.Authentication[0].VerificationMethod.ID)
	require.Len(t, doc.AssertionMethod, 1)
	require.Equal(t, didKeyID, doc.AssertionMethod[0].VerificationMethod.ID)
}
