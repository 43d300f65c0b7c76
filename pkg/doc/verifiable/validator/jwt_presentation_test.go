/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

func presentationJWT(t *testing.T, holder *testParty, holderID string, credentials ...string) string {
	t.Helper()

	vp := verifiable.NewPresentation()
	vp.Holder = holderID
	vp.AddJWTCredentials(credentials...)

	claims, err := vp.JWTClaims([]string{"did:example:verifier"}, "nonce-1", false)
	require.NoError(t, err)

	return holder.sign(t, claims)
}

func TestJWTPresentationValidator(t *testing.T) {
	issuer := newTestParty(t, issuerDID)
	holder := newTestParty(t, holderDID)
	v := NewJWTPresentationValidator(verifier.NewDefaultVerifier())
	clock := WithClock(func() time.Time { return validTime })

	valid := credentialJWT(t, issuer, newCredential(t, nil))
	expired := credentialJWT(t, issuer, newCredential(t, func(b *verifiable.CredentialBuilder) {
		b.ExpirationDate(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	}))

	t.Run("success", func(t *testing.T) {
		r := require.New(t)

		token := presentationJWT(t, holder, holderDID, valid, valid)

		decoded, err := v.ValidatePresentation(token, holder.doc, []*did.Doc{issuer.doc},
			[]Opt{clock, WithAudience("did:example:verifier")}, []Opt{clock}, AllErrors)
		r.NoError(err)
		r.Equal(holderDID, decoded.Presentation.Holder)
		r.Equal("nonce-1", decoded.Nonce)
		r.Equal([]string{"did:example:verifier"}, decoded.Audience)
		r.Len(decoded.Credentials, 2)
		r.Equal(issuerDID, decoded.Credentials[1].Credential.Issuer.ID)
	})

	t.Run("envelope only", func(t *testing.T) {
		token := presentationJWT(t, holder, holderDID, expired)

		decoded, err := v.Validate(token, holder.doc, FirstError, clock)
		require.NoError(t, err)
		require.Equal(t, holder.doc, decoded.Holder)
	})

	t.Run("credential errors are keyed by position", func(t *testing.T) {
		r := require.New(t)

		attacker := newTestParty(t, issuerDID)
		forged := credentialJWT(t, attacker, newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.ExpirationDate(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
		}))

		token := presentationJWT(t, holder, holderDID, valid, expired, forged)

		_, err := v.ValidatePresentation(token, holder.doc, []*did.Doc{issuer.doc}, []Opt{clock}, []Opt{clock},
			AllErrors)
		r.Error(err)

		var pe *CompoundJWTPresentationValidationError

		r.True(errors.As(err, &pe))
		r.Empty(pe.PresentationErrors)
		r.Len(pe.CredentialErrors, 2)
		r.NotContains(pe.CredentialErrors, 0)
		r.Len(pe.CredentialErrors[1].Errors, 1)
		r.Len(pe.CredentialErrors[2].Errors, 2)
		r.ErrorIs(pe.CredentialErrors[2], ErrSignature)
		r.ErrorIs(err, ErrExpirationDate)

		r.Contains(err.Error(), "credential num. 1 errors: [expiration date check failed:")
		r.Contains(err.Error(), fmt.Sprintf("credential num. 2 errors: [%s; ", pe.CredentialErrors[2].Errors[0]))
		r.NotContains(err.Error(), "presentation validation errors")

		_, err = v.ValidatePresentation(token, holder.doc, []*did.Doc{issuer.doc}, []Opt{clock}, []Opt{clock},
			FirstError)
		r.True(errors.As(err, &pe))
		r.Len(pe.CredentialErrors, 1)
		r.Len(pe.CredentialErrors[1].Errors, 1)
	})

	t.Run("presentation errors", func(t *testing.T) {
		r := require.New(t)

		stranger := newTestParty(t, "did:example:stranger")
		token := presentationJWT(t, stranger, holderDID, valid)

		_, err := v.ValidatePresentation(token, stranger.doc, []*did.Doc{issuer.doc},
			[]Opt{clock, WithAudience("did:example:someone")}, []Opt{clock}, AllErrors)
		r.Error(err)

		var pe *CompoundJWTPresentationValidationError

		r.True(errors.As(err, &pe))
		r.Len(pe.PresentationErrors, 2)
		r.ErrorIs(pe.PresentationErrors[0], ErrDocumentMismatch)
		r.ErrorIs(pe.PresentationErrors[1], ErrAudience)
		r.Contains(err.Error(), "presentation validation errors: [")

		var ve *ValidationError

		r.True(errors.As(pe.PresentationErrors[0], &ve))
		r.Equal(SignerHolder, ve.Signer)
	})

	t.Run("non transferable credential presented by another holder", func(t *testing.T) {
		r := require.New(t)

		other := newTestParty(t, "did:example:other-holder")

		nonTransferable := credentialJWT(t, issuer, newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.NonTransferable(true)
		}))

		token := presentationJWT(t, other, "did:example:other-holder", valid, nonTransferable)

		_, err := v.ValidatePresentation(token, other.doc, []*did.Doc{issuer.doc}, []Opt{clock}, []Opt{clock},
			AllErrors)
		r.ErrorIs(err, ErrNonTransferable)

		var pe *CompoundJWTPresentationValidationError

		r.True(errors.As(err, &pe))
		r.Len(pe.CredentialErrors, 1)
		r.Contains(pe.CredentialErrors, 1)

		token = presentationJWT(t, holder, holderDID, valid, nonTransferable)

		_, err = v.ValidatePresentation(token, holder.doc, []*did.Doc{issuer.doc}, []Opt{clock}, []Opt{clock},
			AllErrors)
		r.NoError(err)
	})

	t.Run("error - malformed presentation", func(t *testing.T) {
		_, err := v.ValidatePresentation(valid, holder.doc, []*did.Doc{issuer.doc}, nil, nil, AllErrors)
		require.ErrorIs(t, err, ErrDecoding)

		_, err = v.Validate("a.b.c", holder.doc, AllErrors)
		require.ErrorIs(t, err, ErrDecoding)
	})
}
