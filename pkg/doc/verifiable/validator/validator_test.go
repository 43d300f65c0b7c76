/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/bitmap"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/statuslist2021"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

const (
	issuerDID = "did:example:issuer"
	holderDID = "did:example:holder"
)

//nolint:gochecknoglobals
var (
	issued    = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	expires   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	validTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

type testParty struct {
	doc    *did.Doc
	signer signer.Signer
	kid    string
}

func newTestParty(t *testing.T, id string) *testParty {
	t.Helper()

	s, err := signer.NewEd25519Signer()
	require.NoError(t, err)

	doc, err := did.DocWithKey(id, "key-1", s.PublicJWK())
	require.NoError(t, err)

	return &testParty{doc: doc, signer: s, kid: id + "#key-1"}
}

func (p *testParty) sign(t *testing.T, claims interface{}) string {
	t.Helper()

	return signWith(t, p.signer, p.kid, claims)
}

func signWith(t *testing.T, s signer.Signer, kid string, claims interface{}) string {
	t.Helper()

	token, err := jwt.NewSigned(claims, nil, signer.NewJWSSigner(s, kid))
	require.NoError(t, err)

	serialized, err := token.Serialize(false)
	require.NoError(t, err)

	return serialized
}

func newCredential(t *testing.T, modify func(b *verifiable.CredentialBuilder)) *verifiable.Credential {
	t.Helper()

	b := verifiable.NewCredentialBuilder().
		Issuer(issuerDID).
		Subject(verifiable.Subject{ID: holderDID, CustomFields: verifiable.CustomFields{"degree": "BSc"}}).
		IssuanceDate(issued).
		ExpirationDate(expires)

	if modify != nil {
		modify(b)
	}

	vc, err := b.Build()
	require.NoError(t, err)

	return vc
}

func credentialJWT(t *testing.T, p *testParty, vc *verifiable.Credential) string {
	t.Helper()

	claims, err := vc.JWTClaims(false)
	require.NoError(t, err)

	return p.sign(t, claims)
}

func validationErrors(t *testing.T, err error) []error {
	t.Helper()

	var ce *CompoundCredentialValidationError

	require.True(t, errors.As(err, &ce), "unexpected error %v", err)

	return ce.Errors
}

func TestJWTCredentialValidator_Validate(t *testing.T) {
	issuer := newTestParty(t, issuerDID)
	v := NewJWTCredentialValidator(verifier.NewDefaultVerifier())
	clock := WithClock(func() time.Time { return validTime })

	t.Run("success", func(t *testing.T) {
		r := require.New(t)

		vc := newCredential(t, func(b *verifiable.CredentialBuilder) { b.CustomField("note", "x") })

		claims, err := vc.JWTClaims(true)
		r.NoError(err)

		decoded, err := v.Validate(issuer.sign(t, claims), []*did.Doc{issuer.doc}, FirstError, clock)
		r.NoError(err)
		r.Equal(vc.ID, decoded.Credential.ID)
		r.Equal(issuerDID, decoded.Credential.Issuer.ID)
		r.Equal(issuer.doc, decoded.Issuer)
		r.Equal("x", decoded.Credential.CustomFields["note"])

		kid, ok := decoded.Header.KeyID()
		r.True(ok)
		r.Equal(issuer.kid, kid)
	})

	t.Run("issuer document is chosen among candidates by kid", func(t *testing.T) {
		other := newTestParty(t, "did:example:other")

		decoded, err := v.Validate(credentialJWT(t, issuer, newCredential(t, nil)),
			[]*did.Doc{other.doc, issuer.doc}, FirstError, clock)
		require.NoError(t, err)
		require.Equal(t, issuerDID, decoded.Issuer.ID)
	})

	t.Run("expired credential reports one expiration error", func(t *testing.T) {
		r := require.New(t)

		vc := newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.ExpirationDate(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
		})

		_, err := v.Validate(credentialJWT(t, issuer, vc), []*did.Doc{issuer.doc}, AllErrors, clock)
		r.Error(err)

		errs := validationErrors(t, err)
		r.Len(errs, 1)
		r.ErrorIs(errs[0], ErrExpirationDate)
	})

	t.Run("earliest expiry date is configurable", func(t *testing.T) {
		_, err := v.Validate(credentialJWT(t, issuer, newCredential(t, nil)), []*did.Doc{issuer.doc}, FirstError,
			clock, WithEarliestExpiryDate(expires.Add(time.Hour)))
		require.ErrorIs(t, err, ErrExpirationDate)
	})

	t.Run("issued in the future", func(t *testing.T) {
		vc := newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.IssuanceDate(validTime.Add(time.Hour))
		})

		_, err := v.Validate(credentialJWT(t, issuer, vc), []*did.Doc{issuer.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrIssuanceDate)
	})

	t.Run("first error versus all errors", func(t *testing.T) {
		r := require.New(t)

		attacker, err := signer.NewEd25519Signer()
		r.NoError(err)

		vc := newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.ExpirationDate(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
		})

		claims, err := vc.JWTClaims(false)
		r.NoError(err)

		token := signWith(t, attacker, issuer.kid, claims)

		_, err = v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock)
		r.Len(validationErrors(t, err), 1)
		r.ErrorIs(err, ErrSignature)

		_, err = v.Validate(token, []*did.Doc{issuer.doc}, AllErrors, clock)
		errs := validationErrors(t, err)
		r.Len(errs, 2)
		r.ErrorIs(errs[0], ErrSignature)
		r.ErrorIs(errs[1], ErrExpirationDate)

		var ve *ValidationError

		r.True(errors.As(errs[0], &ve))
		r.Equal(SignerIssuer, ve.Signer)
		r.Contains(ve.Error(), "(issuer)")
	})

	t.Run("error - malformed token", func(t *testing.T) {
		_, err := v.Validate("not a jwt", []*did.Doc{issuer.doc}, AllErrors)
		require.ErrorIs(t, err, ErrDecoding)
		require.Len(t, validationErrors(t, err), 1)
	})

	t.Run("error - kid is not a DID URL", func(t *testing.T) {
		claims, err := newCredential(t, nil).JWTClaims(false)
		require.NoError(t, err)

		_, err = v.Validate(signWith(t, issuer.signer, "key-1", claims), []*did.Doc{issuer.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrSignerURL)
	})

	t.Run("error - no document for the signer", func(t *testing.T) {
		other := newTestParty(t, "did:example:other")

		_, err := v.Validate(credentialJWT(t, issuer, newCredential(t, nil)), []*did.Doc{other.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrDocumentMismatch)
	})

	t.Run("error - credential issuer is not the signer", func(t *testing.T) {
		other := newTestParty(t, "did:example:other")

		_, err := v.Validate(credentialJWT(t, other, newCredential(t, nil)), []*did.Doc{other.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrDocumentMismatch)
	})

	t.Run("error - method outside of the scope", func(t *testing.T) {
		_, err := v.Validate(credentialJWT(t, issuer, newCredential(t, nil)), []*did.Doc{issuer.doc}, FirstError,
			clock, WithMethodScope(did.ScopeKeyAgreement))
		require.ErrorIs(t, err, ErrMethodDataLookup)
	})

	t.Run("subject holder relationship", func(t *testing.T) {
		token := credentialJWT(t, issuer, newCredential(t, nil))

		_, err := v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock,
			WithSubjectHolderRelationship("did:example:someone", AlwaysSubject))
		require.ErrorIs(t, err, ErrSubjectHolderRelationship)

		_, err = v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock,
			WithSubjectHolderRelationship("did:example:someone", SubjectOnNonTransferable))
		require.NoError(t, err)

		_, err = v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock,
			WithSubjectHolderRelationship(holderDID, AlwaysSubject))
		require.NoError(t, err)
	})
}

func TestJWTCredentialValidator_Status(t *testing.T) {
	issuer := newTestParty(t, issuerDID)
	v := NewJWTCredentialValidator(verifier.NewDefaultVerifier())
	clock := WithClock(func() time.Time { return validTime })

	revocations := bitmap.New()
	revocations.Revoke(5)

	svc, err := revocations.ToService(issuerDID + "#revocation")
	require.NoError(t, err)

	issuer.doc.Service = append(issuer.doc.Service, *svc)

	withStatus := func(status map[string]interface{}) string {
		return credentialJWT(t, issuer, newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.Status(verifiable.TypedIDFromMap(status))
		}))
	}

	t.Run("revocation bitmap", func(t *testing.T) {
		revoked := withStatus(bitmap.NewStatus(issuerDID+"#revocation", 5).ToMap())

		_, err := v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrRevoked)

		_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusCheck(SkipAll))
		require.NoError(t, err)

		valid := withStatus(bitmap.NewStatus(issuerDID+"#revocation", 6).ToMap())

		_, err = v.Validate(valid, []*did.Doc{issuer.doc}, FirstError, clock)
		require.NoError(t, err)
	})

	t.Run("revocation bitmap of another document", func(t *testing.T) {
		token := withStatus(bitmap.NewStatus("did:example:other#revocation", 1).ToMap())

		_, err := v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown status type", func(t *testing.T) {
		token := withStatus(map[string]interface{}{
			"id":   "https://example.com/status/1",
			"type": "CustomStatus2030",
		})

		_, err := v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock)
		require.ErrorIs(t, err, ErrInvalidStatus)

		for _, check := range []StatusCheck{SkipUnsupported, SkipAll} {
			_, err = v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusCheck(check))
			require.NoError(t, err, check.String())
		}
	})

	t.Run("malformed bitmap status fails unless skipped", func(t *testing.T) {
		token := withStatus(map[string]interface{}{
			"id":                 issuerDID + "#revocation",
			"type":               bitmap.StatusType,
			bitmap.IndexProperty: "not a number",
		})

		_, err := v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusCheck(SkipUnsupported))
		require.ErrorIs(t, err, ErrInvalidStatus)

		_, err = v.Validate(token, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusCheck(SkipAll))
		require.NoError(t, err)
	})

	t.Run("status list 2021", func(t *testing.T) {
		const listURL = "https://example.com/status/1"

		for _, purpose := range []statuslist2021.Purpose{statuslist2021.PurposeRevocation,
			statuslist2021.PurposeSuspension} {
			list, err := statuslist2021.New(16)
			require.NoError(t, err)
			require.NoError(t, list.Set(3, true))

			listCred := statusListCredential(t, listURL, purpose, list)

			revoked := withStatus(statuslist2021.NewEntry(listURL, 3, purpose).ToMap())
			valid := withStatus(statuslist2021.NewEntry(listURL, 4, purpose).ToMap())

			expected := ErrRevoked
			if purpose == statuslist2021.PurposeSuspension {
				expected = ErrSuspended
			}

			_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusListCredentials(listCred))
			require.ErrorIs(t, err, expected)

			_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock,
				WithStatusListCredentials(nil, listCred, nil))
			require.ErrorIs(t, err, expected)

			_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusListCredentials(nil))
			require.ErrorIs(t, err, ErrInvalidStatus)

			_, err = v.Validate(valid, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusListCredentials(listCred))
			require.NoError(t, err)

			_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock)
			require.ErrorIs(t, err, ErrInvalidStatus)

			_, err = v.Validate(revoked, []*did.Doc{issuer.doc}, FirstError, clock, WithStatusCheck(SkipUnsupported))
			require.NoError(t, err)
		}
	})

	t.Run("status list credential of another issuer", func(t *testing.T) {
		const listURL = "https://example.com/status/2"

		list, err := statuslist2021.New(16)
		require.NoError(t, err)

		listCred := statusListCredential(t, listURL, statuslist2021.PurposeRevocation, list)
		listCred.Issuer.ID = "did:example:other"

		vc := newCredential(t, func(b *verifiable.CredentialBuilder) {
			b.Status(verifiable.TypedIDFromMap(statuslist2021.NewEntry(listURL, 1, statuslist2021.PurposeRevocation).ToMap()))
		})

		err = CheckStatusWithStatusList2021(vc, listCred, Strict)
		require.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func statusListCredential(t *testing.T, listURL string, purpose statuslist2021.Purpose,
	list *statuslist2021.StatusList) *verifiable.Credential {
	t.Helper()

	cs, err := statuslist2021.NewCredentialSubject(listURL+"#list", purpose, list)
	require.NoError(t, err)

	fields := verifiable.CustomFields(cs.ToMap())
	delete(fields, "id")

	vc, err := verifiable.NewCredentialBuilder().
		ID(listURL).
		Context(statuslist2021.Context).
		Type(statuslist2021.CredentialType).
		Issuer(issuerDID).
		Subject(verifiable.Subject{ID: cs.ID, CustomFields: fields}).
		IssuanceDate(issued).
		Build()
	require.NoError(t, err)

	return vc
}

func TestExtract(t *testing.T) {
	issuer := newTestParty(t, issuerDID)
	holder := newTestParty(t, holderDID)

	vc := newCredential(t, nil)

	id, err := ExtractIssuer(vc)
	require.NoError(t, err)
	require.Equal(t, issuerDID, id.String())

	id, err = ExtractIssuerFromJWT(credentialJWT(t, issuer, vc))
	require.NoError(t, err)
	require.Equal(t, "example", id.Method)

	vp := verifiable.NewPresentation()
	vp.Holder = holderDID

	claims, err := vp.JWTClaims(nil, "", false)
	require.NoError(t, err)

	id, err = ExtractHolder(holder.sign(t, claims))
	require.NoError(t, err)
	require.Equal(t, holderDID, id.String())

	_, err = ExtractIssuerFromJWT("a.b")
	require.ErrorIs(t, err, ErrDecoding)

	_, err = ExtractHolder(credentialJWT(t, issuer, vc))
	require.ErrorIs(t, err, ErrDecoding)

	vc.Issuer.ID = "https://example.com/issuer"
	_, err = ExtractIssuer(vc)
	require.Error(t, err)
}
