/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
)

func TestJWTCredClaims(t *testing.T) {
	vc, err := ParseCredential([]byte(validCredential))
	require.NoError(t, err)

	t.Run("round trip through a signed JWT", func(t *testing.T) {
		r := require.New(t)

		for _, minimize := range []bool{false, true} {
			claims, err := vc.JWTClaims(minimize)
			r.NoError(err)
			r.Equal(vc.Issuer.ID, claims.Issuer)
			r.Equal(vc.ID, claims.ID)
			r.Equal(vc.Subject[0].ID, claims.Subject)
			r.Equal(vc.Issued.Unix(), claims.NotBefore.Time().Unix())
			r.Equal(vc.Expired.Unix(), claims.Expiry.Time().Unix())

			if minimize {
				r.NotContains(claims.VC, "id")
				r.NotContains(claims.VC, "issuanceDate")
			}

			edSigner, err := signer.NewEd25519Signer()
			r.NoError(err)

			token, err := jwt.NewSigned(claims, nil, signer.NewJWSSigner(edSigner, "did:example:issuer#key-1"))
			r.NoError(err)

			serialized, err := token.Serialize(false)
			r.NoError(err)

			parsed, err := jwt.Parse(serialized)
			r.NoError(err)

			parsedClaims, err := ParseJWTCredClaims(parsed.Payload)
			r.NoError(err)

			decoded, err := parsedClaims.ToCredential()
			r.NoError(err)
			r.Equal(vc.ID, decoded.ID)
			r.Equal(vc.Issuer, decoded.Issuer)
			r.Equal(vc.Subject[0].ID, decoded.Subject[0].ID)
			r.Equal(vc.Issued.Unix(), decoded.Issued.Unix())
			r.Equal(vc.Expired.Unix(), decoded.Expired.Unix())
			r.Equal(83294847., decoded.CustomFields["referenceNumber"])
		}
	})

	t.Run("error - missing vc claim", func(t *testing.T) {
		_, err := ParseJWTCredClaims(map[string]interface{}{"iss": "did:example:issuer"})
		require.ErrorIs(t, err, ErrMissingClaim)
	})

	for _, tc := range []struct {
		name   string
		modify func(c *JWTCredClaims)
	}{
		{name: "iss", modify: func(c *JWTCredClaims) { c.Issuer = "did:example:other" }},
		{name: "jti", modify: func(c *JWTCredClaims) { c.ID = "urn:uuid:other" }},
		{name: "sub", modify: func(c *JWTCredClaims) { c.Subject = "did:example:other" }},
		{name: "nbf", modify: func(c *JWTCredClaims) {
			c.NotBefore = c.Expiry
		}},
		{name: "exp", modify: func(c *JWTCredClaims) {
			c.Expiry = c.NotBefore
		}},
	} {
		tc := tc

		t.Run("error - inconsistent "+tc.name, func(t *testing.T) {
			claims, err := vc.JWTClaims(false)
			require.NoError(t, err)

			tc.modify(claims)

			_, err = claims.ToCredential()
			require.ErrorIs(t, err, ErrInconsistentClaims)
		})
	}

	t.Run("registered claims fill a minimal vc claim", func(t *testing.T) {
		r := require.New(t)

		claims, err := ParseJWTCredClaims(map[string]interface{}{
			"iss": "did:example:issuer",
			"sub": "did:example:holder",
			"jti": "urn:uuid:1",
			"nbf": 1577836800,
			"exp": 1704067200,
			"vc": map[string]interface{}{
				"@context":          []interface{}{ContextV1},
				"type":              []interface{}{TypeCredential},
				"credentialSubject": map[string]interface{}{"degree": "BSc"},
			},
		})
		r.NoError(err)

		decoded, err := claims.ToCredential()
		r.NoError(err)
		r.Equal("did:example:issuer", decoded.Issuer.ID)
		r.Equal("did:example:holder", decoded.Subject[0].ID)
		r.Equal("urn:uuid:1", decoded.ID)
		r.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *decoded.Issued)
		r.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *decoded.Expired)
		r.NoError(decoded.CheckStructure())
	})
}

func TestJWTPresClaims(t *testing.T) {
	r := require.New(t)

	vc, err := ParseCredential([]byte(validCredential))
	r.NoError(err)

	vp := vc.Presentation()
	vp.Holder = "did:example:ebfeb1f712ebc6f1c276e12ec21"
	vp.AddJWTCredentials("eyJhbGciOiJFZERTQSJ9.e30.c2ln")

	claims, err := vp.JWTClaims([]string{"did:example:verifier"}, "nonce-1", true)
	r.NoError(err)
	r.Equal(vp.Holder, claims.Issuer)
	r.NotContains(claims.VP, "holder")

	edSigner, err := signer.NewEd25519Signer()
	r.NoError(err)

	token, err := jwt.NewSigned(claims, nil, signer.NewJWSSigner(edSigner, vp.Holder+"#key-1"))
	r.NoError(err)

	serialized, err := token.Serialize(false)
	r.NoError(err)

	parsed, err := jwt.Parse(serialized)
	r.NoError(err)

	parsedClaims, err := ParseJWTPresClaims(parsed.Payload)
	r.NoError(err)
	r.Equal("nonce-1", parsedClaims.Nonce)
	r.Equal([]string{"did:example:verifier"}, []string(parsedClaims.Audience))

	decoded, err := parsedClaims.ToPresentation()
	r.NoError(err)
	r.Equal(vp.Holder, decoded.Holder)
	r.NoError(decoded.CheckStructure())

	creds := decoded.Credentials()
	r.Len(creds, 2)

	embedded, ok := creds[0].(*Credential)
	r.True(ok)
	r.Equal(vc.ID, embedded.ID)
	r.Equal(map[int]string{1: "eyJhbGciOiJFZERTQSJ9.e30.c2ln"}, decoded.JWTCredentials())

	violations := CheckNonTransferable(decoded, []*Credential{embedded}, false)
	r.Empty(violations)

	_, err = ParseJWTPresClaims(map[string]interface{}{"iss": vp.Holder})
	r.ErrorIs(err, ErrMissingClaim)

	parsedClaims.Issuer = "did:example:other"
	parsedClaims.VP["holder"] = vp.Holder

	_, err = parsedClaims.ToPresentation()
	r.ErrorIs(err, ErrInconsistentClaims)
}
