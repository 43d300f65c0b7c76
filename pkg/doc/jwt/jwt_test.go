/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
)

type CustomClaim struct {
	*Claims

	PrivateClaim1 string `json:"privateClaim1,omitempty"`
}

func TestNewSigned(t *testing.T) {
	claims := &CustomClaim{
		Claims: &Claims{
			Issuer:    "iss",
			Subject:   "sub",
			Audience:  []string{"aud"},
			Expiry:    jwt.NewNumericDate(time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)),
			NotBefore: jwt.NewNumericDate(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)),
			IssuedAt:  jwt.NewNumericDate(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)),
			ID:        "id",
		},
		PrivateClaim1: "private claim",
	}

	t.Run("success - EdDSA", func(t *testing.T) {
		r := require.New(t)

		edSigner, err := signer.NewEd25519Signer()
		r.NoError(err)

		token, err := NewSigned(claims, jose.Headers{jose.HeaderType: TypeJWT}, signer.NewJWSSigner(edSigner, "key-1"))
		r.NoError(err)

		serialized, err := token.Serialize(false)
		r.NoError(err)

		parsed, err := Parse(serialized)
		r.NoError(err)
		r.Equal("key-1", parsed.LookupStringHeader(jose.HeaderKeyID))
		r.Equal(TypeJWT, parsed.LookupStringHeader(jose.HeaderType))

		var parsedClaims CustomClaim
		r.NoError(parsed.DecodeClaims(&parsedClaims))
		r.Equal(*claims, parsedClaims)

		r.NoError(parsed.Verify(verifier.NewDefaultVerifier(), edSigner.PublicJWK()))
	})

	t.Run("success - ES256K", func(t *testing.T) {
		r := require.New(t)

		kSigner, err := signer.NewECDSASecp256k1Signer()
		r.NoError(err)

		token, err := NewSigned(claims, nil, signer.NewJWSSigner(kSigner, ""))
		r.NoError(err)

		serialized, err := token.Serialize(false)
		r.NoError(err)

		parsed, err := Parse(serialized)
		r.NoError(err)
		r.NoError(parsed.Verify(verifier.NewDefaultVerifier(), kSigner.PublicJWK()))

		other, err := signer.NewECDSASecp256k1Signer()
		r.NoError(err)

		err = parsed.Verify(verifier.NewDefaultVerifier(), other.PublicJWK())
		r.ErrorIs(err, verifier.ErrInvalidSignature)
	})

	t.Run("error - claims are not a JSON object", func(t *testing.T) {
		edSigner, err := signer.NewEd25519Signer()
		require.NoError(t, err)

		token, err := NewSigned("not JSON claims", nil, signer.NewJWSSigner(edSigner, ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshallable claims")
		require.Nil(t, token)

		token, err = NewSigned(struct{ C chan int }{C: make(chan int)}, nil, signer.NewJWSSigner(edSigner, ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshallable claims")
		require.Nil(t, token)
	})

	t.Run("error - claims map is not serializable", func(t *testing.T) {
		edSigner, err := signer.NewEd25519Signer()
		require.NoError(t, err)

		token, err := NewSigned(map[string]interface{}{"c": make(chan int)}, nil, signer.NewJWSSigner(edSigner, ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "marshal JWT claims")
		require.Nil(t, token)
	})
}

func TestParse(t *testing.T) {
	header := func(h string) string { return base64.RawURLEncoding.EncodeToString([]byte(h)) }
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"Albert","n":12345678901234567890}`))
	sig := base64.RawURLEncoding.EncodeToString([]byte("signature"))

	t.Run("success - numbers are preserved", func(t *testing.T) {
		token, err := Parse(strings.Join([]string{header(`{"alg":"EdDSA"}`), payload, sig}, "."))
		require.NoError(t, err)
		require.Equal(t, "Albert", token.Payload["iss"])
		require.Equal(t, json.Number("12345678901234567890"), token.Payload["n"])
	})

	t.Run("success - detached payload", func(t *testing.T) {
		token, err := Parse(strings.Join([]string{header(`{"alg":"EdDSA"}`), "", sig}, "."),
			WithJWTDetachedPayload([]byte(`{"iss":"Albert"}`)))
		require.NoError(t, err)
		require.Equal(t, "Albert", token.Payload["iss"])
	})

	t.Run("success - understood critical header", func(t *testing.T) {
		_, err := Parse(strings.Join([]string{header(`{"alg":"EdDSA","crit":["exp"],"exp":1}`), payload, sig}, "."),
			WithUnderstoodCritical("exp"))
		require.NoError(t, err)
	})

	for _, tc := range []struct {
		name  string
		token string
		err   string
	}{
		{name: "not compact", token: "a.b", err: "JWT of compacted JWS form is supported only"},
		{name: "missing alg", token: strings.Join([]string{header(`{"typ":"JWT"}`), payload, sig}, "."),
			err: "alg JWS header is not defined"},
		{name: "nested JWT", token: strings.Join([]string{header(`{"alg":"EdDSA","cty":"JWT"}`), payload, sig}, "."),
			err: "nested JWT is not supported"},
		{name: "payload is not an object",
			token: strings.Join([]string{header(`{"alg":"EdDSA"}`),
				base64.RawURLEncoding.EncodeToString([]byte(`[1]`)), sig}, "."),
			err: "read JWT claims"},
		{name: "critical header not understood",
			token: strings.Join([]string{header(`{"alg":"EdDSA","crit":["exp"],"exp":1}`), payload, sig}, "."),
			err:   "is not understood"},
	} {
		tc := tc

		t.Run("error - "+tc.name, func(t *testing.T) {
			token, err := Parse(tc.token)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
			require.Nil(t, token)
		})
	}
}

func TestJSONWebToken_LookupStringHeader(t *testing.T) {
	token := &JSONWebToken{Headers: jose.Headers{"typ": "JWT", "not_str": 55}}

	require.Equal(t, "JWT", token.LookupStringHeader("typ"))
	require.Empty(t, token.LookupStringHeader("undef"))
	require.Empty(t, token.LookupStringHeader("not_str"))

	_, err := token.Serialize(false)
	require.Error(t, err)
}

func TestPayloadToMap(t *testing.T) {
	m, err := PayloadToMap([]byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, json.Number("1"), m["a"])

	m, err = PayloadToMap(`{"a":"b"}`)
	require.NoError(t, err)
	require.Equal(t, "b", m["a"])

	in := map[string]interface{}{"x": true}
	m, err = PayloadToMap(in)
	require.NoError(t, err)
	require.Equal(t, in, m)

	_, err = PayloadToMap(`null`)
	require.Error(t, err)
}
