/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

func TestHeaders_GetJWK(t *testing.T) {
	headers := Headers{}

	pubKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwkKey := jwk.JWK{
		JSONWebKey: jose.JSONWebKey{
			Key:       pubKey,
			KeyID:     "kid",
			Algorithm: "EdDSA",
		},
	}

	jwkBytes, err := json.Marshal(&jwkKey)
	require.NoError(t, err)

	var jwkMap map[string]interface{}

	err = json.Unmarshal(jwkBytes, &jwkMap)
	require.NoError(t, err)

	headers["jwk"] = jwkMap

	parsedJWK, ok := headers.JWK()
	require.True(t, ok)
	require.NotNil(t, parsedJWK)
	require.Equal(t, "OKP", parsedJWK.Kty)
	require.Equal(t, "Ed25519", parsedJWK.Crv)

	// jwk is not present
	delete(headers, "jwk")
	parsedJWK, ok = headers.JWK()
	require.False(t, ok)
	require.Nil(t, parsedJWK)

	// jwk is not a map
	headers["jwk"] = "not a map"
	parsedJWK, ok = headers.JWK()
	require.False(t, ok)
	require.Nil(t, parsedJWK)
}

func TestHeaders_Values(t *testing.T) {
	headers := Headers{
		"alg":  "EdDSA",
		"kid":  "did:example:123#key-1",
		"typ":  "JWT",
		"cty":  "vc+ld+json",
		"crit": []interface{}{"exp"},
	}

	alg, ok := headers.Algorithm()
	require.True(t, ok)
	require.Equal(t, "EdDSA", alg)

	kid, ok := headers.KeyID()
	require.True(t, ok)
	require.Equal(t, "did:example:123#key-1", kid)

	typ, ok := headers.Type()
	require.True(t, ok)
	require.Equal(t, "JWT", typ)

	cty, ok := headers.ContentType()
	require.True(t, ok)
	require.Equal(t, "vc+ld+json", cty)

	crit, ok := headers.Critical()
	require.True(t, ok)
	require.Equal(t, []string{"exp"}, crit)

	headers["kid"] = 5
	_, ok = headers.KeyID()
	require.False(t, ok)

	headers["crit"] = []interface{}{5}
	crit, ok = headers.Critical()
	require.True(t, ok)
	require.Nil(t, crit)

	delete(headers, "crit")
	_, ok = headers.Critical()
	require.False(t, ok)
}
