/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwk

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"
)

// FromKey creates a JWK from an opaque key: ed25519 keys, *ecdsa keys (P-256, P-384, secp256k1) and
// BBS+ keys.
func FromKey(opaqueKey interface{}, kid string) (*JWK, error) {
	key := &JWK{JSONWebKey: jose.JSONWebKey{Key: opaqueKey, KeyID: kid}}

	switch k := opaqueKey.(type) {
	case ed25519.PublicKey, ed25519.PrivateKey:
		key.Kty, key.Crv = KeyTypeOKP, CurveEd25519
	case *ecdsa.PublicKey:
		crv, err := curveName(k.Curve)
		if err != nil {
			return nil, err
		}

		key.Kty, key.Crv = KeyTypeEC, crv
	case *ecdsa.PrivateKey:
		crv, err := curveName(k.Curve)
		if err != nil {
			return nil, err
		}

		key.Kty, key.Crv = KeyTypeEC, crv
	case *bbs12381g2pub.PublicKey, *bbs12381g2pub.PrivateKey:
		key.Kty, key.Crv = KeyTypeOKP, CurveBLS12381G2
	default:
		return nil, fmt.Errorf("%w: unsupported key %T", ErrInvalidKey, opaqueKey)
	}

	return key, nil
}

// FromAKP creates an "AKP" JWK (ML-DSA family) from the raw public key and its algorithm.
func FromAKP(alg string, pub []byte, kid string) *JWK {
	return &JWK{
		JSONWebKey: jose.JSONWebKey{Key: pub, KeyID: kid, Algorithm: alg},
		Kty:        KeyTypeAKP,
	}
}

// FromSymmetric creates an "oct" JWK.
func FromSymmetric(secret []byte, alg, kid string) *JWK {
	return &JWK{
		JSONWebKey: jose.JSONWebKey{Key: secret, KeyID: kid, Algorithm: alg},
		Kty:        KeyTypeOct,
	}
}

func curveName(c elliptic.Curve) (string, error) {
	switch c {
	case elliptic.P256():
		return CurveP256, nil
	case elliptic.P384():
		return CurveP384, nil
	case btcec.S256():
		return CurveSecp256k1, nil
	}

	return "", fmt.Errorf("%w: unsupported curve %s", ErrInvalidKey, c.Params().Name)
}
