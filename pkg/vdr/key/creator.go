/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/vdr/fingerprint"
)

// Create builds the did:key document of a public key. The ID of its only verification method is returned too.
func (v *VDR) Create(key *jwk.JWK) (*did.Doc, string, error) {
	code, value, err := multicodecKey(key)
	if err != nil {
		return nil, "", fmt.Errorf("did:key create: %w", err)
	}

	didKey, keyID := fingerprint.CreateDIDKeyByCode(code, value)

	doc, err := v.Resolve(didKey)
	if err != nil {
		return nil, "", err
	}

	return doc, keyID, nil
}

func multicodecKey(key *jwk.JWK) (uint64, []byte, error) {
	if key == nil {
		return 0, nil, fmt.Errorf("%w: missing key", jwk.ErrInvalidKey)
	}

	switch k := key.Public().Key.(type) {
	case ed25519.PublicKey:
		return fingerprint.ED25519PubKeyMultiCodec, k, nil
	case *ecdsa.PublicKey:
		compressed := elliptic.MarshalCompressed(k.Curve, k.X, k.Y)

		switch key.Crv {
		case jwk.CurveP256:
			return fingerprint.P256PubKeyMultiCodec, compressed, nil
		case jwk.CurveP384:
			return fingerprint.P384PubKeyMultiCodec, compressed, nil
		case jwk.CurveSecp256k1:
			return fingerprint.Secp256k1PubKeyMultiCodec, compressed, nil
		}
	case *bbs12381g2pub.PublicKey:
		value, err := k.Marshal()
		if err != nil {
			return 0, nil, err
		}

		return fingerprint.BLS12381g2PubKeyMultiCodec, value, nil
	}

	return 0, nil, fmt.Errorf("%w: unsupported %s key for did:key", jwk.ErrInvalidKey, key.Kty)
}
