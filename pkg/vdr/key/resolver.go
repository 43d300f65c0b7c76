/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/vdr/fingerprint"
)

// Resolve expands a did:key value to a DID document.
func (v *VDR) Resolve(didKey string) (*did.Doc, error) {
	parsed, err := did.Parse(didKey)
	if err != nil {
		return nil, fmt.Errorf("did:key resolve: %w", err)
	}

	if parsed.Method != DIDMethod {
		return nil, fmt.Errorf("did:key resolve: unexpected method %q", parsed.Method)
	}

	pubKeyBytes, code, err := fingerprint.PubKeyFromFingerprint(parsed.MethodSpecificID)
	if err != nil {
		return nil, fmt.Errorf("did:key resolve: %w", err)
	}

	vm, err := verificationMethod(parsed.String(), parsed.MethodSpecificID, code, pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("did:key resolve %s: %w", didKey, err)
	}

	logger.Debugf("resolved %s to a %s verification method", didKey, vm.Type)

	return did.BuildDoc(parsed.String(),
		did.WithVerificationMethod(*vm),
		did.WithAuthentication(*did.NewReferencedVerification(vm, did.Authentication)),
		did.WithAssertionMethod(*did.NewReferencedVerification(vm, did.AssertionMethod)),
	), nil
}

func verificationMethod(didKey, methodID string, code uint64, pubKeyBytes []byte) (*did.VerificationMethod, error) {
	keyID := fmt.Sprintf("%s#%s", didKey, methodID)

	switch code {
	case fingerprint.ED25519PubKeyMultiCodec:
		return keyFromBytes(keyID, ed25519VerificationKey2018, didKey, pubKeyBytes)
	case fingerprint.Secp256k1PubKeyMultiCodec:
		return keyFromBytes(keyID, secp256k1VerificationKey2019, didKey, pubKeyBytes)
	case fingerprint.BLS12381g2PubKeyMultiCodec:
		return keyFromBytes(keyID, bls12381G2Key2020, didKey, pubKeyBytes)
	case fingerprint.P256PubKeyMultiCodec:
		return ecKey(keyID, didKey, elliptic.P256(), pubKeyBytes)
	case fingerprint.P384PubKeyMultiCodec:
		return ecKey(keyID, didKey, elliptic.P384(), pubKeyBytes)
	}

	return nil, fmt.Errorf("unsupported key multicodec code [0x%x]", code)
}

func keyFromBytes(keyID, keyType, didKey string, value []byte) (*did.VerificationMethod, error) {
	vm := did.NewVerificationMethodFromBytes(keyID, keyType, didKey, value)

	if _, err := vm.PublicKeyJWK(); err != nil {
		return nil, err
	}

	return vm, nil
}

func ecKey(keyID, didKey string, curve elliptic.Curve, value []byte) (*did.VerificationMethod, error) {
	x, y := elliptic.UnmarshalCompressed(curve, value)
	if x == nil {
		return nil, fmt.Errorf("invalid compressed %s key", curve.Params().Name)
	}

	j, err := jwk.FromKey(&ecdsa.PublicKey{Curve: curve, X: x, Y: y}, keyID)
	if err != nil {
		return nil, err
	}

	return did.NewVerificationMethodFromJWK(keyID, jsonWebKey2020, didKey, j)
}
