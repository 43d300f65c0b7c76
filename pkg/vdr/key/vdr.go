/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package key resolves did:key identifiers. The document of a did:key is derived from the public key encoded in
// the identifier, so resolution needs no network access.
package key

import (
	"github.com/hyperledger/aries-framework-go/component/log"
)

const (
	// DIDMethod is the did:key method name.
	DIDMethod = "key"

	ed25519VerificationKey2018   = "Ed25519VerificationKey2018"
	secp256k1VerificationKey2019 = "EcdsaSecp256k1VerificationKey2019"
	bls12381G2Key2020            = "Bls12381G2Key2020"
	jsonWebKey2020               = "JsonWebKey2020"
)

var logger = log.New("aries-framework/vdr/key")

// VDR implements did:key method support.
type VDR struct{}

// New returns new instance of VDR that works with did:key method.
func New() *VDR {
	return &VDR{}
}

// Accept accepts did:key method.
func (v *VDR) Accept(method string) bool {
	return method == DIDMethod
}
