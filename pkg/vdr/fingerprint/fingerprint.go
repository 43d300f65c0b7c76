/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/multiformats/go-multibase"
)

// Multicodec codes of the supported public keys.
// source: https://github.com/multiformats/multicodec/blob/master/table.csv.
const (
	X25519PubKeyMultiCodec     = 0xec
	ED25519PubKeyMultiCodec    = 0xed
	Secp256k1PubKeyMultiCodec  = 0xe7
	BLS12381g2PubKeyMultiCodec = 0xeb
	P256PubKeyMultiCodec       = 0x1200
	P384PubKeyMultiCodec       = 0x1201
)

// ErrInvalidFingerprint is returned for a value which is not a base58-btc multibase multicodec key.
var ErrInvalidFingerprint = errors.New("invalid key fingerprint")

// CreateDIDKey creates a did:key ID for an Ed25519 public key and the ID of its verification method.
func CreateDIDKey(pubKey []byte) (string, string) {
	return CreateDIDKeyByCode(ED25519PubKeyMultiCodec, pubKey)
}

// CreateDIDKeyByCode creates a did:key ID for a public key of the given multicodec type and the ID of its
// verification method, following https://w3c-ccg.github.io/did-method-key/#format.
func CreateDIDKeyByCode(code uint64, pubKey []byte) (string, string) {
	methodID := KeyFingerprint(code, pubKey)
	didKey := fmt.Sprintf("did:key:%s", methodID)
	keyID := fmt.Sprintf("%s#%s", didKey, methodID)

	return didKey, keyID
}

// KeyFingerprint generates a multicodec fingerprint for pubKeyValue (raw key []byte).
// It is the method specific ID of a did:key.
func KeyFingerprint(code uint64, pubKeyValue []byte) string {
	buf := binary.AppendUvarint(nil, code)
	buf = append(buf, pubKeyValue...)

	// base58-btc is always a known encoding.
	fp, _ := multibase.Encode(multibase.Base58BTC, buf) //nolint:errcheck

	return fp
}

// PubKeyFromFingerprint extracts the raw public key and its multicodec code from a did:key fingerprint.
func PubKeyFromFingerprint(fingerprint string) ([]byte, uint64, error) {
	enc, mc, err := multibase.Decode(fingerprint)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}

	if enc != multibase.Base58BTC {
		return nil, 0, fmt.Errorf("%w: encoding %q is not base58-btc", ErrInvalidFingerprint, string(rune(enc)))
	}

	code, n := binary.Uvarint(mc)
	if n <= 0 || n == len(mc) {
		return nil, 0, fmt.Errorf("%w: missing multicodec prefix", ErrInvalidFingerprint)
	}

	return mc[n:], code, nil
}
