/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto"
	"fmt"
	"math/big"
)

// Digest is a message digest produced by NewDigest. The zero value is not a valid digest.
type Digest struct {
	hash  crypto.Hash
	value []byte
}

// NewDigest hashes msg with one of the SHA-2 functions accepted by the prehashed verifiers.
func NewDigest(hash crypto.Hash, msg []byte) (Digest, error) {
	switch hash { //nolint:exhaustive
	case crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return Digest{}, fmt.Errorf("hash %s is not accepted for prehashed verification", hash)
	}

	if !hash.Available() {
		return Digest{}, fmt.Errorf("hash function not available for: %s", hash)
	}

	h := hash.New()
	h.Write(msg) //nolint:errcheck

	return Digest{hash: hash, value: h.Sum(nil)}, nil
}

// Hash returns the hash function the digest was produced with.
func (d Digest) Hash() crypto.Hash {
	return d.hash
}

// Bytes returns the digest value.
func (d Digest) Bytes() []byte {
	return d.value
}

func splitSignature(signature []byte, keySize int) (*big.Int, *big.Int) {
	r := new(big.Int).SetBytes(signature[:keySize])
	s := new(big.Int).SetBytes(signature[keySize:])

	return r, s
}
