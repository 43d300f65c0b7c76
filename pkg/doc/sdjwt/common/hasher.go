/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Hash algorithm names of the "_sd_alg" claim.
const (
	SHA256   = "sha-256"
	SHA384   = "sha-384"
	SHA512   = "sha-512"
	SHA3_256 = "sha3-256"
)

// ErrUnsupportedHashAlg is returned for an "_sd_alg" value without hasher.
var ErrUnsupportedHashAlg = errors.New("unsupported SD-JWT hash algorithm")

// Hasher computes disclosure digests.
type Hasher interface {
	// AlgName is the "_sd_alg" value.
	AlgName() string
	// EncodedDigest returns the base64url encoded digest of input.
	EncodedDigest(input string) string
}

type hashFuncHasher struct {
	name string
	new  func() hash.Hash
}

func (h *hashFuncHasher) AlgName() string {
	return h.name
}

func (h *hashFuncHasher) EncodedDigest(input string) string {
	d := h.new()
	d.Write([]byte(input)) //nolint:errcheck

	return base64.RawURLEncoding.EncodeToString(d.Sum(nil))
}

// NewSHA256Hasher returns the default hasher.
func NewSHA256Hasher() Hasher {
	return &hashFuncHasher{name: SHA256, new: sha256.New}
}

// NewHasher returns the hasher of an "_sd_alg" value.
func NewHasher(alg string) (Hasher, error) {
	switch strings.ToLower(alg) {
	case SHA256:
		return NewSHA256Hasher(), nil
	case SHA384:
		return &hashFuncHasher{name: SHA384, new: sha512.New384}, nil
	case SHA512:
		return &hashFuncHasher{name: SHA512, new: sha512.New}, nil
	case SHA3_256:
		return &hashFuncHasher{name: SHA3_256, new: sha3.New256}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHashAlg, alg)
	}
}

// HasherFromClaims returns the hasher named by the "_sd_alg" claim, SHA-256 when the claim is absent.
func HasherFromClaims(claims map[string]interface{}) (Hasher, error) {
	alg, ok := claims[SDAlgorithmKey]
	if !ok {
		return NewSHA256Hasher(), nil
	}

	name, ok := alg.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string", ErrUnsupportedHashAlg, SDAlgorithmKey)
	}

	return NewHasher(name)
}
