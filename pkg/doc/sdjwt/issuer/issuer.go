/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuer creates SD-JWTs: claims addressed by JSON pointer are replaced by the digests of salted
// disclosures before the payload is signed.
package issuer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/go-openapi/jsonpointer"
	"github.com/google/tink/go/subtle/random"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/common"
)

const defaultSaltSize = 128 / 8

var (
	// ErrInvalidPath is a JSON pointer which cannot address a concealable claim.
	ErrInvalidPath = errors.New("invalid claim path")
	// ErrReservedClaim is an attempt to conceal an SD-JWT claim.
	ErrReservedClaim = errors.New("claim cannot be concealed")
)

// Encoder conceals claims of a payload.
type Encoder struct {
	payload     map[string]interface{}
	hasher      common.Hasher
	salt        func() (string, error)
	disclosures []*common.Disclosure
}

// Opt configures an Encoder.
type Opt func(e *Encoder)

// WithHasher sets the digest algorithm, SHA-256 by default.
func WithHasher(h common.Hasher) Opt {
	return func(e *Encoder) {
		e.hasher = h
	}
}

// WithSaltFunc sets the salt generator, 128 random bits by default.
func WithSaltFunc(salt func() (string, error)) Opt {
	return func(e *Encoder) {
		e.salt = salt
	}
}

// NewEncoder creates an encoder over a copy of claims, which must marshal to a JSON object.
func NewEncoder(claims interface{}, opts ...Opt) (*Encoder, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}

	payload, err := jwt.PayloadToMap(raw)
	if err != nil {
		return nil, err
	}

	e := &Encoder{payload: payload, hasher: common.NewSHA256Hasher(), salt: generateSalt}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Conceal replaces the claim at path, a JSON pointer such as "/degree" or "/nationalities/1", by the digest of
// its disclosure. Nested claims are concealed before their parents for recursive disclosures.
func (e *Encoder) Conceal(path string) (*common.Disclosure, error) {
	parent, last, err := e.parent(path)
	if err != nil {
		return nil, err
	}

	salt, err := e.salt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	var d *common.Disclosure

	switch p := parent.(type) {
	case map[string]interface{}:
		if last == common.SDKey || last == common.SDAlgorithmKey {
			return nil, fmt.Errorf("%w: %s", ErrReservedClaim, last)
		}

		value, ok := p[last]
		if !ok {
			return nil, fmt.Errorf("%w: %s not found", ErrInvalidPath, path)
		}

		if d, err = common.NewDisclosure(salt, last, value); err != nil {
			return nil, err
		}

		delete(p, last)

		if err = e.addDigests(p, e.hasher.EncodedDigest(d.Unparsed)); err != nil {
			return nil, err
		}
	case []interface{}:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(p) {
			return nil, fmt.Errorf("%w: %s is not an index of the array", ErrInvalidPath, path)
		}

		if d, err = common.NewArrayElementDisclosure(salt, p[i]); err != nil {
			return nil, err
		}

		p[i] = map[string]interface{}{common.ArrayElementDigestKey: e.hasher.EncodedDigest(d.Unparsed)}
	default:
		return nil, fmt.Errorf("%w: parent of %s is not an object or array", ErrInvalidPath, path)
	}

	e.disclosures = append(e.disclosures, d)

	return d, nil
}

// AddDecoys adds n digests of nothing to the object at path, "" being the payload itself.
func (e *Encoder) AddDecoys(path string, n int) error {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	target, _, err := ptr.Get(e.payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	obj, ok := target.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: decoys need an object at %q", ErrInvalidPath, path)
	}

	decoys := make([]string, 0, n)

	for i := 0; i < n; i++ {
		salt, err := e.salt()
		if err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}

		decoys = append(decoys, e.hasher.EncodedDigest(salt))
	}

	return e.addDigests(obj, decoys...)
}

// AddHolderKey binds the SD-JWT to a holder key with the "cnf" claim.
func (e *Encoder) AddHolderKey(key *jwk.JWK) error {
	keyMap, err := jwt.PayloadToMap(key)
	if err != nil {
		return fmt.Errorf("convert holder key: %w", err)
	}

	e.payload["cnf"] = map[string]interface{}{"jwk": keyMap}

	return nil
}

// Payload returns the payload as it will be signed.
func (e *Encoder) Payload() map[string]interface{} {
	e.payload[common.SDAlgorithmKey] = e.hasher.AlgName()

	return e.payload
}

// Disclosures returns the disclosures in concealment order.
func (e *Encoder) Disclosures() []*common.Disclosure {
	return e.disclosures
}

// Sign signs the payload and returns the SD-JWT carrying every disclosure.
func (e *Encoder) Sign(headers jose.Headers, signer jose.Signer) (*common.SDJWT, error) {
	token, err := jwt.NewSigned(e.Payload(), headers, signer)
	if err != nil {
		return nil, fmt.Errorf("sign SD-JWT: %w", err)
	}

	serialized, err := token.Serialize(false)
	if err != nil {
		return nil, err
	}

	disclosures := make([]string, len(e.disclosures))

	for i, d := range e.disclosures {
		disclosures[i] = d.Unparsed
	}

	return &common.SDJWT{JWT: serialized, Disclosures: disclosures}, nil
}

func (e *Encoder) parent(path string) (interface{}, string, error) {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	tokens := ptr.DecodedTokens()
	if len(tokens) == 0 {
		return nil, "", fmt.Errorf("%w: the payload itself cannot be concealed", ErrInvalidPath)
	}

	parentPtr, err := jsonpointer.New(path[:strings.LastIndex(path, "/")])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	parent, _, err := parentPtr.Get(e.payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	return parent, tokens[len(tokens)-1], nil
}

// addDigests keeps "_sd" sorted so that its order does not reveal the order of the claims.
func (e *Encoder) addDigests(obj map[string]interface{}, digests ...string) error {
	var existing []string

	if raw, ok := obj[common.SDKey]; ok {
		values, ok := raw.([]interface{})
		if !ok {
			return fmt.Errorf("%w: %s is not an array", ErrReservedClaim, common.SDKey)
		}

		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s holds a non-string", ErrReservedClaim, common.SDKey)
			}

			existing = append(existing, s)
		}
	}

	existing = append(existing, digests...)
	sort.Strings(existing)

	values := make([]interface{}, len(existing))
	for i, s := range existing {
		values[i] = s
	}

	obj[common.SDKey] = values

	return nil
}

func generateSalt() (string, error) {
	return base64.RawURLEncoding.EncodeToString(random.GetRandomBytes(defaultSaltSize)), nil
}
