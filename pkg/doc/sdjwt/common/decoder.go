/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// Decoding errors.
var (
	// ErrUnusedDisclosure is a disclosure whose digest appears nowhere in the payload.
	ErrUnusedDisclosure = errors.New("disclosure digest not found in SD-JWT payload")
	// ErrDuplicateDigest is a digest found twice in the payload or in disclosed values.
	ErrDuplicateDigest = errors.New("digest appears more than once")
	// ErrDuplicateDisclosure is a disclosure presented twice.
	ErrDuplicateDisclosure = errors.New("disclosure presented more than once")
	// ErrClaimCollision is a disclosed property whose name is already present in the object.
	ErrClaimCollision = errors.New("disclosed claim name collides with an existing claim")
	// ErrDisclosureType is an array element disclosure referenced from "_sd" or an object property disclosure
	// referenced from an array.
	ErrDisclosureType = errors.New("disclosure does not match the digest position")
	// ErrInvalidDigests is a malformed "_sd" array or array element digest.
	ErrInvalidDigests = errors.New("invalid digests")
)

// Decoder substitutes disclosed values into SD-JWT payloads.
type Decoder struct {
	hashers map[string]Hasher
}

// NewDecoder creates a decoder knowing the built-in hashers and the given ones.
func NewDecoder(hashers ...Hasher) *Decoder {
	d := &Decoder{hashers: map[string]Hasher{}}

	for _, name := range []string{SHA256, SHA384, SHA512, SHA3_256} {
		h, _ := NewHasher(name) //nolint:errcheck
		d.hashers[name] = h
	}

	for _, h := range hashers {
		d.hashers[h.AlgName()] = h
	}

	return d
}

// Decode returns a copy of payload with every disclosed property and array element in place of its digest.
// Undisclosed digests are dropped along with "_sd" and "_sd_alg". Every disclosure must be referenced exactly
// once by the payload or by another disclosed value.
func (d *Decoder) Decode(payload map[string]interface{}, disclosures []*Disclosure) (map[string]interface{}, error) {
	alg := SHA256

	if raw, ok := payload[SDAlgorithmKey]; ok {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrUnsupportedHashAlg, SDAlgorithmKey)
		}

		alg = name
	}

	hasher, ok := d.hashers[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHashAlg, alg)
	}

	st := &decodeState{
		byDigest: make(map[string]*Disclosure, len(disclosures)),
		seen:     map[string]bool{},
		used:     map[string]bool{},
	}

	for _, disclosure := range disclosures {
		digest := hasher.EncodedDigest(disclosure.Unparsed)

		if _, ok := st.byDigest[digest]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDisclosure, disclosure.Unparsed)
		}

		st.byDigest[digest] = disclosure
	}

	decoded, err := st.object(payload)
	if err != nil {
		return nil, err
	}

	delete(decoded, SDAlgorithmKey)

	if len(st.used) != len(st.byDigest) {
		var unused []string

		for digest, disclosure := range st.byDigest {
			if !st.used[digest] {
				unused = append(unused, disclosure.Unparsed)
			}
		}

		sort.Strings(unused)

		return nil, fmt.Errorf("%w: %v", ErrUnusedDisclosure, unused)
	}

	return decoded, nil
}

type decodeState struct {
	byDigest map[string]*Disclosure
	seen     map[string]bool
	used     map[string]bool
}

func (st *decodeState) object(obj map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(obj))

	keys := maps.Keys(obj)
	sort.Strings(keys)

	for _, k := range keys {
		if k == SDKey {
			continue
		}

		v, err := st.value(obj[k])
		if err != nil {
			return nil, err
		}

		out[k] = v
	}

	rawDigests, ok := obj[SDKey]
	if !ok {
		return out, nil
	}

	digests, ok := rawDigests.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not an array", ErrInvalidDigests, SDKey, rawDigests)
	}

	for _, raw := range digests {
		disclosure, digest, err := st.lookup(raw)
		if err != nil {
			return nil, err
		}

		if disclosure == nil {
			continue
		}

		if disclosure.IsArrayElement() {
			return nil, fmt.Errorf("%w: array element disclosure %s in %s", ErrDisclosureType, digest, SDKey)
		}

		if _, exists := out[disclosure.ClaimName]; exists {
			return nil, fmt.Errorf("%w: %q", ErrClaimCollision, disclosure.ClaimName)
		}

		v, err := st.value(disclosure.ClaimValue)
		if err != nil {
			return nil, err
		}

		out[disclosure.ClaimName] = v
	}

	return out, nil
}

func (st *decodeState) array(arr []interface{}) ([]interface{}, error) {
	out := make([]interface{}, 0, len(arr))

	for _, e := range arr {
		if raw, ok := arrayElementDigest(e); ok {
			disclosure, digest, err := st.lookup(raw)
			if err != nil {
				return nil, err
			}

			if disclosure == nil {
				continue
			}

			if !disclosure.IsArrayElement() {
				return nil, fmt.Errorf("%w: property disclosure %s in array", ErrDisclosureType, digest)
			}

			e = disclosure.ClaimValue
		}

		v, err := st.value(e)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

func (st *decodeState) value(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case map[string]interface{}:
		return st.object(tv)
	case []interface{}:
		return st.array(tv)
	default:
		return v, nil
	}
}

// lookup returns the disclosure of a digest, nil for decoys and concealed claims.
func (st *decodeState) lookup(raw interface{}) (*Disclosure, string, error) {
	digest, ok := raw.(string)
	if !ok {
		return nil, "", fmt.Errorf("%w: digest is %T, not a string", ErrInvalidDigests, raw)
	}

	if st.seen[digest] {
		return nil, "", fmt.Errorf("%w: %s", ErrDuplicateDigest, digest)
	}

	st.seen[digest] = true

	disclosure, ok := st.byDigest[digest]
	if !ok {
		return nil, digest, nil
	}

	st.used[digest] = true

	return disclosure, digest, nil
}

func arrayElementDigest(e interface{}) (interface{}, bool) {
	m, ok := e.(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil, false
	}

	digest, ok := m[ArrayElementDigestKey]

	return digest, ok
}
