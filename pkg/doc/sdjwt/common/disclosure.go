/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3/json"
)

const (
	objectDisclosureParts = 3
	arrayDisclosureParts  = 2
)

// ErrInvalidDisclosure is returned for a disclosure which is not a base64url encoded JSON array of salt, optional
// claim name and value.
var ErrInvalidDisclosure = errors.New("invalid disclosure")

// Disclosure reveals one concealed object property or array element.
type Disclosure struct {
	Salt string
	// ClaimName is empty for array element disclosures.
	ClaimName  string
	ClaimValue interface{}
	// Unparsed is the encoded form the digest is computed over.
	Unparsed string

	arrayElement bool
}

// NewDisclosure creates the disclosure of the object property name.
func NewDisclosure(salt, name string, value interface{}) (*Disclosure, error) {
	return newDisclosure([]interface{}{salt, name, value}, &Disclosure{Salt: salt, ClaimName: name, ClaimValue: value})
}

// NewArrayElementDisclosure creates the disclosure of an array element.
func NewArrayElementDisclosure(salt string, value interface{}) (*Disclosure, error) {
	return newDisclosure([]interface{}{salt, value}, &Disclosure{Salt: salt, ClaimValue: value, arrayElement: true})
}

func newDisclosure(parts []interface{}, d *Disclosure) (*Disclosure, error) {
	raw, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrInvalidDisclosure, err)
	}

	d.Unparsed = base64.RawURLEncoding.EncodeToString(raw)

	return d, nil
}

// ParseDisclosure decodes a disclosure. Numbers are kept as json.Number.
func ParseDisclosure(disclosure string) (*Disclosure, error) {
	raw, err := base64.RawURLEncoding.DecodeString(disclosure)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDisclosure, err)
	}

	var parts []interface{}

	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	if err = d.Decode(&parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDisclosure, err)
	}

	salt, ok := partAt(parts, 0).(string)
	if !ok {
		return nil, fmt.Errorf("%w: salt must be a string", ErrInvalidDisclosure)
	}

	switch len(parts) {
	case arrayDisclosureParts:
		return &Disclosure{Salt: salt, ClaimValue: parts[1], Unparsed: disclosure, arrayElement: true}, nil
	case objectDisclosureParts:
		name, ok := parts[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: claim name must be a string", ErrInvalidDisclosure)
		}

		if name == SDKey || name == ArrayElementDigestKey {
			return nil, fmt.Errorf("%w: reserved claim name %q", ErrInvalidDisclosure, name)
		}

		return &Disclosure{Salt: salt, ClaimName: name, ClaimValue: parts[2], Unparsed: disclosure}, nil
	default:
		return nil, fmt.Errorf("%w: %d elements", ErrInvalidDisclosure, len(parts))
	}
}

// IsArrayElement reports whether d discloses an array element rather than an object property.
func (d *Disclosure) IsArrayElement() bool {
	return d.arrayElement
}

func (d *Disclosure) String() string {
	return d.Unparsed
}

func partAt(parts []interface{}, i int) interface{} {
	if i < len(parts) {
		return parts[i]
	}

	return nil
}
