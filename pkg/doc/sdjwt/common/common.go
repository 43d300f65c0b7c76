/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the SD-JWT building blocks shared by issuer, holder and verifier: disclosures, the
// compact "jwt~d1~...~kb" serialization, digest hashers and the decoder substituting disclosed claims.
package common

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CombinedFormatSeparator separates the issuer JWT, the disclosures and the key binding JWT.
	CombinedFormatSeparator = "~"

	// SDAlgorithmKey is the claim naming the digest algorithm.
	SDAlgorithmKey = "_sd_alg"
	// SDKey is the claim holding the digests of concealed object properties.
	SDKey = "_sd"
	// ArrayElementDigestKey is the only key of an object replacing a concealed array element.
	ArrayElementDigestKey = "..."
	// SDHashKey is the key binding JWT claim holding the digest of the presented SD-JWT.
	SDHashKey = "sd_hash"

	// KeyBindingJWTType is the "typ" header of key binding JWTs.
	KeyBindingJWTType = "kb+jwt"
)

// ErrInvalidSDJWT is returned for a compact SD-JWT which cannot be split into its parts.
var ErrInvalidSDJWT = errors.New("invalid SD-JWT")

// SDJWT is a compact SD-JWT: the issuer signed JWT, the disclosures in presentation order and an optional key
// binding JWT.
type SDJWT struct {
	JWT           string
	Disclosures   []string
	KeyBindingJWT string
}

// Parse splits a compact SD-JWT. Both "jwt~d1~d2~" and "jwt~d1~d2~kb" are accepted, as is the issuance form
// without trailing separator; the last part is a key binding JWT only when it is a compact JWS.
func Parse(sdjwt string) (*SDJWT, error) {
	parts := strings.Split(sdjwt, CombinedFormatSeparator)

	if !isCompactJWS(parts[0]) {
		return nil, fmt.Errorf("%w: issuer JWT is not a compact JWS", ErrInvalidSDJWT)
	}

	s := &SDJWT{JWT: parts[0]}

	rest := parts[1:]

	if n := len(rest); n > 0 {
		last := rest[n-1]

		switch {
		case last == "":
			rest = rest[:n-1]
		case isCompactJWS(last):
			s.KeyBindingJWT = last
			rest = rest[:n-1]
		}
	}

	for i, d := range rest {
		if d == "" {
			return nil, fmt.Errorf("%w: empty disclosure at position %d", ErrInvalidSDJWT, i)
		}
	}

	s.Disclosures = rest

	return s, nil
}

// String renders the compact form. Without key binding JWT the result ends with the separator.
func (s *SDJWT) String() string {
	return s.PresentationInput() + s.KeyBindingJWT
}

// PresentationInput is the part of the compact form the key binding JWT "sd_hash" is computed over: the issuer
// JWT and the disclosures, each followed by the separator.
func (s *SDJWT) PresentationInput() string {
	var b strings.Builder

	b.WriteString(s.JWT)
	b.WriteString(CombinedFormatSeparator)

	for _, d := range s.Disclosures {
		b.WriteString(d)
		b.WriteString(CombinedFormatSeparator)
	}

	return b.String()
}

// ParsedDisclosures decodes every disclosure.
func (s *SDJWT) ParsedDisclosures() ([]*Disclosure, error) {
	disclosures := make([]*Disclosure, 0, len(s.Disclosures))

	for _, raw := range s.Disclosures {
		d, err := ParseDisclosure(raw)
		if err != nil {
			return nil, err
		}

		disclosures = append(disclosures, d)
	}

	return disclosures, nil
}

func isCompactJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == 3 && parts[0] != ""
}
