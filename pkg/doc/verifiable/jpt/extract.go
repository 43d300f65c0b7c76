/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jpt

import (
	"errors"
	"fmt"

	josejson "github.com/go-jose/go-jose/v3/json"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwp"
)

// Errors of ExtractIssuerFromPresentedJPT.
var (
	// ErrJWPDecoding is a token which is not a compact JWP.
	ErrJWPDecoding = errors.New("JWP decoding failed")
	// ErrNotPresented is an issued JWP given where a presented one was expected.
	ErrNotPresented = errors.New("JWP is not presented")
	// ErrMissingIssuer is a presentation disclosing no issuer.
	ErrMissingIssuer = errors.New("issuer is not disclosed")
	// ErrInvalidIssuer is an issuer claim which is not a DID.
	ErrInvalidIssuer = errors.New("issuer is not a DID")
)

// ExtractIssuerFromPresentedJPT returns the issuer DID of a presented JPT without verifying it, so that the issuer
// document can be resolved before validation. The issuer is read from the disclosed "iss" claim, then from
// "vc.issuer" or "vc.issuer.id"; the "kid" DID is not trusted for it.
func ExtractIssuerFromPresentedJPT(token string) (*did.DID, error) {
	j, err := jwp.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWPDecoding, err)
	}

	if !j.IsPresented() {
		return nil, ErrNotPresented
	}

	if len(j.IssuerHeader.Claims) != len(j.Payloads) {
		return nil, fmt.Errorf("%w: %d claims for %d payloads", ErrJWPDecoding, len(j.IssuerHeader.Claims),
			len(j.Payloads))
	}

	for _, name := range []string{"iss", vcClaimPrefix + "issuer", vcClaimPrefix + "issuer.id"} {
		issuer, ok, err := stringClaim(j, name)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		id, err := did.Parse(issuer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
		}

		return id, nil
	}

	return nil, ErrMissingIssuer
}

func stringClaim(j *jwp.JWP, name string) (string, bool, error) {
	for i, path := range j.IssuerHeader.Claims {
		if path != name || j.Payloads[i] == nil {
			continue
		}

		var value string

		if err := josejson.Unmarshal(j.Payloads[i], &value); err != nil {
			return "", false, fmt.Errorf("%w: claim %s: %v", ErrInvalidIssuer, name, err)
		}

		return value, true, nil
	}

	return "", false, nil
}
