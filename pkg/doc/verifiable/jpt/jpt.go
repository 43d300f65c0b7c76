/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jpt secures verifiable credentials as JSON Web Proof tokens: every leaf of the JWT credential claim
// set is a separate JWP payload, so that holders can disclose claims selectively.
package jpt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwp"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

// TypeJPT is the "typ" of issued credentials.
const TypeJPT = "JPT"

const vcClaimPrefix = "vc."

// Issue secures vc as an issued JPT signed by signer with the verification method kid.
func Issue(vc *verifiable.Credential, kid string, signer jwp.ProofSigner) (string, error) {
	claims, err := vc.JWTClaims(true)
	if err != nil {
		return "", err
	}

	payload, err := jwt.PayloadToMap(claims)
	if err != nil {
		return "", fmt.Errorf("convert credential claims: %w", err)
	}

	flat, err := Flatten(payload)
	if err != nil {
		return "", err
	}

	issued, err := jwp.Sign(jwp.IssuerProtectedHeader{Kid: kid, Typ: TypeJPT, Claims: flat.Paths}, flat.Values, signer)
	if err != nil {
		return "", err
	}

	return issued.Encode()
}

// Present derives a presented JPT disclosing the claims whose path equals or is nested under one of disclose,
// for example "vc.credentialSubject.degree" or "iss".
func Present(issuedJPT string, disclose []string, header jwp.PresentationProtectedHeader,
	issuerKey *jwk.JWK) (string, error) {
	issued, err := jwp.Decode(issuedJPT)
	if err != nil {
		return "", err
	}

	if issued.IsPresented() {
		return "", errors.New("JPT is already presented")
	}

	var indexes []int

	for i, path := range issued.IssuerHeader.Claims {
		if disclosed(path, disclose) {
			indexes = append(indexes, i)
		}
	}

	presented, err := jwp.Present(issued, indexes, header, issuerKey)
	if err != nil {
		return "", err
	}

	return presented.Encode()
}

func disclosed(path string, disclose []string) bool {
	for _, d := range disclose {
		if path == d || strings.HasPrefix(path, d+".") || strings.HasPrefix(path, d+"[") {
			return true
		}
	}

	return false
}

// credentialFromJWP rebuilds the credential from the disclosed payloads.
func credentialFromJWP(j *jwp.JWP) (*verifiable.Credential, error) {
	payload, err := Unflatten(j.IssuerHeader.Claims, j.Payloads)
	if err != nil {
		return nil, err
	}

	claims, err := verifiable.ParseJWTCredClaims(payload)
	if err != nil {
		return nil, err
	}

	return claims.ToCredential()
}

// statusHidden reports whether the issuer secured a credentialStatus the holder did not disclose.
func statusHidden(j *jwp.JWP) bool {
	const statusPrefix = vcClaimPrefix + "credentialStatus"

	var issued, shown bool

	for i, path := range j.IssuerHeader.Claims {
		if path != statusPrefix && !strings.HasPrefix(path, statusPrefix+".") {
			continue
		}

		issued = true

		if i < len(j.Payloads) && j.Payloads[i] != nil {
			shown = true
		}
	}

	return issued && !shown
}
