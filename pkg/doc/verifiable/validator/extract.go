/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"fmt"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

// ExtractIssuer returns the DID of the credential issuer, so that its document can be resolved before
// validation.
func ExtractIssuer(vc *verifiable.Credential) (*did.DID, error) {
	issuer, err := did.Parse(vc.Issuer.ID)
	if err != nil {
		return nil, fmt.Errorf("credential issuer is not a DID: %w", err)
	}

	return issuer, nil
}

// ExtractIssuerFromJWT returns the issuer DID of a credential JWT without verifying it.
func ExtractIssuerFromJWT(token string) (*did.DID, error) {
	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	vc, err := credentialFromJWT(tok)
	if err != nil {
		return nil, err
	}

	return ExtractIssuer(vc)
}

// ExtractHolder returns the holder DID of a presentation JWT without verifying it.
func ExtractHolder(token string) (*did.DID, error) {
	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	claims, err := verifiable.ParseJWTPresClaims(tok.Payload)
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	vp, err := claims.ToPresentation()
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	holder, err := did.Parse(vp.Holder)
	if err != nil {
		return nil, fmt.Errorf("presentation holder is not a DID: %w", err)
	}

	return holder, nil
}
