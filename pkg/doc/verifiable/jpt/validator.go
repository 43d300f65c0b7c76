/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jpt

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwp"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable/validator"
)

var logger = log.New("aries-framework/verifiable/jpt")

// DecodedJPT is a JPT credential which passed validation.
type DecodedJPT struct {
	Credential *verifiable.Credential
	JWP        *jwp.JWP
	Issuer     *did.Doc
}

// CredentialValidator validates issued JPT credentials.
type CredentialValidator struct {
	verifier jwp.ProofVerifier
}

// NewCredentialValidator creates a validator verifying proofs with v.
func NewCredentialValidator(v jwp.ProofVerifier) *CredentialValidator {
	return &CredentialValidator{verifier: v}
}

// Validate decodes an issued JPT, verifies the issuer proof with the "kid" method of issuer and runs the
// credential checks. The error, if any, is a *validator.CompoundCredentialValidationError.
func (v *CredentialValidator) Validate(token string, issuer *did.Doc, failFast validator.FailFast,
	opts ...validator.Opt) (*DecodedJPT, error) {
	j, err := jwp.Decode(token)
	if err != nil {
		return nil, decodingError(err)
	}

	if j.IsPresented() {
		return nil, decodingError(errors.New("JPT is presented, expected issued form"))
	}

	return validate(j, issuer, failFast, validator.NewOptions(opts...), v.verifier.VerifyIssued)
}

// PresentationValidator validates presented JPT credentials.
type PresentationValidator struct {
	verifier jwp.ProofVerifier
}

// NewPresentationValidator creates a validator verifying proofs with v.
func NewPresentationValidator(v jwp.ProofVerifier) *PresentationValidator {
	return &PresentationValidator{verifier: v}
}

// Validate decodes a presented JPT, verifies the derived proof, checks that the presentation is bound to the
// nonce and audience of opts, then runs the credential checks over the disclosed claims.
func (v *PresentationValidator) Validate(token string, issuer *did.Doc, failFast validator.FailFast,
	opts ...validator.Opt) (*DecodedJPT, error) {
	j, err := jwp.Decode(token)
	if err != nil {
		return nil, decodingError(err)
	}

	if !j.IsPresented() {
		return nil, decodingError(errors.New("JPT is issued, expected presented form"))
	}

	o := validator.NewOptions(opts...)

	var bindingErrs []error

	if nonce := o.Nonce(); nonce != "" && j.PresentationHeader.Nonce != nonce {
		bindingErrs = append(bindingErrs, validator.NewValidationError(validator.ErrPresentationNonce,
			validator.SignerHolder, fmt.Errorf("nonce %q", j.PresentationHeader.Nonce)))
	}

	if aud := o.Audience(); aud != "" && j.PresentationHeader.Aud != aud {
		bindingErrs = append(bindingErrs, validator.NewValidationError(validator.ErrAudience,
			validator.SignerHolder, fmt.Errorf("audience %q", j.PresentationHeader.Aud)))
	}

	if len(bindingErrs) > 0 && failFast == validator.FirstError {
		return nil, validator.NewCompoundError(bindingErrs[0])
	}

	decoded, err := validate(j, issuer, failFast, o, v.verifier.VerifyPresented)

	if len(bindingErrs) == 0 {
		return decoded, err
	}

	errs := bindingErrs

	var ce *validator.CompoundCredentialValidationError
	if errors.As(err, &ce) {
		errs = append(errs, ce.Errors...)
	}

	return nil, validator.NewCompoundError(errs...)
}

func validate(j *jwp.JWP, issuer *did.Doc, failFast validator.FailFast, o *validator.Options,
	verify func(*jwp.JWP, *jwk.JWK) error) (*DecodedJPT, error) {
	vc, err := credentialFromJWP(j)
	if err != nil {
		return nil, decodingError(err)
	}

	var errs []error

	stop := func(err error) bool {
		if err == nil {
			return false
		}

		errs = append(errs, err)

		return failFast == validator.FirstError
	}

	doc, key, err := validator.ResolveKey(j.IssuerHeader.Kid, []*did.Doc{issuer}, validator.SignerIssuer,
		o.MethodScope)
	if stop(err) {
		return nil, validator.NewCompoundError(errs...)
	}

	if key != nil {
		if err = verify(j, key); err != nil && stop(validator.NewValidationError(validator.ErrSignature,
			validator.SignerIssuer, err)) {
			return nil, validator.NewCompoundError(errs...)
		}
	}

	if doc != nil && vc.Issuer.ID != doc.ID {
		if stop(validator.NewValidationError(validator.ErrDocumentMismatch, validator.SignerIssuer,
			fmt.Errorf("credential issuer %q is not %q", vc.Issuer.ID, doc.ID))) {
			return nil, validator.NewCompoundError(errs...)
		}
	}

	if vc.Status == nil && statusHidden(j) && o.Status != validator.SkipAll {
		logger.Debugf("credential status of %s is not disclosed", vc.ID)

		if stop(validator.NewValidationError(validator.ErrInvalidStatus, validator.SignerNone,
			errors.New("credential status is not disclosed"))) {
			return nil, validator.NewCompoundError(errs...)
		}
	}

	errs = append(errs, validator.CheckCredential(vc, issuer, failFast, o)...)

	if len(errs) > 0 {
		return nil, validator.NewCompoundError(errs...)
	}

	return &DecodedJPT{Credential: vc, JWP: j, Issuer: doc}, nil
}

func decodingError(err error) error {
	return validator.NewCompoundError(validator.NewValidationError(validator.ErrDecoding, validator.SignerNone, err))
}
