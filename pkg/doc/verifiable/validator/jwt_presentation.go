/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"fmt"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

// DecodedJWTPresentation is a presentation which passed validation.
type DecodedJWTPresentation struct {
	Presentation *verifiable.Presentation
	Header       jose.Headers
	Nonce        string
	Audience     []string
	CustomClaims map[string]interface{}
	// Holder is the document the signing key was taken from.
	Holder *did.Doc
	// Credentials are the validated JWT credentials, in presentation order. Filled by ValidatePresentation.
	Credentials []*DecodedJWTCredential
}

// JWTPresentationValidator validates presentations secured as JWT.
type JWTPresentationValidator struct {
	verifier   verifier.SignatureVerifier
	credential *JWTCredentialValidator
}

// NewJWTPresentationValidator creates a validator verifying holder and issuer signatures with v.
func NewJWTPresentationValidator(v verifier.SignatureVerifier) *JWTPresentationValidator {
	return &JWTPresentationValidator{verifier: v, credential: NewJWTCredentialValidator(v)}
}

// Validate checks the presentation envelope only: holder signature, "exp" and "nbf", audience and structure.
// The error, if any, is a *CompoundCredentialValidationError.
func (v *JWTPresentationValidator) Validate(token string, holder *did.Doc, failFast FailFast,
	opts ...Opt) (*DecodedJWTPresentation, error) {
	decoded, errs := v.validateEnvelope(token, holder, failFast, NewOptions(opts...))
	if len(errs) > 0 {
		return nil, NewCompoundError(errs...)
	}

	return decoded, nil
}

// ValidatePresentation validates the envelope with presOpts and every embedded credential against issuers
// with credOpts. Failures are reported in a *CompoundJWTPresentationValidationError whose credential errors
// are keyed by position in the presentation.
func (v *JWTPresentationValidator) ValidatePresentation(token string, holder *did.Doc, issuers []*did.Doc,
	presOpts, credOpts []Opt, failFast FailFast) (*DecodedJWTPresentation, error) {
	result := &CompoundJWTPresentationValidationError{
		CredentialErrors: make(map[int]*CompoundCredentialValidationError),
	}

	decoded, errs := v.validateEnvelope(token, holder, failFast, NewOptions(presOpts...))
	result.PresentationErrors = errs

	if decoded == nil || (failFast == FirstError && len(errs) > 0) {
		return nil, result
	}

	credentials := decoded.Presentation.Credentials()
	validated := make([]*verifiable.Credential, len(credentials))
	decoded.Credentials = make([]*DecodedJWTCredential, len(credentials))

	for i, c := range credentials {
		dc, err := v.validateCredential(c, issuers, failFast, credOpts)
		if err != nil {
			result.CredentialErrors[i] = asCompound(err)

			if failFast == FirstError {
				return nil, result
			}

			continue
		}

		decoded.Credentials[i] = dc
		validated[i] = dc.Credential
	}

	for _, violation := range verifiable.CheckNonTransferable(decoded.Presentation, validated, failFast == FirstError) {
		err := NewValidationError(ErrNonTransferable, SignerHolder,
			fmt.Errorf("holder %q is not the subject of %s", decoded.Presentation.Holder, violation.Credential.ID))

		ce, ok := result.CredentialErrors[violation.Position]
		if !ok {
			ce = NewCompoundError()
			result.CredentialErrors[violation.Position] = ce
		}

		ce.Errors = append(ce.Errors, err)
	}

	if !result.empty() {
		return nil, result
	}

	return decoded, nil
}

func (v *JWTPresentationValidator) validateCredential(c interface{}, issuers []*did.Doc, failFast FailFast,
	credOpts []Opt) (*DecodedJWTCredential, error) {
	token, ok := c.(string)
	if !ok {
		return nil, NewCompoundError(NewValidationError(ErrDecoding, SignerNone,
			fmt.Errorf("credential of type %T is not a JWT", c)))
	}

	return v.credential.Validate(token, issuers, failFast, credOpts...)
}

func (v *JWTPresentationValidator) validateEnvelope(token string, holder *did.Doc, failFast FailFast,
	o *Options) (*DecodedJWTPresentation, []error) {
	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, []error{NewValidationError(ErrDecoding, SignerNone, err)}
	}

	claims, err := verifiable.ParseJWTPresClaims(tok.Payload)
	if err != nil {
		return nil, []error{NewValidationError(ErrDecoding, SignerNone, err)}
	}

	vp, err := claims.ToPresentation()
	if err != nil {
		return nil, []error{NewValidationError(ErrDecoding, SignerNone, err)}
	}

	c := &collector{failFast: failFast}

	doc, err := verifyJWTSignature(v.verifier, tok, []*did.Doc{holder}, SignerHolder, o.MethodScope)
	if c.add(err) {
		return nil, c.errs
	}

	if doc != nil && vp.Holder != doc.ID {
		err = NewValidationError(ErrDocumentMismatch, SignerHolder,
			fmt.Errorf("presentation holder %q is not %q", vp.Holder, doc.ID))
		if c.add(err) {
			return nil, c.errs
		}
	}

	if stop := c.runChecks(
		func() error { return checkPresentationDates(claims.Claims, o) },
		func() error { return checkAudience(claims.Claims, o) },
		func() error {
			if err := vp.CheckStructure(); err != nil {
				return NewValidationError(ErrStructure, SignerNone, err)
			}

			return nil
		},
	); stop {
		return nil, c.errs
	}

	return &DecodedJWTPresentation{
		Presentation: vp,
		Header:       tok.Headers,
		Nonce:        claims.Nonce,
		Audience:     claims.Audience,
		CustomClaims: customClaims(tok.Payload, "vp"),
		Holder:       doc,
	}, c.errs
}

func checkPresentationDates(claims *jwt.Claims, o *Options) error {
	now := o.now()

	if claims.Expiry != nil && claims.Expiry.Time().Before(o.earliestExpiry()) {
		return NewValidationError(ErrExpirationDate, SignerHolder,
			fmt.Errorf("presentation expired at %s", claims.Expiry.Time().UTC()))
	}

	if claims.NotBefore != nil && claims.NotBefore.Time().After(now) {
		return NewValidationError(ErrIssuanceDate, SignerHolder,
			fmt.Errorf("presentation is not valid before %s", claims.NotBefore.Time().UTC()))
	}

	if claims.IssuedAt != nil && claims.IssuedAt.Time().After(o.latestIssuance()) {
		return NewValidationError(ErrIssuanceDate, SignerHolder,
			fmt.Errorf("presentation issued at %s", claims.IssuedAt.Time().UTC()))
	}

	return nil
}

func checkAudience(claims *jwt.Claims, o *Options) error {
	if o.presentationAud == "" {
		return nil
	}

	for _, aud := range claims.Audience {
		if aud == o.presentationAud {
			return nil
		}
	}

	return NewValidationError(ErrAudience, SignerHolder,
		fmt.Errorf("%q is not in %v", o.presentationAud, []string(claims.Audience)))
}

func asCompound(err error) *CompoundCredentialValidationError {
	if ce, ok := err.(*CompoundCredentialValidationError); ok { //nolint:errorlint
		return ce
	}

	return NewCompoundError(err)
}
