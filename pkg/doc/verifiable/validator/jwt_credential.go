/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package validator validates credentials and presentations secured as JWT: it resolves the signing
// verification method in the supplied DID documents, verifies the signature, checks dates, subject holder
// relationship, credential status and structure, and aggregates failures according to FailFast.
package validator

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

var logger = log.New("aries-framework/verifiable/validator")

//nolint:gochecknoglobals
var registeredClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "nbf": true, "iat": true, "jti": true,
}

// DecodedJWTCredential is a credential which passed validation.
type DecodedJWTCredential struct {
	Credential *verifiable.Credential
	Header     jose.Headers
	// CustomClaims are the JWT claims other than the registered ones and "vc".
	CustomClaims map[string]interface{}
	// Issuer is the document the signing key was taken from.
	Issuer *did.Doc
}

// JWTCredentialValidator validates credentials secured as JWT.
type JWTCredentialValidator struct {
	verifier verifier.SignatureVerifier
}

// NewJWTCredentialValidator creates a validator verifying signatures with v.
func NewJWTCredentialValidator(v verifier.SignatureVerifier) *JWTCredentialValidator {
	return &JWTCredentialValidator{verifier: v}
}

// Validate decodes token and runs, in order: signing key resolution among issuers, signature verification,
// expiration and issuance date checks, subject holder relationship, credential status and structure.
// The error, if any, is a *CompoundCredentialValidationError.
func (v *JWTCredentialValidator) Validate(token string, issuers []*did.Doc, failFast FailFast,
	opts ...Opt) (*DecodedJWTCredential, error) {
	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, NewCompoundError(NewValidationError(ErrDecoding, SignerNone, err))
	}

	return v.validateDecoded(tok, issuers, failFast, NewOptions(opts...))
}

// ValidateDecoded validates an already parsed credential JWT. It is used by formats wrapping a JWT, such
// as SD-JWT, whose payload was rebuilt from disclosures; the signature is verified over the original token.
func (v *JWTCredentialValidator) ValidateDecoded(tok *jwt.JSONWebToken, issuers []*did.Doc, failFast FailFast,
	opts ...Opt) (*DecodedJWTCredential, error) {
	return v.validateDecoded(tok, issuers, failFast, NewOptions(opts...))
}

func (v *JWTCredentialValidator) validateDecoded(tok *jwt.JSONWebToken, issuers []*did.Doc, failFast FailFast,
	o *Options) (*DecodedJWTCredential, error) {
	vc, err := credentialFromJWT(tok)
	if err != nil {
		return nil, NewCompoundError(err)
	}

	c := &collector{failFast: failFast}

	issuer, err := verifyJWTSignature(v.verifier, tok, issuers, SignerIssuer, o.MethodScope)
	if c.add(err) {
		return nil, c.err()
	}

	if issuer != nil && vc.Issuer.ID != issuer.ID {
		err = NewValidationError(ErrDocumentMismatch, SignerIssuer,
			fmt.Errorf("credential issuer %q is not %q", vc.Issuer.ID, issuer.ID))
		if c.add(err) {
			return nil, c.err()
		}
	}

	if issuer == nil {
		issuer = findDoc(issuers, vc.Issuer.ID)
	}

	c.errs = append(c.errs, CheckCredential(vc, issuer, failFast, o)...)

	if err = c.err(); err != nil {
		return nil, err
	}

	return &DecodedJWTCredential{
		Credential:   vc,
		Header:       tok.Headers,
		CustomClaims: customClaims(tok.Payload, "vc"),
		Issuer:       issuer,
	}, nil
}

func credentialFromJWT(tok *jwt.JSONWebToken) (*verifiable.Credential, error) {
	claims, err := verifiable.ParseJWTCredClaims(tok.Payload)
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	vc, err := claims.ToCredential()
	if err != nil {
		return nil, NewValidationError(ErrDecoding, SignerNone, err)
	}

	return vc, nil
}

// ResolveKey finds the verification method kid, a DID URL, among docs. The document is picked by the DID of
// kid; the method must belong to scope.
func ResolveKey(kid string, docs []*did.Doc, signer SignerContext, scope did.MethodScope) (*did.Doc, *jwk.JWK,
	error) {
	if kid == "" {
		return nil, nil, NewValidationError(ErrSignerURL, signer, errors.New("kid header is missing"))
	}

	signerURL, err := did.ParseDIDURL(kid)
	if err != nil {
		return nil, nil, NewValidationError(ErrSignerURL, signer, err)
	}

	doc := findDoc(docs, signerURL.DID.String())
	if doc == nil {
		return nil, nil, NewValidationError(ErrDocumentMismatch, signer,
			fmt.Errorf("no document for %s", signerURL.DID.String()))
	}

	logger.Debugf("using document %s to verify the %s proof", doc.ID, signer)

	vm, ok := doc.ResolveMethod(kid, scope)
	if !ok {
		return doc, nil, NewValidationError(ErrMethodDataLookup, signer,
			fmt.Errorf("method %s not found in scope %s", kid, scope))
	}

	key, err := vm.PublicKeyJWK()
	if err != nil {
		return doc, nil, NewValidationError(ErrMethodDataLookup, signer, err)
	}

	return doc, key, nil
}

// verifyJWTSignature verifies the token with the "kid" verification method. The document is returned once it
// was identified, even if the signature is invalid.
func verifyJWTSignature(sv verifier.SignatureVerifier, tok *jwt.JSONWebToken, docs []*did.Doc,
	signer SignerContext, scope did.MethodScope) (*did.Doc, error) {
	kid, _ := tok.Headers.KeyID()

	doc, key, err := ResolveKey(kid, docs, signer, scope)
	if err != nil {
		return doc, err
	}

	if err = tok.Verify(sv, key); err != nil {
		return doc, NewValidationError(ErrSignature, signer, err)
	}

	return doc, nil
}

func findDoc(docs []*did.Doc, id string) *did.Doc {
	for _, doc := range docs {
		if doc != nil && doc.ID == id {
			return doc
		}
	}

	return nil
}

// CheckCredential runs the checks following proof verification: expiration and issuance dates, subject holder
// relationship, status and structure. With FirstError at most one error is returned.
func CheckCredential(vc *verifiable.Credential, issuer *did.Doc, failFast FailFast, o *Options) []error {
	c := &collector{failFast: failFast}

	c.runChecks(
		func() error { return checkExpirationDate(vc, o) },
		func() error { return checkIssuanceDate(vc, o) },
		func() error { return checkSubjectHolder(vc, o) },
		func() error { return checkStatus(vc, issuer, o) },
		func() error { return checkCredentialStructure(vc) },
	)

	return c.errs
}

func checkExpirationDate(vc *verifiable.Credential, o *Options) error {
	if vc.Expired == nil {
		return nil
	}

	if earliest := o.earliestExpiry(); vc.Expired.Before(earliest) {
		return NewValidationError(ErrExpirationDate, SignerNone,
			fmt.Errorf("expires %s, before %s", vc.Expired.UTC(), earliest.UTC()))
	}

	return nil
}

func checkIssuanceDate(vc *verifiable.Credential, o *Options) error {
	if vc.Issued == nil {
		return nil
	}

	if latest := o.latestIssuance(); vc.Issued.After(latest) {
		return NewValidationError(ErrIssuanceDate, SignerNone,
			fmt.Errorf("issued %s, after %s", vc.Issued.UTC(), latest.UTC()))
	}

	return nil
}

func checkSubjectHolder(vc *verifiable.Credential, o *Options) error {
	sh := o.subjectHolder
	if sh == nil {
		return nil
	}

	required := sh.relationship == AlwaysSubject ||
		(sh.relationship == SubjectOnNonTransferable && vc.NonTransferable)

	if required && !verifiable.SubjectIsHolder(vc, sh.holder) {
		return NewValidationError(ErrSubjectHolderRelationship, SignerNone,
			fmt.Errorf("holder %q is not the subject", sh.holder))
	}

	return nil
}

func checkCredentialStructure(vc *verifiable.Credential) error {
	if err := vc.CheckStructure(); err != nil {
		return NewValidationError(ErrStructure, SignerNone, err)
	}

	return nil
}

func customClaims(payload map[string]interface{}, docClaim string) map[string]interface{} {
	custom := make(map[string]interface{})

	for k, v := range payload {
		if !registeredClaims[k] && k != docClaim {
			custom[k] = v
		}
	}

	return custom
}

// NewCompoundError aggregates errs.
func NewCompoundError(errs ...error) *CompoundCredentialValidationError {
	return &CompoundCredentialValidationError{Errors: errs}
}

// collector gathers check failures and tells when to stop.
type collector struct {
	failFast FailFast
	errs     []error
}

// add records err and reports whether validation must stop.
func (c *collector) add(err error) bool {
	if err == nil {
		return false
	}

	c.errs = append(c.errs, err)

	return c.failFast == FirstError
}

func (c *collector) runChecks(checks ...func() error) bool {
	for _, check := range checks {
		if c.add(check()) {
			return true
		}
	}

	return false
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}

	return NewCompoundError(c.errs...)
}
