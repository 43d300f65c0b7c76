/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Validation error kinds. Every error reported by the validators matches one of them with errors.Is.
var (
	// ErrDecoding is a malformed token, claim set or document; it always ends the validation.
	ErrDecoding = errors.New("decoding error")
	// ErrSignerURL is a "kid" which is not a DID URL.
	ErrSignerURL = errors.New("signer URL is not a DID URL")
	// ErrDocumentMismatch is a signer DID not matching any of the supplied documents.
	ErrDocumentMismatch = errors.New("signer DID does not match the supplied DID document")
	// ErrMethodDataLookup is a verification method that cannot be found or has no usable key.
	ErrMethodDataLookup = errors.New("verification method lookup failed")
	// ErrSignature is a failed signature or proof verification.
	ErrSignature = errors.New("signature verification failed")
	// ErrExpirationDate is a credential expiring before the earliest accepted expiry date.
	ErrExpirationDate = errors.New("expiration date check failed")
	// ErrIssuanceDate is a credential issued after the latest accepted issuance date.
	ErrIssuanceDate = errors.New("issuance date check failed")
	// ErrSubjectHolderRelationship is a subject that is not the expected holder.
	ErrSubjectHolderRelationship = errors.New("subject holder relationship check failed")
	// ErrInvalidStatus is a malformed or unsupported credentialStatus.
	ErrInvalidStatus = errors.New("invalid credential status")
	// ErrRevoked is a credential revoked by its status mechanism.
	ErrRevoked = errors.New("credential has been revoked")
	// ErrSuspended is a credential suspended by its status mechanism.
	ErrSuspended = errors.New("credential has been suspended")
	// ErrOutsideTimeframe is a credential validated outside of its validity timeframe.
	ErrOutsideTimeframe = errors.New("credential is outside of its validity timeframe")
	// ErrStructure is a credential or presentation failing the structural checks.
	ErrStructure = errors.New("structure check failed")
	// ErrNonTransferable is a nonTransferable credential presented by someone other than its subject.
	ErrNonTransferable = errors.New("non-transferable credential presented by another holder")
	// ErrPresentationNonce is a presentation bound to another nonce.
	ErrPresentationNonce = errors.New("presentation nonce mismatch")
	// ErrAudience is a presentation addressed to another audience.
	ErrAudience = errors.New("presentation audience mismatch")
)

// SignerContext tells whose signature an error refers to.
type SignerContext int

const (
	// SignerNone is used for errors which are not about a signer.
	SignerNone SignerContext = iota
	// SignerIssuer is the credential issuer.
	SignerIssuer
	// SignerHolder is the presentation holder.
	SignerHolder
)

func (s SignerContext) String() string {
	switch s {
	case SignerIssuer:
		return "issuer"
	case SignerHolder:
		return "holder"
	default:
		return ""
	}
}

// ValidationError is a single failed check.
type ValidationError struct {
	Kind   error
	Signer SignerContext
	Err    error
}

// NewValidationError creates an error of kind for signer.
func NewValidationError(kind error, signer SignerContext, err error) *ValidationError {
	return &ValidationError{Kind: kind, Signer: signer, Err: err}
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Error()

	if e.Signer != SignerNone {
		msg = fmt.Sprintf("%s (%s)", msg, e.Signer)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap matches both the kind and the cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// CompoundCredentialValidationError holds the failed checks of one credential: the first one with
// FirstError, all of them with AllErrors.
type CompoundCredentialValidationError struct {
	Errors []error
}

func (e *CompoundCredentialValidationError) Error() string {
	return "[" + joinErrors(e.Errors) + "]"
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *CompoundCredentialValidationError) Unwrap() []error {
	return e.Errors
}

// CompoundJWTPresentationValidationError holds the failed checks of a presentation envelope and of its
// credentials, keyed by credential position.
type CompoundJWTPresentationValidationError struct {
	PresentationErrors []error
	CredentialErrors   map[int]*CompoundCredentialValidationError
}

func (e *CompoundJWTPresentationValidationError) Error() string {
	var parts []string

	if len(e.PresentationErrors) > 0 {
		parts = append(parts, "presentation validation errors: ["+joinErrors(e.PresentationErrors)+"]")
	}

	positions := maps.Keys(e.CredentialErrors)
	slices.Sort(positions)

	for _, pos := range positions {
		parts = append(parts, fmt.Sprintf("credential num. %d errors: %s", pos, e.CredentialErrors[pos].Error()))
	}

	return strings.Join(parts, "; ")
}

// Unwrap exposes presentation and credential errors to errors.Is and errors.As.
func (e *CompoundJWTPresentationValidationError) Unwrap() []error {
	errs := append([]error{}, e.PresentationErrors...)

	positions := maps.Keys(e.CredentialErrors)
	slices.Sort(positions)

	for _, pos := range positions {
		errs = append(errs, e.CredentialErrors[pos])
	}

	return errs
}

func (e *CompoundJWTPresentationValidationError) empty() bool {
	return len(e.PresentationErrors) == 0 && len(e.CredentialErrors) == 0
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))

	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "; ")
}
