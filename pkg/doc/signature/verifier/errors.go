/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a signature verification failure.
type ErrorKind int

// Signature verification error kinds.
const (
	Unspecified ErrorKind = iota
	UnsupportedAlg
	UnsupportedKeyType
	UnsupportedKeyParams
	KeyDecodingFailure
	InvalidSignature
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedAlg:
		return "unsupported alg"
	case UnsupportedKeyType:
		return "unsupported key type"
	case UnsupportedKeyParams:
		return "unsupported key params"
	case KeyDecodingFailure:
		return "key decoding failure"
	case InvalidSignature:
		return "invalid signature"
	default:
		return "unspecified failure"
	}
}

// Sentinel errors matching each ErrorKind through errors.Is.
var (
	ErrUnspecified          = &Error{Kind: Unspecified}
	ErrUnsupportedAlg       = &Error{Kind: UnsupportedAlg}
	ErrUnsupportedKeyType   = &Error{Kind: UnsupportedKeyType}
	ErrUnsupportedKeyParams = &Error{Kind: UnsupportedKeyParams}
	ErrKeyDecodingFailure   = &Error{Kind: KeyDecodingFailure}
	ErrInvalidSignature     = &Error{Kind: InvalidSignature}
)

// Error is returned by every SignatureVerifier.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "signature verification failed: " + e.Kind.String()
	}

	return fmt.Sprintf("signature verification failed: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
