/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier validates SD-JWT credentials and key binding JWTs.
package verifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/common"
	sigverifier "github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable/validator"
)

var logger = log.New("aries-framework/sdjwt/verifier")

// Key binding JWT errors.
var (
	ErrKeyBindingJWTMissing   = errors.New("key binding JWT is missing")
	ErrKeyBindingJWTDecoding  = errors.New("key binding JWT decoding failed")
	ErrInvalidHeaderTypValue  = errors.New("invalid key binding JWT typ header")
	ErrInvalidDigest          = errors.New("key binding JWT sd_hash does not match the presentation")
	ErrInvalidNonce           = errors.New("key binding JWT nonce mismatch")
	ErrAudienceMismatch       = errors.New("key binding JWT audience mismatch")
	ErrIssuanceDate           = errors.New("key binding JWT issuance date check failed")
	ErrKeyBindingJWTSignature = errors.New("key binding JWT signature verification failed")
)

// CredentialValidator validates credentials secured as SD-JWT.
type CredentialValidator struct {
	sigVerifier sigverifier.SignatureVerifier
	jwtVerifier *validator.JWTCredentialValidator
	decoder     *common.Decoder
}

// NewCredentialValidator creates a validator verifying signatures with sv. Hashers are added to the built-in
// SHA-2 and SHA3-256 ones.
func NewCredentialValidator(sv sigverifier.SignatureVerifier, hashers ...common.Hasher) *CredentialValidator {
	return &CredentialValidator{
		sigVerifier: sv,
		jwtVerifier: validator.NewJWTCredentialValidator(sv),
		decoder:     common.NewDecoder(hashers...),
	}
}

// Validate decodes token, substitutes the disclosed claims into its payload and validates the result as a JWT
// credential. The issuer signature is verified over the JWT as issued. A key binding JWT is not checked, see
// ValidateKeyBindingJWT.
func (v *CredentialValidator) Validate(token string, issuers []*did.Doc, failFast validator.FailFast,
	opts ...validator.Opt) (*validator.DecodedJWTCredential, error) {
	sdjwt, err := common.Parse(token)
	if err != nil {
		return nil, decodingError(err)
	}

	return v.ValidateSDJWT(sdjwt, issuers, failFast, opts...)
}

// ValidateSDJWT validates an already split SD-JWT.
func (v *CredentialValidator) ValidateSDJWT(sdjwt *common.SDJWT, issuers []*did.Doc, failFast validator.FailFast,
	opts ...validator.Opt) (*validator.DecodedJWTCredential, error) {
	tok, err := v.decode(sdjwt)
	if err != nil {
		return nil, decodingError(err)
	}

	return v.jwtVerifier.ValidateDecoded(tok, issuers, failFast, opts...)
}

// Decode returns the issuer JWT of sdjwt with the disclosed claims in its payload, without verifying it.
func (v *CredentialValidator) Decode(sdjwt *common.SDJWT) (*jwt.JSONWebToken, error) {
	return v.decode(sdjwt)
}

func (v *CredentialValidator) decode(sdjwt *common.SDJWT) (*jwt.JSONWebToken, error) {
	tok, err := jwt.Parse(sdjwt.JWT)
	if err != nil {
		return nil, err
	}

	disclosures, err := sdjwt.ParsedDisclosures()
	if err != nil {
		return nil, err
	}

	payload, err := v.decoder.Decode(tok.Payload, disclosures)
	if err != nil {
		return nil, err
	}

	logger.Debugf("substituted %d disclosures into SD-JWT payload", len(disclosures))

	tok.Payload = payload

	return tok, nil
}

// KeyBindingOptions are the expectations on a key binding JWT.
type KeyBindingOptions struct {
	// Nonce is compared when not empty.
	Nonce string
	// Audience is compared when not empty.
	Audience string
	// EarliestIssuanceDate rejects older key binding JWTs when set.
	EarliestIssuanceDate *time.Time
	// LatestIssuanceDate defaults to the current time.
	LatestIssuanceDate *time.Time
	// MethodScope restricts the holder verification methods.
	MethodScope did.MethodScope
	Clock       func() time.Time
}

// ValidateKeyBindingJWT checks the key binding JWT of sdjwt: its "typ", its signature by the "kid" method of
// holder, that "sd_hash" covers exactly the presented issuer JWT and disclosures, then "nonce", "aud" and "iat".
func (v *CredentialValidator) ValidateKeyBindingJWT(sdjwt *common.SDJWT, holder *did.Doc,
	opts KeyBindingOptions) error {
	kb, err := parseKeyBindingJWT(sdjwt)
	if err != nil {
		return err
	}

	kid, _ := kb.Headers.KeyID()

	_, key, err := validator.ResolveKey(kid, []*did.Doc{holder}, validator.SignerHolder, opts.MethodScope)
	if err != nil {
		return err
	}

	return v.validateKeyBinding(sdjwt, kb, key, opts)
}

// ValidateKeyBindingJWTWithKey checks the key binding JWT of sdjwt like ValidateKeyBindingJWT, with the holder
// key known from the credential itself, such as its "cnf" claim.
func (v *CredentialValidator) ValidateKeyBindingJWTWithKey(sdjwt *common.SDJWT, key *jwk.JWK,
	opts KeyBindingOptions) error {
	kb, err := parseKeyBindingJWT(sdjwt)
	if err != nil {
		return err
	}

	return v.validateKeyBinding(sdjwt, kb, key, opts)
}

func parseKeyBindingJWT(sdjwt *common.SDJWT) (*jwt.JSONWebToken, error) {
	if sdjwt.KeyBindingJWT == "" {
		return nil, ErrKeyBindingJWTMissing
	}

	kb, err := jwt.Parse(sdjwt.KeyBindingJWT)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyBindingJWTDecoding, err)
	}

	if typ, _ := kb.Headers.Type(); typ != common.KeyBindingJWTType {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeaderTypValue, typ)
	}

	return kb, nil
}

func (v *CredentialValidator) validateKeyBinding(sdjwt *common.SDJWT, kb *jwt.JSONWebToken, key *jwk.JWK,
	opts KeyBindingOptions) error {
	if err := kb.Verify(v.sigVerifier, key); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyBindingJWTSignature, err)
	}

	claims, err := common.DecodeKeyBindingClaims(kb.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyBindingJWTDecoding, err)
	}

	issuerJWT, err := jwt.Parse(sdjwt.JWT)
	if err != nil {
		return fmt.Errorf("%w: issuer JWT: %v", ErrKeyBindingJWTDecoding, err)
	}

	hasher, err := common.HasherFromClaims(issuerJWT.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}

	if expected := hasher.EncodedDigest(sdjwt.PresentationInput()); claims.SDHash != expected {
		return fmt.Errorf("%w: %s", ErrInvalidDigest, claims.SDHash)
	}

	if opts.Nonce != "" && claims.Nonce != opts.Nonce {
		return fmt.Errorf("%w: %q", ErrInvalidNonce, claims.Nonce)
	}

	if opts.Audience != "" && claims.Audience != opts.Audience {
		return fmt.Errorf("%w: %q", ErrAudienceMismatch, claims.Audience)
	}

	return checkKeyBindingIssuance(time.Unix(claims.IssuedAt, 0), opts)
}

func checkKeyBindingIssuance(iat time.Time, opts KeyBindingOptions) error {
	latest := time.Now()

	switch {
	case opts.LatestIssuanceDate != nil:
		latest = *opts.LatestIssuanceDate
	case opts.Clock != nil:
		latest = opts.Clock()
	}

	if iat.After(latest) {
		return fmt.Errorf("%w: issued at %s, after %s", ErrIssuanceDate, iat.UTC().Format(time.RFC3339),
			latest.UTC().Format(time.RFC3339))
	}

	if opts.EarliestIssuanceDate != nil && iat.Before(*opts.EarliestIssuanceDate) {
		return fmt.Errorf("%w: issued at %s, before %s", ErrIssuanceDate, iat.UTC().Format(time.RFC3339),
			opts.EarliestIssuanceDate.UTC().Format(time.RFC3339))
	}

	return nil
}

func decodingError(err error) error {
	return validator.NewCompoundError(validator.NewValidationError(validator.ErrDecoding, validator.SignerNone, err))
}
