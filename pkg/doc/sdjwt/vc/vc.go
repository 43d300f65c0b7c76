/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vc validates SD-JWT VCs: SD-JWTs typed "vc+sd-jwt" or "dc+sd-jwt" carrying a "vct" and an IETF
// token status list reference.
package vc

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/tokenstatuslist"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/common"
	sdverifier "github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/verifier"
	sigverifier "github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable/validator"
)

var logger = log.New("aries-framework/sdjwt/vc")

// Media types of SD-JWT VCs.
const (
	TypeVCSDJWT = "vc+sd-jwt"
	TypeDCSDJWT = "dc+sd-jwt"
)

var (
	// ErrInvalidType is a "typ" header other than TypeVCSDJWT or TypeDCSDJWT.
	ErrInvalidType = errors.New("invalid SD-JWT VC typ header")
	// ErrMissingVCT is a missing or non-string "vct" claim.
	ErrMissingVCT = errors.New("vct claim is missing")
	// ErrMissingIssuer is a missing or non-string "iss" claim.
	ErrMissingIssuer = errors.New("iss claim is missing")
	// ErrInvalidClaim is a registered claim of the wrong type.
	ErrInvalidClaim = errors.New("invalid claim")
	// ErrInvalidStatusListToken is a status list token which cannot be trusted.
	ErrInvalidStatusListToken = errors.New("invalid status list token")
)

// Credential is a validated SD-JWT VC with its disclosures applied.
type Credential struct {
	Header jose.Headers
	// Claims are the disclosed claims, registered ones included.
	Claims    map[string]interface{}
	Issuer    string
	VCT       string
	Subject   string
	IssuedAt  *time.Time
	NotBefore *time.Time
	ExpiresAt *time.Time
	// HolderKey is the "cnf" key the holder proves possession of with a key binding JWT.
	HolderKey *jwk.JWK
	Status    *tokenstatuslist.Reference
	// IssuerDoc is the document the signing key was taken from.
	IssuerDoc *did.Doc
}

// Options holds the SD-JWT VC validation settings.
type Options struct {
	Status      validator.StatusCheck
	MethodScope did.MethodScope
	Clock       func() time.Time

	statusLists map[string]*tokenstatuslist.StatusList
}

// Opt configures Options.
type Opt func(opts *Options)

// WithStatusCheck sets the status check policy.
func WithStatusCheck(check validator.StatusCheck) Opt {
	return func(opts *Options) {
		opts.Status = check
	}
}

// WithMethodScope restricts the issuer verification methods to a relationship.
func WithMethodScope(scope did.MethodScope) Opt {
	return func(opts *Options) {
		opts.MethodScope = scope
	}
}

// WithClock sets the clock used for "now".
func WithClock(clock func() time.Time) Opt {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithStatusList supplies the status list published at uri.
func WithStatusList(uri string, list *tokenstatuslist.StatusList) Opt {
	return func(opts *Options) {
		opts.statusLists[uri] = list
	}
}

func newOptions(opts []Opt) *Options {
	o := &Options{
		Status:      validator.Strict,
		MethodScope: did.ScopeAny,
		Clock:       time.Now,
		statusLists: map[string]*tokenstatuslist.StatusList{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Validator validates SD-JWT VCs.
type Validator struct {
	sigVerifier sigverifier.SignatureVerifier
	sdjwt       *sdverifier.CredentialValidator
}

// NewValidator creates a validator verifying signatures with sv. Hashers are added to the built-in ones.
func NewValidator(sv sigverifier.SignatureVerifier, hashers ...common.Hasher) *Validator {
	return &Validator{
		sigVerifier: sv,
		sdjwt:       sdverifier.NewCredentialValidator(sv, hashers...),
	}
}

// Validate decodes token and runs, in order: the "typ", "iss" and "vct" checks, signing key resolution among
// issuers, signature verification, the "exp", "nbf" and "iat" checks, and the token status list check.
// The error, if any, is a *validator.CompoundCredentialValidationError.
func (v *Validator) Validate(token string, issuers []*did.Doc, failFast validator.FailFast,
	opts ...Opt) (*Credential, error) {
	sdjwt, err := common.Parse(token)
	if err != nil {
		return nil, decodingError(err)
	}

	return v.ValidateSDJWT(sdjwt, issuers, failFast, opts...)
}

// ValidateSDJWT validates an already split SD-JWT VC. A key binding JWT is not checked, see
// ValidateKeyBindingJWT.
func (v *Validator) ValidateSDJWT(sdjwt *common.SDJWT, issuers []*did.Doc, failFast validator.FailFast,
	opts ...Opt) (*Credential, error) {
	o := newOptions(opts)

	tok, err := v.sdjwt.Decode(sdjwt)
	if err != nil {
		return nil, decodingError(err)
	}

	cred, claimErrs := readCredential(tok)

	c := &collector{failFast: failFast}

	for _, err = range claimErrs {
		if c.add(err) {
			return nil, c.err()
		}
	}

	if c.add(v.verifySignature(tok, cred, issuers, o)) {
		return nil, c.err()
	}

	if c.runChecks(
		func() error { return checkDates(cred, o) },
		func() error { return checkStatus(cred, o) },
	) {
		return nil, c.err()
	}

	if err = c.err(); err != nil {
		return nil, err
	}

	return cred, nil
}

// ValidateKeyBindingJWT checks the key binding JWT of sdjwt against the "cnf" key of cred.
func (v *Validator) ValidateKeyBindingJWT(sdjwt *common.SDJWT, cred *Credential,
	opts sdverifier.KeyBindingOptions) error {
	if cred.HolderKey == nil {
		return fmt.Errorf("%w: credential has no cnf key", sdverifier.ErrKeyBindingJWTSignature)
	}

	return v.sdjwt.ValidateKeyBindingJWTWithKey(sdjwt, cred.HolderKey, opts)
}

// ValidateStatusListToken verifies a status list token signed by one of issuers and returns its list. The "sub"
// claim must be uri, the URI the referencing credential points to.
func (v *Validator) ValidateStatusListToken(token, uri string, issuers []*did.Doc,
	opts ...Opt) (*tokenstatuslist.StatusList, error) {
	o := newOptions(opts)

	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatusListToken, err)
	}

	if typ, _ := tok.Headers.Type(); typ != tokenstatuslist.TokenType {
		return nil, fmt.Errorf("%w: typ %q", ErrInvalidStatusListToken, typ)
	}

	kid, _ := tok.Headers.KeyID()

	_, key, err := validator.ResolveKey(kid, issuers, validator.SignerIssuer, o.MethodScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatusListToken, err)
	}

	if err = tok.Verify(v.sigVerifier, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatusListToken, err)
	}

	if sub, _ := tok.Payload["sub"].(string); sub != uri {
		return nil, fmt.Errorf("%w: sub %q is not %q", ErrInvalidStatusListToken, sub, uri)
	}

	exp, err := numericDate(tok.Payload, "exp")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatusListToken, err)
	}

	if exp != nil && !o.Clock().Before(*exp) {
		return nil, fmt.Errorf("%w: expired at %s", ErrInvalidStatusListToken, exp.UTC().Format(time.RFC3339))
	}

	claims, ok := tok.Payload["status_list"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: status_list claim is missing", ErrInvalidStatusListToken)
	}

	return tokenstatuslist.FromClaims(claims)
}

// readCredential maps the disclosed claims. Claim problems are returned as structure errors, the credential is
// filled as far as possible.
func readCredential(tok *jwt.JSONWebToken) (*Credential, []error) {
	cred := &Credential{Header: tok.Headers, Claims: tok.Payload}

	var errs []error

	structural := func(err error) {
		errs = append(errs, validator.NewValidationError(validator.ErrStructure, validator.SignerNone, err))
	}

	if typ, _ := tok.Headers.Type(); typ != TypeVCSDJWT && typ != TypeDCSDJWT {
		structural(fmt.Errorf("%w: %q", ErrInvalidType, typ))
	}

	cred.Issuer, _ = tok.Payload["iss"].(string)
	if cred.Issuer == "" {
		structural(ErrMissingIssuer)
	}

	cred.VCT, _ = tok.Payload["vct"].(string)
	if cred.VCT == "" {
		structural(ErrMissingVCT)
	}

	if sub, ok := tok.Payload["sub"]; ok {
		if cred.Subject, ok = sub.(string); !ok {
			structural(fmt.Errorf("%w: sub is not a string", ErrInvalidClaim))
		}
	}

	var err error

	dates := []struct {
		claim string
		dst   **time.Time
	}{
		{"iat", &cred.IssuedAt}, {"nbf", &cred.NotBefore}, {"exp", &cred.ExpiresAt},
	}

	for _, d := range dates {
		if *d.dst, err = numericDate(tok.Payload, d.claim); err != nil {
			structural(err)
		}
	}

	if cred.HolderKey, err = holderKey(tok.Payload); err != nil {
		structural(err)
	}

	if cred.Status, err = tokenstatuslist.ParseReference(tok.Payload); err != nil {
		errs = append(errs, validator.NewValidationError(validator.ErrInvalidStatus, validator.SignerNone, err))
	}

	return cred, errs
}

func (v *Validator) verifySignature(tok *jwt.JSONWebToken, cred *Credential, issuers []*did.Doc,
	o *Options) error {
	kid, _ := tok.Headers.KeyID()

	doc, key, err := validator.ResolveKey(kid, issuers, validator.SignerIssuer, o.MethodScope)
	if err != nil {
		return err
	}

	cred.IssuerDoc = doc

	if err = tok.Verify(v.sigVerifier, key); err != nil {
		return validator.NewValidationError(validator.ErrSignature, validator.SignerIssuer, err)
	}

	if cred.Issuer != "" && cred.Issuer != doc.ID {
		return validator.NewValidationError(validator.ErrDocumentMismatch, validator.SignerIssuer,
			fmt.Errorf("iss %q is not %q", cred.Issuer, doc.ID))
	}

	return nil
}

func checkDates(cred *Credential, o *Options) error {
	now := o.Clock()

	switch {
	case cred.ExpiresAt != nil && !now.Before(*cred.ExpiresAt):
		return validator.NewValidationError(validator.ErrExpirationDate, validator.SignerNone,
			fmt.Errorf("expired at %s", cred.ExpiresAt.UTC().Format(time.RFC3339)))
	case cred.NotBefore != nil && now.Before(*cred.NotBefore):
		return validator.NewValidationError(validator.ErrIssuanceDate, validator.SignerNone,
			fmt.Errorf("not valid before %s", cred.NotBefore.UTC().Format(time.RFC3339)))
	case cred.IssuedAt != nil && cred.IssuedAt.After(now):
		return validator.NewValidationError(validator.ErrIssuanceDate, validator.SignerNone,
			fmt.Errorf("issued at %s", cred.IssuedAt.UTC().Format(time.RFC3339)))
	}

	return nil
}

func checkStatus(cred *Credential, o *Options) error {
	if cred.Status == nil {
		return nil
	}

	if o.Status == validator.SkipAll {
		logger.Debugf("status check of SD-JWT VC %s skipped", cred.VCT)

		return nil
	}

	list, ok := o.statusLists[cred.Status.URI]
	if !ok {
		return unsupportedStatus(o.Status, fmt.Errorf("status list %q was not supplied", cred.Status.URI))
	}

	status, err := list.Get(cred.Status.Idx)
	if err != nil {
		return validator.NewValidationError(validator.ErrInvalidStatus, validator.SignerNone, err)
	}

	switch status {
	case tokenstatuslist.StatusValid:
		return nil
	case tokenstatuslist.StatusInvalid:
		return validator.NewValidationError(validator.ErrRevoked, validator.SignerNone,
			fmt.Errorf("index %d of %s", cred.Status.Idx, cred.Status.URI))
	case tokenstatuslist.StatusSuspended:
		return validator.NewValidationError(validator.ErrSuspended, validator.SignerNone,
			fmt.Errorf("index %d of %s", cred.Status.Idx, cred.Status.URI))
	default:
		return unsupportedStatus(o.Status, fmt.Errorf("status value 0x%02x is not supported", status))
	}
}

func unsupportedStatus(check validator.StatusCheck, err error) error {
	if check == validator.SkipUnsupported {
		logger.Debugf("unsupported SD-JWT VC status skipped: %v", err)

		return nil
	}

	return validator.NewValidationError(validator.ErrInvalidStatus, validator.SignerNone, err)
}

func holderKey(payload map[string]interface{}) (*jwk.JWK, error) {
	cnf, ok := payload["cnf"]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	cnfMap, ok := cnf.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: cnf is not an object", ErrInvalidClaim)
	}

	rawKey, ok := cnfMap["jwk"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: cnf.jwk is missing", ErrInvalidClaim)
	}

	key, ok := jose.Headers{jose.HeaderJSONWebKey: rawKey}.JWK()
	if !ok {
		return nil, fmt.Errorf("%w: cnf.jwk is not a JWK", ErrInvalidClaim)
	}

	return key, nil
}

// numericDate reads an optional NumericDate claim given as float64 or as a json.Number.
func numericDate(payload map[string]interface{}, claim string) (*time.Time, error) {
	raw, ok := payload[claim]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	var seconds float64

	switch n := raw.(type) {
	case float64:
		seconds = n
	case int64:
		seconds = float64(n)
	case int:
		seconds = float64(n)
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidClaim, claim, err)
		}

		seconds = f
	default:
		return nil, fmt.Errorf("%w: %s is not a number", ErrInvalidClaim, claim)
	}

	t := time.Unix(int64(seconds), 0)

	return &t, nil
}

func decodingError(err error) error {
	return validator.NewCompoundError(validator.NewValidationError(validator.ErrDecoding, validator.SignerNone, err))
}

type collector struct {
	failFast validator.FailFast
	errs     []error
}

func (c *collector) add(err error) bool {
	if err == nil {
		return false
	}

	c.errs = append(c.errs, err)

	return c.failFast == validator.FirstError
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

	return validator.NewCompoundError(c.errs...)
}
