/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"time"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

// FailFast controls whether validation stops at the first failed check.
type FailFast int

const (
	// FirstError stops after the first failed check.
	FirstError FailFast = iota
	// AllErrors runs every check and reports all failures.
	AllErrors
)

// StatusCheck controls how credentialStatus is interpreted.
type StatusCheck int

const (
	// Strict fails on revoked credentials and on status mechanisms it cannot interpret.
	Strict StatusCheck = iota
	// SkipUnsupported checks the supported status mechanisms and ignores the others.
	SkipUnsupported
	// SkipAll does not check the status.
	SkipAll
)

func (s StatusCheck) String() string {
	switch s {
	case Strict:
		return "strict"
	case SkipUnsupported:
		return "skip-unsupported"
	case SkipAll:
		return "skip-all"
	default:
		return "unknown"
	}
}

// SubjectHolderRelationship declares how the credential subject relates to the presentation holder.
type SubjectHolderRelationship int

const (
	// AlwaysSubject requires the holder to be the subject.
	AlwaysSubject SubjectHolderRelationship = iota
	// SubjectOnNonTransferable requires the holder to be the subject of nonTransferable credentials only.
	SubjectOnNonTransferable
	// Any accepts any holder.
	Any
)

type subjectHolder struct {
	holder       string
	relationship SubjectHolderRelationship
}

// Options holds the validation settings. The zero time values mean "now" according to Clock.
type Options struct {
	EarliestExpiryDate *time.Time
	LatestIssuanceDate *time.Time
	Status             StatusCheck
	MethodScope        did.MethodScope
	Clock              func() time.Time

	subjectHolder   *subjectHolder
	statusLists     map[string]*verifiable.Credential
	validityAt      *time.Time
	presentationAud string
	nonce           string
}

// Opt configures Options.
type Opt func(opts *Options)

// DefaultOptions returns the default options: strict status check, expiry and issuance checked against the
// current time, any verification relationship.
func DefaultOptions() *Options {
	return &Options{
		Status:      Strict,
		MethodScope: did.ScopeAny,
		Clock:       time.Now,
	}
}

// NewOptions applies opts on top of DefaultOptions.
func NewOptions(opts ...Opt) *Options {
	o := DefaultOptions()

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithEarliestExpiryDate rejects credentials expiring before t.
func WithEarliestExpiryDate(t time.Time) Opt {
	return func(opts *Options) {
		opts.EarliestExpiryDate = &t
	}
}

// WithLatestIssuanceDate rejects credentials issued after t.
func WithLatestIssuanceDate(t time.Time) Opt {
	return func(opts *Options) {
		opts.LatestIssuanceDate = &t
	}
}

// WithStatusCheck sets the status check policy.
func WithStatusCheck(check StatusCheck) Opt {
	return func(opts *Options) {
		opts.Status = check
	}
}

// WithMethodScope restricts the verification methods usable for signatures to a relationship.
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

// WithSubjectHolderRelationship checks the credential subject against holder.
func WithSubjectHolderRelationship(holder string, relationship SubjectHolderRelationship) Opt {
	return func(opts *Options) {
		opts.subjectHolder = &subjectHolder{holder: holder, relationship: relationship}
	}
}

// WithStatusListCredentials supplies already fetched status list credentials (StatusList2021 and
// SimpleRevocationList2022), matched to credentialStatus entries by credential id.
func WithStatusListCredentials(creds ...*verifiable.Credential) Opt {
	return func(opts *Options) {
		if opts.statusLists == nil {
			opts.statusLists = make(map[string]*verifiable.Credential)
		}

		for _, c := range creds {
			if c == nil {
				continue
			}

			opts.statusLists[c.ID] = c
		}
	}
}

// WithValidityTimeframe sets the reference time of RevocationTimeframe2024 checks. Defaults to now.
func WithValidityTimeframe(t time.Time) Opt {
	return func(opts *Options) {
		opts.validityAt = &t
	}
}

// WithAudience requires the presentation "aud" claim to contain aud.
func WithAudience(aud string) Opt {
	return func(opts *Options) {
		opts.presentationAud = aud
	}
}

// WithNonce requires presentations to be bound to nonce.
func WithNonce(nonce string) Opt {
	return func(opts *Options) {
		opts.nonce = nonce
	}
}

// Nonce returns the expected presentation nonce, empty when not required.
func (o *Options) Nonce() string {
	return o.nonce
}

// Audience returns the expected presentation audience, empty when not required.
func (o *Options) Audience() string {
	return o.presentationAud
}

// Now returns the current time according to Clock.
func (o *Options) Now() time.Time {
	return o.now()
}

func (o *Options) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}

	return o.Clock()
}

func (o *Options) earliestExpiry() time.Time {
	if o.EarliestExpiryDate != nil {
		return *o.EarliestExpiryDate
	}

	return o.now()
}

func (o *Options) latestIssuance() time.Time {
	if o.LatestIssuanceDate != nil {
		return *o.LatestIssuanceDate
	}

	return o.now()
}

func (o *Options) validityTimeframe() time.Time {
	if o.validityAt != nil {
		return *o.validityAt
	}

	return o.now()
}
