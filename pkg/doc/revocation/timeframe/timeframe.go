/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package timeframe implements the RevocationTimeframe2024 credentialStatus: a validity window, optionally backed
// by an index into the issuer's RevocationBitmap2022 service.
package timeframe

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/bitmap"
)

// StatusType is the credentialStatus type.
const StatusType = "RevocationTimeframe2024"

var (
	// ErrInvalidStatus is returned when a credentialStatus cannot be read as a RevocationTimeframe2024 status.
	ErrInvalidStatus = errors.New("invalid RevocationTimeframe2024 status")
	// ErrOutsideTimeframe is returned when the reference time is outside the validity timeframe.
	ErrOutsideTimeframe = errors.New("outside of the validity timeframe")
)

// Status is a RevocationTimeframe2024 credentialStatus.
type Status struct {
	// ID is a DID URL naming the RevocationBitmap2022 service.
	ID    string
	Start time.Time
	End   time.Time
	// Index into the revocation bitmap, nil when the credential cannot be revoked.
	Index *uint32
}

type rawStatus struct {
	ID    string      `mapstructure:"id"`
	Type  string      `mapstructure:"type"`
	Start string      `mapstructure:"startValidityTimeframe"`
	End   string      `mapstructure:"endValidityTimeframe"`
	Index interface{} `mapstructure:"revocationBitmapIndex"`
}

// NewStatus creates a status covering [start, start+granularity].
func NewStatus(serviceURL string, start time.Time, granularity time.Duration, index *uint32) *Status {
	return &Status{ID: serviceURL, Start: start.UTC(), End: start.Add(granularity).UTC(), Index: index}
}

// ParseStatus reads a credentialStatus object.
func ParseStatus(status map[string]interface{}) (*Status, error) {
	var raw rawStatus

	if err := mapstructure.Decode(status, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	if raw.Type != StatusType {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidStatus, raw.Type)
	}

	if _, err := did.ParseDIDURL(raw.ID); err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidStatus, err)
	}

	start, err := time.Parse(time.RFC3339, raw.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: startValidityTimeframe: %v", ErrInvalidStatus, err)
	}

	end, err := time.Parse(time.RFC3339, raw.End)
	if err != nil {
		return nil, fmt.Errorf("%w: endValidityTimeframe: %v", ErrInvalidStatus, err)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("%w: timeframe ends before it starts", ErrInvalidStatus)
	}

	s := &Status{ID: raw.ID, Start: start, End: end}

	if raw.Index != nil {
		index, err := bitmap.ParseIndex(raw.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}

		s.Index = &index
	}

	return s, nil
}

// ToMap renders the status as a credentialStatus object.
func (s *Status) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":                     s.ID,
		"type":                   StatusType,
		"startValidityTimeframe": s.Start.Format(time.RFC3339),
		"endValidityTimeframe":   s.End.Format(time.RFC3339),
	}

	if s.Index != nil {
		m[bitmap.IndexProperty] = bitmap.NewStatus(s.ID, *s.Index).ToMap()[bitmap.IndexProperty]
	}

	return m
}

type checkOpts struct {
	at    *time.Time
	clock func() time.Time
}

// CheckOpt configures CheckTimeframe.
type CheckOpt func(opts *checkOpts)

// WithReferenceTime checks the timeframe against t.
func WithReferenceTime(t time.Time) CheckOpt {
	return func(opts *checkOpts) {
		opts.at = &t
	}
}

// WithClock sets the clock used when no reference time is given.
func WithClock(clock func() time.Time) CheckOpt {
	return func(opts *checkOpts) {
		opts.clock = clock
	}
}

// CheckTimeframe checks Start <= at <= End. The reference time defaults to the clock, time.Now by default.
func CheckTimeframe(s *Status, opts ...CheckOpt) error {
	o := &checkOpts{clock: time.Now}

	for _, opt := range opts {
		opt(o)
	}

	at := o.clock()
	if o.at != nil {
		at = *o.at
	}

	if at.Before(s.Start) || at.After(s.End) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrOutsideTimeframe,
			at.Format(time.RFC3339), s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
	}

	return nil
}

// IsRevokedIn reports whether the status index is revoked in the issuer's RevocationBitmap2022 service.
// A status without index is never revoked.
func (s *Status) IsRevokedIn(issuer *did.Doc) (bool, error) {
	if s.Index == nil {
		return false, nil
	}

	return bitmap.NewStatus(s.ID, *s.Index).IsRevokedIn(issuer)
}
