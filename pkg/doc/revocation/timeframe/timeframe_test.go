/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/bitmap"
)

func TestCheckTimeframe(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewStatus("did:example:issuer#revocation", start, time.Hour, nil)

	for _, tc := range []struct {
		name string
		at   time.Time
		ok   bool
	}{
		{name: "start is inclusive", at: start, ok: true},
		{name: "inside", at: start.Add(30 * time.Minute), ok: true},
		{name: "end is inclusive", at: start.Add(time.Hour), ok: true},
		{name: "before", at: start.Add(-time.Second)},
		{name: "after", at: start.Add(time.Hour + time.Second)},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			err := CheckTimeframe(s, WithReferenceTime(tc.at))
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrOutsideTimeframe)
			}

			clockErr := CheckTimeframe(s, WithClock(func() time.Time { return tc.at }))
			require.Equal(t, err == nil, clockErr == nil)
		})
	}
}

func TestParseStatus(t *testing.T) {
	index := uint32(4)
	s := NewStatus("did:example:issuer#revocation", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Hour, &index)

	parsed, err := ParseStatus(s.ToMap())
	require.NoError(t, err)
	require.Equal(t, s.Start, parsed.Start)
	require.Equal(t, s.End, parsed.End)
	require.Equal(t, uint32(4), *parsed.Index)

	withoutIndex := s.ToMap()
	delete(withoutIndex, bitmap.IndexProperty)

	parsed, err = ParseStatus(withoutIndex)
	require.NoError(t, err)
	require.Nil(t, parsed.Index)

	for _, tc := range []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "bad type", key: "type", value: "StatusList2021Entry"},
		{name: "bad start", key: "startValidityTimeframe", value: "yesterday"},
		{name: "end before start", key: "endValidityTimeframe", value: "2020-01-01T00:00:00Z"},
		{name: "numeric index", key: bitmap.IndexProperty, value: 4},
		{name: "not a DID URL", key: "id", value: "https://example.com"},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			status := s.ToMap()
			status[tc.key] = tc.value

			_, err := ParseStatus(status)
			require.ErrorIs(t, err, ErrInvalidStatus)
		})
	}
}

func TestStatus_IsRevokedIn(t *testing.T) {
	b := bitmap.New()
	b.Revoke(4)

	svc, err := b.ToService("did:example:issuer#revocation")
	require.NoError(t, err)

	doc := did.BuildDoc("did:example:issuer", did.WithService(*svc))

	revoked, err := NewStatus(svc.ID, time.Now(), time.Hour, nil).IsRevokedIn(doc)
	require.NoError(t, err)
	require.False(t, revoked)

	index := uint32(4)

	revoked, err = NewStatus(svc.ID, time.Now(), time.Hour, &index).IsRevokedIn(doc)
	require.NoError(t, err)
	require.True(t, revoked)
}
