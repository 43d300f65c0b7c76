/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statuslist2021

import (
	"bytes"
	"encoding/base64"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestStatusList_SetGetEncode(t *testing.T) {
	l, err := New(128)
	require.NoError(t, err)
	require.Equal(t, 128, l.Len())

	require.NoError(t, l.Set(5, true))

	set, ok := l.Get(5)
	require.True(t, ok)
	require.True(t, set)

	set, ok = l.Get(6)
	require.True(t, ok)
	require.False(t, set)

	encoded, err := l.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, l.Equal(decoded))
	require.Equal(t, 128, decoded.Len())
}

func TestStatusList_Bounds(t *testing.T) {
	l, err := New(16)
	require.NoError(t, err)

	_, ok := l.Get(16)
	require.False(t, ok)

	_, ok = l.Get(-1)
	require.False(t, ok)

	require.ErrorIs(t, l.Set(16, true), ErrIndexOutOfBounds)
	require.ErrorIs(t, l.Set(-1, true), ErrIndexOutOfBounds)

	_, err = New(12)
	require.ErrorIs(t, err, ErrInvalidSize)

	def, err := New(0)
	require.NoError(t, err)
	require.Equal(t, DefaultSize, def.Len())
}

func TestStatusList_Unset(t *testing.T) {
	l, err := New(8)
	require.NoError(t, err)

	require.NoError(t, l.Set(0, true))
	require.NoError(t, l.Set(0, false))

	set, _ := l.Get(0)
	require.False(t, set)
}

func TestStatusList_RandomRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42)) //nolint:gosec

	for i := 0; i < 10; i++ {
		l, err := New(DefaultSize)
		require.NoError(t, err)

		for j := 0; j < 200; j++ {
			require.NoError(t, l.Set(rnd.Intn(DefaultSize), true))
		}

		encoded, err := l.Encode()
		require.NoError(t, err)

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		require.True(t, l.Equal(decoded))
	}
}

func TestDecode_MostSignificantBitFirst(t *testing.T) {
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte{0x80, 0x01})
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	// padded standard base64, as some issuers publish it
	l, err := Decode(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)

	for index, want := range map[int]bool{0: true, 1: false, 7: false, 15: true} {
		got, ok := l.Get(index)
		require.True(t, ok)
		require.Equal(t, want, got, index)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, encoded := range []string{
		"***",
		base64.RawURLEncoding.EncodeToString([]byte("not gzip")),
		"",
	} {
		_, err := Decode(encoded)
		require.ErrorIs(t, err, ErrInvalidEncodedList)
	}
}

func TestEntryAndCheck(t *testing.T) {
	l, err := New(DefaultSize)
	require.NoError(t, err)
	require.NoError(t, l.Set(94567, true))

	cs, err := NewCredentialSubject("https://example.com/status/3#list", PurposeRevocation, l)
	require.NoError(t, err)

	parsedSubject, err := ParseCredentialSubject(cs.ToMap())
	require.NoError(t, err)

	t.Run("revoked", func(t *testing.T) {
		entry, err := ParseEntry(NewEntry("https://example.com/status/3", 94567, PurposeRevocation).ToMap())
		require.NoError(t, err)

		revoked, err := Check(entry, parsedSubject)
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("not revoked", func(t *testing.T) {
		revoked, err := Check(NewEntry("https://example.com/status/3", 1, PurposeRevocation), parsedSubject)
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("purpose mismatch", func(t *testing.T) {
		_, err := Check(NewEntry("https://example.com/status/3", 1, PurposeSuspension), parsedSubject)
		require.ErrorIs(t, err, ErrPurposeMismatch)
	})

	t.Run("index out of bounds", func(t *testing.T) {
		_, err := Check(NewEntry("https://example.com/status/3", DefaultSize, PurposeRevocation), parsedSubject)
		require.ErrorIs(t, err, ErrIndexOutOfBounds)
	})

	t.Run("invalid subject", func(t *testing.T) {
		_, err := ParseCredentialSubject(map[string]interface{}{"type": "Other", "encodedList": "x"})
		require.ErrorIs(t, err, ErrInvalidCredential)

		_, err = ParseCredentialSubject(map[string]interface{}{"type": SubjectType})
		require.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestParseEntry_Invalid(t *testing.T) {
	valid := NewEntry("https://example.com/status/3", 7, PurposeRevocation).ToMap()

	for _, tc := range []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "wrong type", key: "type", value: "RevocationBitmap2022"},
		{name: "negative index", key: "statusListIndex", value: "-3"},
		{name: "numeric index", key: "statusListIndex", value: 3},
		{name: "missing purpose", key: "statusPurpose", value: ""},
		{name: "relative list URL", key: "statusListCredential", value: "status/3"},
		{name: "id equals list", key: "id", value: "https://example.com/status/3"},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			status := make(map[string]interface{}, len(valid))
			for k, v := range valid {
				status[k] = v
			}

			status[tc.key] = tc.value

			_, err := ParseEntry(status)
			require.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
}
