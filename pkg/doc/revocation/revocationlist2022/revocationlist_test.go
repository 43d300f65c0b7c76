/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package revocationlist2022

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleRevocationList2022(t *testing.T) {
	l := New()

	require.True(t, l.Revoke(10))
	require.False(t, l.Revoke(10))
	require.True(t, l.Revoke(1<<31))
	require.True(t, l.IsRevoked(10))
	require.Equal(t, uint64(2), l.Len())

	encoded, err := l.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, l.Equal(decoded))
	require.True(t, decoded.IsRevoked(1<<31))

	require.True(t, decoded.UndoRevocation(10))
	require.False(t, decoded.UndoRevocation(10))
	require.False(t, l.Equal(decoded))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("!!!")
	require.ErrorIs(t, err, ErrInvalidList)

	_, err = Decode("AQIDBA")
	require.ErrorIs(t, err, ErrInvalidList)
}

func TestEntry(t *testing.T) {
	l := New()
	l.Revoke(3)

	subject, err := l.CredentialSubject("https://example.com/revocation/1#list")
	require.NoError(t, err)

	parsedList, err := ParseCredentialSubject(subject)
	require.NoError(t, err)

	entry, err := ParseEntry(NewEntry("https://example.com/revocation/1", 3).ToMap())
	require.NoError(t, err)

	index, err := entry.Index()
	require.NoError(t, err)
	require.True(t, parsedList.IsRevoked(index))

	_, err = ParseEntry(map[string]interface{}{"type": EntryType, "revocationListIndex": "x",
		"revocationListCredential": "https://example.com/revocation/1"})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = ParseEntry(map[string]interface{}{"type": "StatusList2021Entry"})
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = ParseCredentialSubject(map[string]interface{}{"type": "StatusList2021"})
	require.ErrorIs(t, err, ErrInvalidList)
}

func TestSimpleRevocationList2022_ConcurrentEncode(t *testing.T) {
	l := New()

	for i := uint32(100); i < 4100; i++ {
		l.Revoke(i)
	}

	var wg sync.WaitGroup

	results := make([]string, 8)

	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i], _ = l.Encode() //nolint:errcheck
		}(i)
	}

	wg.Wait()

	for _, encoded := range results {
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		require.True(t, l.Equal(decoded))
	}
}
