/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bitmap

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
)

func TestRevocationBitmap_RevokeIsIdempotent(t *testing.T) {
	b := New()

	require.False(t, b.IsRevoked(7))
	require.True(t, b.Revoke(7))
	require.False(t, b.Revoke(7))
	require.True(t, b.IsRevoked(7))
	require.Equal(t, uint64(1), b.Len())

	require.True(t, b.UndoRevocation(7))
	require.False(t, b.UndoRevocation(7))
	require.False(t, b.UndoRevocation(8))
	require.False(t, b.IsRevoked(7))
	require.Equal(t, uint64(0), b.Len())
}

func TestRevocationBitmap_RoundTrip(t *testing.T) {
	for _, indices := range [][]uint32{
		nil,
		{0},
		{3},
		{1, 2, 3, 1000, 65535, 65536, 1 << 20, 1<<32 - 1},
	} {
		b := New()

		for _, i := range indices {
			b.Revoke(i)
		}

		for i := uint32(5000); i < 9000; i++ {
			if len(indices) > 3 {
				b.Revoke(i)
			}
		}

		encoded, err := b.Serialize()
		require.NoError(t, err)

		decoded, err := Deserialize(encoded)
		require.NoError(t, err)
		require.True(t, b.Equal(decoded))
		require.Equal(t, b.Indices(), decoded.Indices())
	}
}

func TestRevocationBitmap_ServiceEndpoint(t *testing.T) {
	b := New()
	require.True(t, b.Revoke(3))

	svc, err := b.ToService("did:example:issuer#revocation")
	require.NoError(t, err)
	require.Equal(t, ServiceType, svc.Type)

	endpoint, ok := svc.EndpointURI()
	require.True(t, ok)
	require.True(t, strings.HasPrefix(endpoint, "data:,"))

	doc := did.BuildDoc("did:example:issuer", did.WithService(*svc))

	docBytes, err := json.Marshal(doc)
	require.NoError(t, err)

	parsedDoc, err := did.ParseDocument(docBytes)
	require.NoError(t, err)

	parsedSvc, ok := parsedDoc.ResolveService("#revocation")
	require.True(t, ok)

	parsed, err := FromService(parsedSvc)
	require.NoError(t, err)
	require.True(t, parsed.IsRevoked(3))
	require.False(t, parsed.IsRevoked(2))
}

func TestFromEndpoint(t *testing.T) {
	b := New()
	b.Revoke(42)

	encoded, err := b.Serialize()
	require.NoError(t, err)

	t.Run("octet-stream data URL", func(t *testing.T) {
		parsed, err := FromEndpoint("data:application/octet-stream;base64," + encoded)
		require.NoError(t, err)
		require.True(t, parsed.IsRevoked(42))
	})

	t.Run("empty bitmap", func(t *testing.T) {
		parsed, err := FromEndpoint("data:,")
		require.NoError(t, err)
		require.Equal(t, uint64(0), parsed.Len())
	})

	for _, tc := range []struct {
		name     string
		endpoint string
	}{
		{name: "https URL", endpoint: "https://example.com/bitmap"},
		{name: "not base64", endpoint: "data:,***"},
		{name: "not zlib", endpoint: "data:," + base64.RawURLEncoding.EncodeToString([]byte("plain"))},
		{name: "truncated", endpoint: "data:," + encoded[:len(encoded)/2]},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			_, err := FromEndpoint(tc.endpoint)
			require.ErrorIs(t, err, ErrInvalidBitmapEndpoint)
		})
	}
}

func TestFromService_Invalid(t *testing.T) {
	_, err := FromService(&did.Service{Type: "LinkedDomains", ServiceEndpoint: "data:,"})
	require.ErrorIs(t, err, ErrInvalidService)

	_, err = FromService(&did.Service{Type: ServiceType, ServiceEndpoint: map[string]interface{}{}})
	require.ErrorIs(t, err, ErrInvalidBitmapEndpoint)
}

func TestStatus(t *testing.T) {
	b := New()
	b.Revoke(5)

	svc, err := b.ToService("did:example:issuer#revocation")
	require.NoError(t, err)

	doc := did.BuildDoc("did:example:issuer", did.WithService(*svc))

	t.Run("round trip and lookup", func(t *testing.T) {
		status, err := ParseStatus(NewStatus("did:example:issuer#revocation", 5).ToMap())
		require.NoError(t, err)
		require.Equal(t, uint32(5), status.Index)

		revoked, err := status.IsRevokedIn(doc)
		require.NoError(t, err)
		require.True(t, revoked)

		revoked, err = NewStatus("did:example:issuer#revocation", 6).IsRevokedIn(doc)
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("missing service", func(t *testing.T) {
		_, err := NewStatus("did:example:issuer#other", 5).IsRevokedIn(doc)
		require.ErrorIs(t, err, ErrInvalidStatus)
	})

	for _, tc := range []struct {
		name   string
		status map[string]interface{}
	}{
		{name: "numeric index", status: map[string]interface{}{
			"id": "did:example:issuer#revocation", "type": StatusType, IndexProperty: 5,
		}},
		{name: "negative index", status: map[string]interface{}{
			"id": "did:example:issuer#revocation", "type": StatusType, IndexProperty: "-1",
		}},
		{name: "index overflow", status: map[string]interface{}{
			"id": "did:example:issuer#revocation", "type": StatusType, IndexProperty: "4294967296",
		}},
		{name: "wrong type", status: map[string]interface{}{
			"id": "did:example:issuer#revocation", "type": "StatusList2021Entry", IndexProperty: "5",
		}},
		{name: "id is not a DID URL", status: map[string]interface{}{
			"id": "https://example.com", "type": StatusType, IndexProperty: "5",
		}},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStatus(tc.status)
			require.ErrorIs(t, err, ErrInvalidStatus)
		})
	}
}

func TestRevocationBitmap_ConcurrentSerialize(t *testing.T) {
	b := New()

	for i := uint32(0); i < 5000; i++ {
		b.Revoke(i)
	}

	expected, err := b.Serialize()
	require.NoError(t, err)

	var wg sync.WaitGroup

	results := make([]string, 8)

	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i], _ = b.ToEndpoint() //nolint:errcheck
		}(i)
	}

	wg.Wait()

	for _, endpoint := range results {
		decoded, err := FromEndpoint(endpoint)
		require.NoError(t, err)
		require.True(t, b.Equal(decoded))
	}

	again, err := b.Serialize()
	require.NoError(t, err)
	require.Equal(t, expected, again)
}
