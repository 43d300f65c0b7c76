/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/signer"
	"github.com/hyperledger/aries-credential-validator/pkg/vdr/key"
)

type mockVDR struct {
	method string
	doc    *did.Doc
	err    error
}

func (m *mockVDR) Accept(method string) bool {
	return method == m.method
}

func (m *mockVDR) Resolve(string) (*did.Doc, error) {
	return m.doc, m.err
}

func TestRegistry_Resolve(t *testing.T) {
	s, err := signer.NewEd25519Signer()
	require.NoError(t, err)

	example, err := did.DocWithKey("did:example:123", "key-1", s.PublicJWK())
	require.NoError(t, err)

	t.Run("did:key", func(t *testing.T) {
		registry := New(WithVDR(key.New()))

		doc, err := registry.Resolve("did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH")
		require.NoError(t, err)
		require.Equal(t, "did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH", doc.ID)
	})

	t.Run("registered document", func(t *testing.T) {
		registry := New(WithVDR(key.New()), WithDocuments(example))

		doc, err := registry.Resolve("did:example:123")
		require.NoError(t, err)
		require.Equal(t, example, doc)
	})

	t.Run("method resolver", func(t *testing.T) {
		registry := New(WithVDR(key.New()), WithVDR(&mockVDR{method: "example", doc: example}))

		doc, err := registry.Resolve("did:example:123")
		require.NoError(t, err)
		require.Equal(t, example, doc)
	})

	t.Run("method not supported", func(t *testing.T) {
		_, err := New().Resolve("did:example:123")
		require.ErrorIs(t, err, ErrMethodNotSupported)
	})

	t.Run("invalid did", func(t *testing.T) {
		_, err := New().Resolve("example")
		require.Error(t, err)
		require.Contains(t, err.Error(), "wrong format did input")
	})

	t.Run("not found", func(t *testing.T) {
		registry := New(WithVDR(&mockVDR{method: "example", err: did.ErrNotFound}))

		_, err := registry.Resolve("did:example:123")
		require.ErrorIs(t, err, did.ErrNotFound)
	})

	t.Run("read error", func(t *testing.T) {
		registry := New(WithVDR(&mockVDR{method: "example", err: errors.New("read error")}))

		_, err := registry.Resolve("did:example:123")
		require.EqualError(t, err, "did method read failed: read error")
	})

	t.Run("document of another DID", func(t *testing.T) {
		registry := New(WithVDR(&mockVDR{method: "example", doc: example}))

		_, err := registry.Resolve("did:example:456")
		require.Error(t, err)
		require.Contains(t, err.Error(), "returned document did:example:123")
	})
}

func TestGetDidMethod(t *testing.T) {
	method, err := GetDidMethod("did:key:z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH")
	require.NoError(t, err)
	require.Equal(t, "key", method)

	_, err = GetDidMethod("did:key")
	require.Error(t, err)
}
