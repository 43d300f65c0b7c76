/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCredential(holder string, nonTransferable bool) *Credential {
	return &Credential{
		Context:         []string{ContextV1},
		Types:           []string{TypeCredential},
		Issuer:          Issuer{ID: "did:example:issuer"},
		Subject:         []Subject{{ID: holder}},
		NonTransferable: nonTransferable,
	}
}

func TestCredential_CheckStructure(t *testing.T) {
	require.NoError(t, newTestCredential("did:example:holder", false).CheckStructure())

	for _, tc := range []struct {
		name   string
		modify func(vc *Credential)
	}{
		{name: "no context", modify: func(vc *Credential) { vc.Context = nil }},
		{name: "base context not first", modify: func(vc *Credential) {
			vc.Context = []string{"https://example.com/context", ContextV1}
		}},
		{name: "no base type", modify: func(vc *Credential) { vc.Types = []string{"DegreeCredential"} }},
		{name: "no subject", modify: func(vc *Credential) { vc.Subject = nil }},
		{name: "empty subject", modify: func(vc *Credential) { vc.Subject = []Subject{{}} }},
		{name: "subject id is not a URI", modify: func(vc *Credential) { vc.Subject[0].ID = "holder" }},
		{name: "issuer is not a URI", modify: func(vc *Credential) { vc.Issuer.ID = "example issuer" }},
		{name: "no issuer", modify: func(vc *Credential) { vc.Issuer = Issuer{} }},
		{name: "id is not a URI", modify: func(vc *Credential) { vc.ID = "1872" }},
		{name: "status without type", modify: func(vc *Credential) {
			vc.Status = &TypedID{ID: "did:example:issuer#revocation"}
		}},
		{name: "status without id", modify: func(vc *Credential) { vc.Status = &TypedID{Type: "StatusList2021Entry"} }},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			vc := newTestCredential("did:example:holder", false)
			tc.modify(vc)

			require.ErrorIs(t, vc.CheckStructure(), ErrInvalidStructure)
		})
	}

	t.Run("subject with properties only", func(t *testing.T) {
		vc := newTestCredential("", false)
		vc.Subject = []Subject{{CustomFields: CustomFields{"name": "Alice"}}}

		require.NoError(t, vc.CheckStructure())
	})
}

func TestPresentation_CheckStructure(t *testing.T) {
	vp := NewPresentation()
	vp.Holder = "did:example:holder"
	require.NoError(t, vp.CheckStructure())

	vp.Holder = "holder"
	require.ErrorIs(t, vp.CheckStructure(), ErrInvalidStructure)

	vp = NewPresentation()
	vp.Types = []string{"CredentialManagerPresentation"}
	require.ErrorIs(t, vp.CheckStructure(), ErrInvalidStructure)

	vp = NewPresentation()
	vp.Context = []string{"https://example.com/context"}
	require.ErrorIs(t, vp.CheckStructure(), ErrInvalidStructure)
}

func TestCheckNonTransferable(t *testing.T) {
	vp := NewPresentation()
	vp.Holder = "did:example:holder"

	creds := []*Credential{
		newTestCredential("did:example:other", true),
		newTestCredential("did:example:holder", true),
		newTestCredential("did:example:other", false),
		newTestCredential("did:example:someone", true),
	}

	violations := CheckNonTransferable(vp, creds, false)
	require.Len(t, violations, 2)
	require.Equal(t, 0, violations[0].Position)
	require.Equal(t, 3, violations[1].Position)
	require.Same(t, creds[3], violations[1].Credential)

	violations = CheckNonTransferable(vp, creds, true)
	require.Len(t, violations, 1)
	require.Equal(t, 0, violations[0].Position)

	require.Empty(t, CheckNonTransferable(vp, creds[1:3], false))

	vp.Holder = ""
	require.Len(t, CheckNonTransferable(vp, creds[1:2], false), 1)
}
