/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CredentialBuilder assembles a Credential. The base context and type are always first.
type CredentialBuilder struct {
	vc Credential
}

// NewCredentialBuilder creates a builder for a credential with a fresh "urn:uuid:" id.
func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{
		vc: Credential{
			Context: []string{ContextV1},
			ID:      fmt.Sprintf("urn:uuid:%s", uuid.New()),
			Types:   []string{TypeCredential},
		},
	}
}

// ID sets the credential id.
func (b *CredentialBuilder) ID(id string) *CredentialBuilder {
	b.vc.ID = id

	return b
}

// Context appends contexts after the base context.
func (b *CredentialBuilder) Context(contexts ...string) *CredentialBuilder {
	b.vc.Context = append(b.vc.Context, contexts...)

	return b
}

// Type appends types after the base type.
func (b *CredentialBuilder) Type(types ...string) *CredentialBuilder {
	b.vc.Types = append(b.vc.Types, types...)

	return b
}

// Issuer sets the issuer id.
func (b *CredentialBuilder) Issuer(id string) *CredentialBuilder {
	b.vc.Issuer.ID = id

	return b
}

// IssuerObject sets an issuer with extra properties.
func (b *CredentialBuilder) IssuerObject(issuer Issuer) *CredentialBuilder {
	b.vc.Issuer = issuer

	return b
}

// Subject appends a credential subject.
func (b *CredentialBuilder) Subject(subject Subject) *CredentialBuilder {
	b.vc.Subject = append(b.vc.Subject, subject)

	return b
}

// IssuanceDate sets the issuance date.
func (b *CredentialBuilder) IssuanceDate(t time.Time) *CredentialBuilder {
	t = t.UTC()
	b.vc.Issued = &t

	return b
}

// ExpirationDate sets the expiration date.
func (b *CredentialBuilder) ExpirationDate(t time.Time) *CredentialBuilder {
	t = t.UTC()
	b.vc.Expired = &t

	return b
}

// Status sets the credentialStatus.
func (b *CredentialBuilder) Status(status TypedID) *CredentialBuilder {
	b.vc.Status = &status

	return b
}

// Schema appends a credentialSchema.
func (b *CredentialBuilder) Schema(schema TypedID) *CredentialBuilder {
	b.vc.Schemas = append(b.vc.Schemas, schema)

	return b
}

// NonTransferable marks the credential as bound to its subject.
func (b *CredentialBuilder) NonTransferable(v bool) *CredentialBuilder {
	b.vc.NonTransferable = v

	return b
}

// CustomField sets an extra property.
func (b *CredentialBuilder) CustomField(name string, value interface{}) *CredentialBuilder {
	if b.vc.CustomFields == nil {
		b.vc.CustomFields = make(CustomFields)
	}

	b.vc.CustomFields[name] = value

	return b
}

// Build returns the credential after checking its structure. The issuance date defaults to now.
func (b *CredentialBuilder) Build() (*Credential, error) {
	vc := b.vc

	if vc.Issued == nil {
		now := time.Now().UTC().Truncate(time.Second)
		vc.Issued = &now
	}

	if err := vc.CheckStructure(); err != nil {
		return nil, fmt.Errorf("build credential: %w", err)
	}

	return &vc, nil
}
