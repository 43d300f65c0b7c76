/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by a Resolver that does not know the DID.
var ErrNotFound = errors.New("DID does not exist")

// Resolver resolves a DID to its document.
type Resolver interface {
	Resolve(did string) (*Doc, error)
}

// MethodScope restricts the verification methods considered by ResolveMethod.
type MethodScope int

const (
	// ScopeAny considers the top level verification methods and every relationship.
	ScopeAny MethodScope = iota
	// ScopeVerificationMethod considers only the top level "verificationMethod" entries.
	ScopeVerificationMethod
	// ScopeAuthentication considers only "authentication".
	ScopeAuthentication
	// ScopeAssertionMethod considers only "assertionMethod".
	ScopeAssertionMethod
	// ScopeKeyAgreement considers only "keyAgreement".
	ScopeKeyAgreement
	// ScopeCapabilityInvocation considers only "capabilityInvocation".
	ScopeCapabilityInvocation
	// ScopeCapabilityDelegation considers only "capabilityDelegation".
	ScopeCapabilityDelegation
)

// String returns the JSON property name for the scope.
func (s MethodScope) String() string {
	switch s {
	case ScopeVerificationMethod:
		return "verificationMethod"
	case ScopeAuthentication:
		return "authentication"
	case ScopeAssertionMethod:
		return "assertionMethod"
	case ScopeKeyAgreement:
		return "keyAgreement"
	case ScopeCapabilityInvocation:
		return "capabilityInvocation"
	case ScopeCapabilityDelegation:
		return "capabilityDelegation"
	default:
		return "any"
	}
}

// ResolveMethod looks up a verification method by a full DID URL, a relative "#fragment" or a bare fragment.
// A DID URL that names another DID never matches.
func (doc *Doc) ResolveMethod(query string, scope MethodScope) (*VerificationMethod, bool) {
	if scope == ScopeAny || scope == ScopeVerificationMethod {
		if vm, ok := findMethod(doc.ID, doc.VerificationMethod, query); ok {
			return vm, true
		}
	}

	for _, rel := range []struct {
		scope         MethodScope
		verifications []Verification
	}{
		{ScopeAuthentication, doc.Authentication},
		{ScopeAssertionMethod, doc.AssertionMethod},
		{ScopeKeyAgreement, doc.KeyAgreement},
		{ScopeCapabilityInvocation, doc.CapabilityInvocation},
		{ScopeCapabilityDelegation, doc.CapabilityDelegation},
	} {
		if scope != ScopeAny && scope != rel.scope {
			continue
		}

		for i := range rel.verifications {
			vm := &rel.verifications[i].VerificationMethod
			if methodMatches(doc.ID, vm.ID, query) {
				return vm, true
			}
		}
	}

	return nil, false
}

// ResolveService looks up a service by a full DID URL, a relative "#fragment" or a bare fragment.
func (doc *Doc) ResolveService(query string) (*Service, bool) {
	for i := range doc.Service {
		if methodMatches(doc.ID, doc.Service[i].ID, query) {
			return &doc.Service[i], true
		}
	}

	return nil, false
}

// LookupService returns the first service of the given type.
func (doc *Doc) LookupService(serviceType string) (*Service, bool) {
	for i := range doc.Service {
		if doc.Service[i].Type == serviceType {
			return &doc.Service[i], true
		}
	}

	return nil, false
}

func findMethod(didID string, vms []VerificationMethod, query string) (*VerificationMethod, bool) {
	for i := range vms {
		if methodMatches(didID, vms[i].ID, query) {
			return &vms[i], true
		}
	}

	return nil, false
}

func methodMatches(didID, id, query string) bool {
	return absoluteID(didID, id) == absoluteID(didID, query)
}

func absoluteID(didID, id string) string {
	switch {
	case strings.HasPrefix(id, "#"):
		return didID + id
	case strings.HasPrefix(id, "did:"):
		return id
	default:
		return didID + "#" + id
	}
}
