/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"
	"net/url"
)

// CheckStructure checks the semantic structure of the credential: the base context comes first, the base
// type is present, there is at least one non-empty subject, the issuer is a URI and a credentialStatus
// carries an id and a type.
func (vc *Credential) CheckStructure() error {
	if err := checkBaseContext(vc.Context); err != nil {
		return err
	}

	if !contains(vc.Types, TypeCredential) {
		return fmt.Errorf("%w: missing base type %s", ErrInvalidStructure, TypeCredential)
	}

	if vc.ID != "" && !isURI(vc.ID) {
		return fmt.Errorf("%w: credential id %q is not a URI", ErrInvalidStructure, vc.ID)
	}

	if len(vc.Subject) == 0 {
		return fmt.Errorf("%w: missing credential subject", ErrInvalidStructure)
	}

	for i, s := range vc.Subject {
		if s.ID == "" && len(s.CustomFields) == 0 {
			return fmt.Errorf("%w: credential subject %d is empty", ErrInvalidStructure, i)
		}

		if s.ID != "" && !isURI(s.ID) {
			return fmt.Errorf("%w: credential subject id %q is not a URI", ErrInvalidStructure, s.ID)
		}
	}

	if !isURI(vc.Issuer.ID) {
		return fmt.Errorf("%w: issuer %q is not a URI", ErrInvalidStructure, vc.Issuer.ID)
	}

	if vc.Status != nil {
		if vc.Status.Type == "" {
			return fmt.Errorf("%w: credential status without type", ErrInvalidStructure)
		}

		if !isURI(vc.Status.ID) {
			return fmt.Errorf("%w: credential status id %q is not a URI", ErrInvalidStructure, vc.Status.ID)
		}
	}

	return nil
}

// CheckStructure checks the semantic structure of the presentation: the base context comes first, the base
// type is present and the holder, if any, is a URI.
func (vp *Presentation) CheckStructure() error {
	if err := checkBaseContext(vp.Context); err != nil {
		return err
	}

	if !contains(vp.Types, TypePresentation) {
		return fmt.Errorf("%w: missing base type %s", ErrInvalidStructure, TypePresentation)
	}

	if vp.Holder != "" && !isURI(vp.Holder) {
		return fmt.Errorf("%w: holder %q is not a URI", ErrInvalidStructure, vp.Holder)
	}

	return nil
}

// NonTransferableViolation is a nonTransferable credential presented by someone other than its subject.
type NonTransferableViolation struct {
	Position   int
	Credential *Credential
}

// CheckNonTransferable reports the credentials flagged nonTransferable whose subject is not the presentation
// holder. With failFast only the first violation is returned.
func CheckNonTransferable(vp *Presentation, credentials []*Credential, failFast bool) []NonTransferableViolation {
	var violations []NonTransferableViolation

	for i, vc := range credentials {
		if vc == nil || !vc.NonTransferable || SubjectIsHolder(vc, vp.Holder) {
			continue
		}

		violations = append(violations, NonTransferableViolation{Position: i, Credential: vc})

		if failFast {
			break
		}
	}

	return violations
}

// SubjectIsHolder reports whether holder is the id of every subject of the credential.
func SubjectIsHolder(vc *Credential, holder string) bool {
	if holder == "" || len(vc.Subject) == 0 {
		return false
	}

	for _, s := range vc.Subject {
		if s.ID != holder {
			return false
		}
	}

	return true
}

func checkBaseContext(context []string) error {
	if len(context) == 0 || (context[0] != ContextV1 && context[0] != ContextV2) {
		return fmt.Errorf("%w: base context must come first", ErrInvalidStructure)
	}

	return nil
}

func isURI(s string) bool {
	u, err := url.Parse(s)

	return err == nil && u.Scheme != ""
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}

	return false
}
