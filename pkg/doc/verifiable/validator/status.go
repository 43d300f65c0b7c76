/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/bitmap"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/revocationlist2022"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/statuslist2021"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/timeframe"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
)

// CheckStatus checks the credentialStatus of vc. RevocationBitmap2022 and RevocationTimeframe2024 are
// resolved in the issuer document; StatusList2021Entry and SimpleRevocationList2022Entry need the list
// credential supplied with WithStatusListCredentials. A credential without status passes.
func CheckStatus(vc *verifiable.Credential, issuer *did.Doc, opts ...Opt) error {
	return checkStatus(vc, issuer, NewOptions(opts...))
}

func checkStatus(vc *verifiable.Credential, issuer *did.Doc, o *Options) error {
	if vc.Status == nil {
		return nil
	}

	if o.Status == SkipAll {
		logger.Debugf("status check of credential %s skipped", vc.ID)

		return nil
	}

	status, err := vc.Status.ToMap()
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	switch vc.Status.Type {
	case bitmap.StatusType:
		s, err := bitmap.ParseStatus(status)
		if err != nil {
			return NewValidationError(ErrInvalidStatus, SignerNone, err)
		}

		return checkRevokedIn(s.ID, issuer, s.IsRevokedIn)
	case timeframe.StatusType:
		s, err := timeframe.ParseStatus(status)
		if err != nil {
			return NewValidationError(ErrInvalidStatus, SignerNone, err)
		}

		if err = timeframe.CheckTimeframe(s, timeframe.WithReferenceTime(o.validityTimeframe())); err != nil {
			return NewValidationError(ErrOutsideTimeframe, SignerNone, err)
		}

		return checkRevokedIn(s.ID, issuer, s.IsRevokedIn)
	case statuslist2021.EntryType:
		listURL, _ := status["statusListCredential"].(string)

		list, ok := o.statusLists[listURL]
		if !ok {
			return unsupportedStatus(o.Status, fmt.Errorf("status list credential %q was not supplied", listURL))
		}

		return CheckStatusWithStatusList2021(vc, list, o.Status)
	case revocationlist2022.EntryType:
		listURL, _ := status["revocationListCredential"].(string)

		list, ok := o.statusLists[listURL]
		if !ok {
			return unsupportedStatus(o.Status, fmt.Errorf("revocation list credential %q was not supplied", listURL))
		}

		return CheckStatusWithRevocationList2022(vc, list, o.Status)
	default:
		return unsupportedStatus(o.Status, fmt.Errorf("status type %q is not supported", vc.Status.Type))
	}
}

// CheckStatusWithStatusList2021 checks a StatusList2021Entry status against the fetched list credential.
// A set bit is ErrRevoked for the revocation purpose and ErrSuspended for the suspension purpose.
func CheckStatusWithStatusList2021(vc, statusListCred *verifiable.Credential, check StatusCheck) error {
	if vc.Status == nil || check == SkipAll {
		return nil
	}

	if vc.Status.Type != statuslist2021.EntryType {
		return unsupportedStatus(check, fmt.Errorf("status type %q is not %s", vc.Status.Type,
			statuslist2021.EntryType))
	}

	status, err := vc.Status.ToMap()
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	entry, err := statuslist2021.ParseEntry(status)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	subject, err := listSubject(vc, statusListCred, entry.StatusListCredential, statuslist2021.CredentialType)
	if err != nil {
		return err
	}

	cs, err := statuslist2021.ParseCredentialSubject(subject)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	set, err := statuslist2021.Check(entry, cs)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	switch {
	case !set:
		return nil
	case entry.StatusPurpose == statuslist2021.PurposeSuspension:
		return NewValidationError(ErrSuspended, SignerNone, fmt.Errorf("index %s", entry.StatusListIndex))
	default:
		return NewValidationError(ErrRevoked, SignerNone, fmt.Errorf("index %s", entry.StatusListIndex))
	}
}

// CheckStatusWithRevocationList2022 checks a SimpleRevocationList2022Entry status against the fetched list
// credential.
func CheckStatusWithRevocationList2022(vc, revocationListCred *verifiable.Credential, check StatusCheck) error {
	if vc.Status == nil || check == SkipAll {
		return nil
	}

	if vc.Status.Type != revocationlist2022.EntryType {
		return unsupportedStatus(check, fmt.Errorf("status type %q is not %s", vc.Status.Type,
			revocationlist2022.EntryType))
	}

	status, err := vc.Status.ToMap()
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	entry, err := revocationlist2022.ParseEntry(status)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	subject, err := listSubject(vc, revocationListCred, entry.RevocationListCredential, "")
	if err != nil {
		return err
	}

	list, err := revocationlist2022.ParseCredentialSubject(subject)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	index, err := entry.Index()
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	if list.IsRevoked(index) {
		return NewValidationError(ErrRevoked, SignerNone, fmt.Errorf("index %d", index))
	}

	return nil
}

// listSubject returns the credentialSubject of a status list credential issued by the issuer of vc.
func listSubject(vc, listCred *verifiable.Credential, listURL, listType string) (map[string]interface{}, error) {
	switch {
	case listCred == nil:
		return nil, NewValidationError(ErrInvalidStatus, SignerNone, errors.New("status list credential is missing"))
	case listCred.ID != listURL:
		return nil, NewValidationError(ErrInvalidStatus, SignerNone,
			fmt.Errorf("status list credential %q does not match %q", listCred.ID, listURL))
	case listCred.Issuer.ID != vc.Issuer.ID:
		return nil, NewValidationError(ErrInvalidStatus, SignerNone,
			fmt.Errorf("status list issuer %q is not the credential issuer %q", listCred.Issuer.ID, vc.Issuer.ID))
	case listType != "" && !containsString(listCred.Types, listType):
		return nil, NewValidationError(ErrInvalidStatus, SignerNone,
			fmt.Errorf("status list credential is not a %s", listType))
	case len(listCred.Subject) != 1:
		return nil, NewValidationError(ErrInvalidStatus, SignerNone,
			fmt.Errorf("status list credential has %d subjects", len(listCred.Subject)))
	}

	subject, err := listCred.Subject[0].ToMap()
	if err != nil {
		return nil, NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	return subject, nil
}

// checkRevokedIn resolves the status service of statusID in the issuer document. The status must point into
// the issuer's own document.
func checkRevokedIn(statusID string, issuer *did.Doc, isRevokedIn func(*did.Doc) (bool, error)) error {
	if issuer == nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, errors.New("issuer document is required"))
	}

	u, err := did.ParseDIDURL(statusID)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	if u.DID.String() != issuer.ID {
		return NewValidationError(ErrInvalidStatus, SignerNone,
			fmt.Errorf("status %s does not point into issuer document %s", statusID, issuer.ID))
	}

	revoked, err := isRevokedIn(issuer)
	if err != nil {
		return NewValidationError(ErrInvalidStatus, SignerNone, err)
	}

	if revoked {
		return NewValidationError(ErrRevoked, SignerNone, fmt.Errorf("status %s", statusID))
	}

	return nil
}

func unsupportedStatus(check StatusCheck, err error) error {
	if check == SkipUnsupported {
		logger.Debugf("unsupported credential status skipped: %v", err)

		return nil
	}

	return NewValidationError(ErrInvalidStatus, SignerNone, err)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}

	return false
}
