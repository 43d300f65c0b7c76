/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statuslist2021

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrInvalidCredential is returned when a credential is not a StatusList2021Credential.
	ErrInvalidCredential = errors.New("invalid StatusList2021Credential")
	// ErrPurposeMismatch is returned when the entry and the list disagree on the status purpose.
	ErrPurposeMismatch = errors.New("status purpose mismatch")
)

// CredentialSubject is the credentialSubject of a StatusList2021Credential.
type CredentialSubject struct {
	ID            string  `mapstructure:"id"`
	Type          string  `mapstructure:"type"`
	StatusPurpose Purpose `mapstructure:"statusPurpose"`
	EncodedList   string  `mapstructure:"encodedList"`
}

// NewCredentialSubject creates the subject publishing list.
func NewCredentialSubject(id string, purpose Purpose, list *StatusList) (*CredentialSubject, error) {
	encoded, err := list.Encode()
	if err != nil {
		return nil, err
	}

	return &CredentialSubject{ID: id, Type: SubjectType, StatusPurpose: purpose, EncodedList: encoded}, nil
}

// ParseCredentialSubject reads the credentialSubject of a StatusList2021Credential.
func ParseCredentialSubject(subject map[string]interface{}) (*CredentialSubject, error) {
	var cs CredentialSubject

	if err := mapstructure.Decode(subject, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if cs.Type != SubjectType {
		return nil, fmt.Errorf("%w: credentialSubject.type must be %s", ErrInvalidCredential, SubjectType)
	}

	if cs.EncodedList == "" {
		return nil, fmt.Errorf("%w: encodedList is required", ErrInvalidCredential)
	}

	return &cs, nil
}

// ToMap renders the subject as a credentialSubject object.
func (cs *CredentialSubject) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":            cs.ID,
		"type":          cs.Type,
		"statusPurpose": string(cs.StatusPurpose),
		"encodedList":   cs.EncodedList,
	}
}

// List decodes the encodedList.
func (cs *CredentialSubject) List() (*StatusList, error) {
	return Decode(cs.EncodedList)
}

// Check reports whether the bit referenced by entry is set in the list published by cs.
func Check(entry *Entry, cs *CredentialSubject) (bool, error) {
	if entry.StatusPurpose != cs.StatusPurpose {
		return false, fmt.Errorf("%w: entry %q, list %q", ErrPurposeMismatch, entry.StatusPurpose, cs.StatusPurpose)
	}

	index, err := entry.Index()
	if err != nil {
		return false, err
	}

	list, err := cs.List()
	if err != nil {
		return false, err
	}

	set, ok := list.Get(index)
	if !ok {
		return false, fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, index, list.Len())
	}

	return set, nil
}
