/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statuslist2021

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	// EntryType is the credentialStatus type.
	EntryType = "StatusList2021Entry"
	// CredentialType is the type of the credential publishing the list.
	CredentialType = "StatusList2021Credential"
	// SubjectType is the credentialSubject type of a StatusList2021Credential.
	SubjectType = "StatusList2021"
	// Context is the JSON-LD context of StatusList2021.
	Context = "https://w3id.org/vc/status-list/2021/v1"
)

// Purpose of the status list.
type Purpose string

const (
	// PurposeRevocation lists revoked credentials.
	PurposeRevocation Purpose = "revocation"
	// PurposeSuspension lists suspended credentials.
	PurposeSuspension Purpose = "suspension"
)

// ErrInvalidEntry is returned when a credentialStatus is not a valid StatusList2021Entry.
var ErrInvalidEntry = errors.New("invalid StatusList2021Entry")

// Entry is the credentialStatus pointing into a StatusList2021Credential.
type Entry struct {
	ID                   string  `mapstructure:"id" json:"id"`
	Type                 string  `mapstructure:"type" json:"type"`
	StatusPurpose        Purpose `mapstructure:"statusPurpose" json:"statusPurpose"`
	StatusListIndex      string  `mapstructure:"statusListIndex" json:"statusListIndex"`
	StatusListCredential string  `mapstructure:"statusListCredential" json:"statusListCredential"`
}

// NewEntry creates an entry for index in the list credential at listURL.
func NewEntry(listURL string, index int, purpose Purpose) *Entry {
	return &Entry{
		ID:                   fmt.Sprintf("%s#%d", listURL, index),
		Type:                 EntryType,
		StatusPurpose:        purpose,
		StatusListIndex:      strconv.Itoa(index),
		StatusListCredential: listURL,
	}
}

// ParseEntry reads and validates a credentialStatus object.
func ParseEntry(status map[string]interface{}) (*Entry, error) {
	var entry Entry

	if err := mapstructure.Decode(status, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return &entry, nil
}

// Validate checks the entry properties.
func (e *Entry) Validate() error {
	if e.Type != EntryType {
		return fmt.Errorf("%w: type must be %s", ErrInvalidEntry, EntryType)
	}

	if e.ID == e.StatusListCredential {
		return fmt.Errorf("%w: id must not be the statusListCredential", ErrInvalidEntry)
	}

	if e.StatusPurpose == "" {
		return fmt.Errorf("%w: statusPurpose is required", ErrInvalidEntry)
	}

	if _, err := e.Index(); err != nil {
		return err
	}

	if _, err := url.ParseRequestURI(e.StatusListCredential); err != nil {
		return fmt.Errorf("%w: statusListCredential: %v", ErrInvalidEntry, err)
	}

	return nil
}

// Index returns statusListIndex as an integer.
func (e *Entry) Index() (int, error) {
	n, err := strconv.Atoi(e.StatusListIndex)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: statusListIndex %q", ErrInvalidEntry, e.StatusListIndex)
	}

	return n, nil
}

// ToMap renders the entry as a credentialStatus object.
func (e *Entry) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":                   e.ID,
		"type":                 e.Type,
		"statusPurpose":        string(e.StatusPurpose),
		"statusListIndex":      e.StatusListIndex,
		"statusListCredential": e.StatusListCredential,
	}
}
