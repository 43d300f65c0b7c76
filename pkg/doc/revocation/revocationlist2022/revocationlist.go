/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package revocationlist2022 implements SimpleRevocationList2022: a roaring bitmap of revoked indices published
// base64url encoded in a revocation list credential.
package revocationlist2022

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/mitchellh/mapstructure"
)

const (
	// EntryType is the credentialStatus type.
	EntryType = "SimpleRevocationList2022Entry"
	// SubjectType is the credentialSubject type of the revocation list credential.
	SubjectType = "SimpleRevocationList2022"
)

var (
	// ErrInvalidList is returned when an encoded list cannot be decoded.
	ErrInvalidList = errors.New("invalid SimpleRevocationList2022")
	// ErrInvalidEntry is returned when a credentialStatus is not a valid SimpleRevocationList2022Entry.
	ErrInvalidEntry = errors.New("invalid SimpleRevocationList2022Entry")
)

// SimpleRevocationList2022 is a set of revoked credential indices.
type SimpleRevocationList2022 struct {
	bitmap *roaring.Bitmap
}

// New creates an empty list.
func New() *SimpleRevocationList2022 {
	return &SimpleRevocationList2022{bitmap: roaring.New()}
}

// IsRevoked reports whether index is revoked.
func (l *SimpleRevocationList2022) IsRevoked(index uint32) bool {
	return l.bitmap.Contains(index)
}

// Revoke revokes index. It returns false when the index was already revoked.
func (l *SimpleRevocationList2022) Revoke(index uint32) bool {
	return l.bitmap.CheckedAdd(index)
}

// UndoRevocation un-revokes index. It returns false when the index was not revoked.
func (l *SimpleRevocationList2022) UndoRevocation(index uint32) bool {
	return l.bitmap.CheckedRemove(index)
}

// Len returns the number of revoked indices.
func (l *SimpleRevocationList2022) Len() uint64 {
	return l.bitmap.GetCardinality()
}

// Equal reports whether both lists revoke the same indices.
func (l *SimpleRevocationList2022) Equal(other *SimpleRevocationList2022) bool {
	return other != nil && l.bitmap.Equals(other.bitmap)
}

// Encode returns the roaring portable serialization, base64url encoded without padding.
func (l *SimpleRevocationList2022) Encode() (string, error) {
	optimized := l.bitmap.Clone()
	optimized.RunOptimize()

	raw, err := optimized.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize revocation list: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reads a list written by Encode.
func Decode(encoded string) (*SimpleRevocationList2022, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}

	bm := roaring.New()

	if err = bm.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}

	return &SimpleRevocationList2022{bitmap: bm}, nil
}

// Entry is the credentialStatus pointing into a revocation list credential.
type Entry struct {
	ID                       string `mapstructure:"id"`
	Type                     string `mapstructure:"type"`
	RevocationListIndex      string `mapstructure:"revocationListIndex"`
	RevocationListCredential string `mapstructure:"revocationListCredential"`
}

// NewEntry creates an entry for index in the list credential at listURL.
func NewEntry(listURL string, index uint32) *Entry {
	return &Entry{
		ID:                       fmt.Sprintf("%s#%d", listURL, index),
		Type:                     EntryType,
		RevocationListIndex:      strconv.FormatUint(uint64(index), 10),
		RevocationListCredential: listURL,
	}
}

// ParseEntry reads and validates a credentialStatus object.
func ParseEntry(status map[string]interface{}) (*Entry, error) {
	var entry Entry

	if err := mapstructure.Decode(status, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.Type != EntryType {
		return nil, fmt.Errorf("%w: type must be %s", ErrInvalidEntry, EntryType)
	}

	if _, err := entry.Index(); err != nil {
		return nil, err
	}

	if _, err := url.ParseRequestURI(entry.RevocationListCredential); err != nil {
		return nil, fmt.Errorf("%w: revocationListCredential: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Index returns revocationListIndex as uint32.
func (e *Entry) Index() (uint32, error) {
	n, err := strconv.ParseUint(e.RevocationListIndex, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: revocationListIndex %q", ErrInvalidEntry, e.RevocationListIndex)
	}

	return uint32(n), nil
}

// ToMap renders the entry as a credentialStatus object.
func (e *Entry) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":                       e.ID,
		"type":                     e.Type,
		"revocationListIndex":      e.RevocationListIndex,
		"revocationListCredential": e.RevocationListCredential,
	}
}

// ParseCredentialSubject reads the encoded list from the credentialSubject of a revocation list credential.
func ParseCredentialSubject(subject map[string]interface{}) (*SimpleRevocationList2022, error) {
	if t, _ := subject["type"].(string); t != SubjectType {
		return nil, fmt.Errorf("%w: credentialSubject.type must be %s", ErrInvalidList, SubjectType)
	}

	encoded, ok := subject["encodedList"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: encodedList is required", ErrInvalidList)
	}

	return Decode(encoded)
}

// CredentialSubject renders the list as a credentialSubject object.
func (l *SimpleRevocationList2022) CredentialSubject(id string) (map[string]interface{}, error) {
	encoded, err := l.Encode()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"id": id, "type": SubjectType, "encodedList": encoded}, nil
}
