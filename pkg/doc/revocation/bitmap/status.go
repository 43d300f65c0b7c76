/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bitmap

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
)

// StatusType is the credentialStatus type pointing into a RevocationBitmap2022 service.
const StatusType = "RevocationBitmap2022"

// IndexProperty is the credentialStatus property holding the index.
const IndexProperty = "revocationBitmapIndex"

// ErrInvalidStatus is returned when a credentialStatus cannot be read as a RevocationBitmap2022 status.
var ErrInvalidStatus = errors.New("invalid RevocationBitmap2022 status")

// Status references an index of the bitmap published in the issuer's DID document.
type Status struct {
	// ID is a DID URL naming the service.
	ID    string
	Index uint32
}

type rawStatus struct {
	ID    string      `mapstructure:"id"`
	Type  string      `mapstructure:"type"`
	Index interface{} `mapstructure:"revocationBitmapIndex"`
}

// NewStatus creates a status for the service and index.
func NewStatus(serviceURL string, index uint32) *Status {
	return &Status{ID: serviceURL, Index: index}
}

// ToMap renders the status as a credentialStatus object.
func (s *Status) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":          s.ID,
		"type":        StatusType,
		IndexProperty: strconv.FormatUint(uint64(s.Index), 10),
	}
}

// ParseStatus reads a credentialStatus object. The index is a string encoded uint32.
func ParseStatus(status map[string]interface{}) (*Status, error) {
	var raw rawStatus

	if err := mapstructure.Decode(status, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	if raw.Type != StatusType {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidStatus, raw.Type)
	}

	index, err := ParseIndex(raw.Index)
	if err != nil {
		return nil, err
	}

	if _, err = did.ParseDIDURL(raw.ID); err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidStatus, err)
	}

	return &Status{ID: raw.ID, Index: index}, nil
}

// ParseIndex reads a revocationBitmapIndex value.
func ParseIndex(value interface{}) (uint32, error) {
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a string", ErrInvalidStatus, IndexProperty)
	}

	index, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStatus, IndexProperty, err)
	}

	return uint32(index), nil
}

// IsRevokedIn resolves the status service in the issuer document and reports whether the index is revoked.
func (s *Status) IsRevokedIn(issuer *did.Doc) (bool, error) {
	svc, ok := issuer.ResolveService(s.ID)
	if !ok {
		return false, fmt.Errorf("%w: service %s not found in %s", ErrInvalidStatus, s.ID, issuer.ID)
	}

	b, err := FromService(svc)
	if err != nil {
		return false, err
	}

	return b.IsRevoked(s.Index), nil
}
