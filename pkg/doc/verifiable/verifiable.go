/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifiable implements Verifiable Credential and Presentation data model
// (https://www.w3.org/TR/vc-data-model).
// It provides the data structures consumed by the credential validators: credentials and presentations
// decoded from JSON or from JWT claims, a credential builder, and structural checks which do not involve
// cryptography (base context and type, subjects, issuer URI, credential status and non-transferability).
package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// ContextV1 is the base context of the VC Data Model 1.1.
	ContextV1 = "https://www.w3.org/2018/credentials/v1"
	// ContextV2 is the base context of the VC Data Model 2.0.
	ContextV2 = "https://www.w3.org/ns/credentials/v2"

	// TypeCredential is the base type of every credential.
	TypeCredential = "VerifiableCredential"
	// TypePresentation is the base type of every presentation.
	TypePresentation = "VerifiablePresentation"
)

// ErrInvalidStructure is returned by the structural checks.
var ErrInvalidStructure = errors.New("invalid structure")

// CustomFields is a map of extra fields of struct build when unmarshalling JSON which are not
// mapped to the struct fields.
type CustomFields map[string]interface{}

// TypedID defines a flexible structure with id and name fields and arbitrary extra fields
// kept in CustomFields. It is used for credentialStatus and credentialSchema.
type TypedID struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`

	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of TypedID to JSON.
func (tid TypedID) MarshalJSON() ([]byte, error) {
	type Alias TypedID

	alias := Alias(tid)

	data, err := marshalWithCustomFields(alias, tid.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal TypedID: %w", err)
	}

	return data, nil
}

// UnmarshalJSON defines custom unmarshalling of TypedID from JSON.
func (tid *TypedID) UnmarshalJSON(data []byte) error {
	type Alias TypedID

	alias := (*Alias)(tid)

	tid.CustomFields = make(CustomFields)

	err := unmarshalWithCustomFields(data, alias, tid.CustomFields)
	if err != nil {
		return fmt.Errorf("unmarshal TypedID: %w", err)
	}

	return nil
}

// ToMap returns the JSON object form of the typed ID, as consumed by the revocation packages.
func (tid *TypedID) ToMap() (map[string]interface{}, error) {
	return mergeCustomFields(struct {
		ID   string `json:"id,omitempty"`
		Type string `json:"type,omitempty"`
	}{ID: tid.ID, Type: tid.Type}, tid.CustomFields)
}

// TypedIDFromMap builds a typed ID from its JSON object form, such as the status maps of the revocation
// packages.
func TypedIDFromMap(m map[string]interface{}) TypedID {
	tid := TypedID{CustomFields: make(CustomFields)}

	for k, v := range m {
		switch k {
		case "id":
			tid.ID, _ = v.(string)
		case "type":
			tid.Type, _ = v.(string)
		default:
			tid.CustomFields[k] = v
		}
	}

	return tid
}

func decodeTypedIDs(raw json.RawMessage) ([]TypedID, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var single TypedID

	if err := json.Unmarshal(raw, &single); err == nil {
		return []TypedID{single}, nil
	}

	var composed []TypedID

	if err := json.Unmarshal(raw, &composed); err != nil {
		return nil, err
	}

	return composed, nil
}

func typedIDsToRaw(typedIDs []TypedID) (json.RawMessage, error) {
	switch len(typedIDs) {
	case 0:
		return nil, nil
	case 1:
		return json.Marshal(typedIDs[0])
	default:
		return json.Marshal(typedIDs)
	}
}
