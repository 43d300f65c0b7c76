/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const basePresentationSchema = `
{
  "type": "object",
  "properties": {
    "@context": {
      "anyOf": [
        {"type": "string"},
        {"type": "array", "items": {"anyOf": [{"type": "string"}, {"type": "object"}]}}
      ]
    },
    "id": {"type": "string"},
    "type": {
      "anyOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "verifiableCredential": {
      "anyOf": [
        {"type": "array"},
        {"type": "object"},
        {"type": "string"}
      ]
    },
    "holder": {"type": "string"}
  }
}
`

//nolint:gochecknoglobals
var basePresentationSchemaLoader = gojsonschema.NewStringLoader(basePresentationSchema)

// Presentation Verifiable Presentation base data model definition.
// Enclosed credentials are kept in the form they were presented in: *Credential for embedded JSON
// credentials, string for JWT (and other compact) credentials, and the decoded JSON value otherwise.
type Presentation struct {
	Context       []string
	CustomContext []interface{}
	ID            string
	Types         []string
	Holder        string

	CustomFields CustomFields

	credentials []interface{}
}

// rawPresentation is a basic verifiable presentation.
type rawPresentation struct {
	Context    interface{}     `json:"@context,omitempty"`
	ID         string          `json:"id,omitempty"`
	Type       interface{}     `json:"type,omitempty"`
	Credential json.RawMessage `json:"verifiableCredential,omitempty"`
	Holder     string          `json:"holder,omitempty"`

	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of rawPresentation to JSON.
func (rp *rawPresentation) MarshalJSON() ([]byte, error) {
	type Alias rawPresentation

	return marshalWithCustomFields((*Alias)(rp), rp.CustomFields)
}

// UnmarshalJSON defines custom unmarshalling of rawPresentation from JSON.
func (rp *rawPresentation) UnmarshalJSON(data []byte) error {
	type Alias rawPresentation

	rp.CustomFields = make(CustomFields)

	return unmarshalWithCustomFields(data, (*Alias)(rp), rp.CustomFields)
}

// NewPresentation creates an empty presentation with the base context and type.
func NewPresentation() *Presentation {
	return &Presentation{
		Context: []string{ContextV1},
		Types:   []string{TypePresentation},
	}
}

// ParsePresentation decodes a Verifiable Presentation from its JSON form.
func ParsePresentation(vpData []byte) (*Presentation, error) {
	if err := validateShape(basePresentationSchemaLoader, vpData, "verifiable presentation"); err != nil {
		return nil, err
	}

	raw := new(rawPresentation)

	if err := json.Unmarshal(vpData, raw); err != nil {
		return nil, fmt.Errorf("unmarshal verifiable presentation: %w", err)
	}

	return newPresentation(raw)
}

func newPresentation(raw *rawPresentation) (*Presentation, error) {
	types, err := decodeType(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("fill presentation types from raw: %w", err)
	}

	context, customContext, err := decodeContext(raw.Context)
	if err != nil {
		return nil, fmt.Errorf("fill presentation context from raw: %w", err)
	}

	creds, err := decodeCredentials(raw.Credential)
	if err != nil {
		return nil, fmt.Errorf("fill presentation credentials from raw: %w", err)
	}

	return &Presentation{
		Context:       context,
		CustomContext: customContext,
		ID:            raw.ID,
		Types:         types,
		Holder:        raw.Holder,
		CustomFields:  raw.CustomFields,
		credentials:   creds,
	}, nil
}

// Credentials returns the enclosed credentials.
func (vp *Presentation) Credentials() []interface{} {
	return vp.credentials
}

// AddCredentials appends embedded JSON credentials.
func (vp *Presentation) AddCredentials(credentials ...*Credential) {
	for _, vc := range credentials {
		vp.credentials = append(vp.credentials, vc)
	}
}

// AddJWTCredentials appends credentials in compact (JWT, SD-JWT) form.
func (vp *Presentation) AddJWTCredentials(credentials ...string) {
	for _, vc := range credentials {
		vp.credentials = append(vp.credentials, vc)
	}
}

// JWTCredentials returns the enclosed compact credentials with their position in the credential list.
func (vp *Presentation) JWTCredentials() map[int]string {
	creds := make(map[int]string)

	for i, vc := range vp.credentials {
		if s, ok := vc.(string); ok {
			creds[i] = s
		}
	}

	return creds
}

func (vp *Presentation) raw() (*rawPresentation, error) {
	var (
		creds json.RawMessage
		err   error
	)

	if len(vp.credentials) > 0 {
		creds, err = json.Marshal(vp.credentials)
		if err != nil {
			return nil, err
		}
	}

	return &rawPresentation{
		Context:      contextToRaw(vp.Context, vp.CustomContext),
		ID:           vp.ID,
		Type:         typesToRaw(vp.Types),
		Credential:   creds,
		Holder:       vp.Holder,
		CustomFields: vp.CustomFields,
	}, nil
}

// MarshalJSON converts Verifiable Presentation to JSON bytes.
func (vp *Presentation) MarshalJSON() ([]byte, error) {
	raw, err := vp.raw()
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable presentation: %w", err)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable presentation: %w", err)
	}

	return b, nil
}

func decodeCredentials(raw json.RawMessage) ([]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage

	if err := json.Unmarshal(raw, &entries); err != nil {
		// single credential
		entries = []json.RawMessage{raw}
	}

	creds := make([]interface{}, 0, len(entries))

	for i, entry := range entries {
		var value interface{}

		if err := json.Unmarshal(entry, &value); err != nil {
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}

		switch v := value.(type) {
		case string:
			creds = append(creds, v)
		case map[string]interface{}:
			vc, err := ParseCredential(entry)
			if err != nil {
				// kept opaque; validators report it
				creds = append(creds, v)

				continue
			}

			creds = append(creds, vc)
		default:
			creds = append(creds, v)
		}
	}

	return creds, nil
}
