/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const baseCredentialSchema = `
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
    "credentialSubject": {
      "anyOf": [
        {"type": "object"},
        {"type": "array", "items": {"type": "object"}}
      ]
    },
    "issuer": {
      "anyOf": [
        {"type": "string"},
        {"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}
      ]
    },
    "issuanceDate": {"type": "string"},
    "validFrom": {"type": "string"},
    "expirationDate": {"type": "string"},
    "validUntil": {"type": "string"},
    "credentialStatus": {"type": "object"},
    "credentialSchema": {
      "anyOf": [
        {"type": "object"},
        {"type": "array", "items": {"type": "object"}}
      ]
    },
    "nonTransferable": {"type": "boolean"}
  }
}
`

//nolint:gochecknoglobals
var baseCredentialSchemaLoader = gojsonschema.NewStringLoader(baseCredentialSchema)

// Issuer of the Verifiable Credential.
type Issuer struct {
	ID string `json:"id,omitempty"`

	CustomFields CustomFields `json:"-"`
}

// MarshalJSON marshals Issuer to JSON.
func (i Issuer) MarshalJSON() ([]byte, error) {
	if len(i.CustomFields) == 0 {
		// as string
		return json.Marshal(i.ID)
	}

	// as object
	type Alias Issuer

	data, err := marshalWithCustomFields(Alias(i), i.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal Issuer: %w", err)
	}

	return data, nil
}

// UnmarshalJSON unmarshals issuer from JSON.
func (i *Issuer) UnmarshalJSON(bytes []byte) error {
	var issuerID string

	if err := json.Unmarshal(bytes, &issuerID); err == nil {
		i.ID = issuerID

		return nil
	}

	type Alias Issuer

	alias := (*Alias)(i)

	i.CustomFields = make(CustomFields)

	if err := unmarshalWithCustomFields(bytes, alias, i.CustomFields); err != nil {
		return fmt.Errorf("unmarshal Issuer: %w", err)
	}

	if i.ID == "" {
		return errors.New("issuer ID is not defined")
	}

	return nil
}

// Subject of the Verifiable Credential.
type Subject struct {
	ID string `json:"id,omitempty"`

	CustomFields CustomFields `json:"-"`
}

// MarshalJSON marshals Subject to JSON.
func (s Subject) MarshalJSON() ([]byte, error) {
	type Alias Subject

	data, err := marshalWithCustomFields(Alias(s), s.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal Subject: %w", err)
	}

	return data, nil
}

// UnmarshalJSON unmarshals Subject from JSON.
func (s *Subject) UnmarshalJSON(bytes []byte) error {
	type Alias Subject

	alias := (*Alias)(s)

	s.CustomFields = make(CustomFields)

	if err := unmarshalWithCustomFields(bytes, alias, s.CustomFields); err != nil {
		return fmt.Errorf("unmarshal Subject: %w", err)
	}

	return nil
}

// ToMap returns the JSON object form of the subject.
func (s *Subject) ToMap() (map[string]interface{}, error) {
	return toMap(s)
}

// Credential Verifiable Credential definition.
type Credential struct {
	Context         []string
	CustomContext   []interface{}
	ID              string
	Types           []string
	Subject         []Subject
	Issuer          Issuer
	Issued          *time.Time
	Expired         *time.Time
	Status          *TypedID
	Schemas         []TypedID
	NonTransferable bool

	CustomFields CustomFields
}

// rawCredential is a basic verifiable credential.
type rawCredential struct {
	Context         interface{}     `json:"@context,omitempty"`
	ID              string          `json:"id,omitempty"`
	Type            interface{}     `json:"type,omitempty"`
	Subject         json.RawMessage `json:"credentialSubject,omitempty"`
	Issued          string          `json:"issuanceDate,omitempty"`
	ValidFrom       string          `json:"validFrom,omitempty"`
	Expired         string          `json:"expirationDate,omitempty"`
	ValidUntil      string          `json:"validUntil,omitempty"`
	Status          *TypedID        `json:"credentialStatus,omitempty"`
	Issuer          json.RawMessage `json:"issuer,omitempty"`
	Schema          json.RawMessage `json:"credentialSchema,omitempty"`
	NonTransferable bool            `json:"nonTransferable,omitempty"`

	// All unmapped fields are put here.
	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of rawCredential to JSON.
func (rc *rawCredential) MarshalJSON() ([]byte, error) {
	type Alias rawCredential

	return marshalWithCustomFields((*Alias)(rc), rc.CustomFields)
}

// UnmarshalJSON defines custom unmarshalling of rawCredential from JSON.
func (rc *rawCredential) UnmarshalJSON(data []byte) error {
	type Alias rawCredential

	rc.CustomFields = make(CustomFields)

	return unmarshalWithCustomFields(data, (*Alias)(rc), rc.CustomFields)
}

// ParseCredential decodes a Verifiable Credential from its JSON form. It checks the JSON shape of the
// well-known properties only; see CheckStructure for the semantic checks.
func ParseCredential(vcData []byte) (*Credential, error) {
	if err := validateShape(baseCredentialSchemaLoader, vcData, "verifiable credential"); err != nil {
		return nil, err
	}

	raw := new(rawCredential)

	if err := json.Unmarshal(vcData, raw); err != nil {
		return nil, fmt.Errorf("unmarshal verifiable credential: %w", err)
	}

	vc, err := newCredential(raw)
	if err != nil {
		return nil, fmt.Errorf("decode verifiable credential: %w", err)
	}

	return vc, nil
}

func newCredential(raw *rawCredential) (*Credential, error) {
	types, err := decodeType(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("fill credential types from raw: %w", err)
	}

	context, customContext, err := decodeContext(raw.Context)
	if err != nil {
		return nil, fmt.Errorf("fill credential context from raw: %w", err)
	}

	var issuer Issuer

	if len(raw.Issuer) > 0 {
		if err = json.Unmarshal(raw.Issuer, &issuer); err != nil {
			return nil, fmt.Errorf("fill credential issuer from raw: %w", err)
		}
	}

	subjects, err := decodeSubjects(raw.Subject)
	if err != nil {
		return nil, fmt.Errorf("fill credential subject from raw: %w", err)
	}

	schemas, err := decodeTypedIDs(raw.Schema)
	if err != nil {
		return nil, fmt.Errorf("fill credential schemas from raw: %w", err)
	}

	issued, err := decodeDate(firstNonEmpty(raw.Issued, raw.ValidFrom))
	if err != nil {
		return nil, fmt.Errorf("parse issuance date: %w", err)
	}

	expired, err := decodeDate(firstNonEmpty(raw.Expired, raw.ValidUntil))
	if err != nil {
		return nil, fmt.Errorf("parse expiration date: %w", err)
	}

	return &Credential{
		Context:         context,
		CustomContext:   customContext,
		ID:              raw.ID,
		Types:           types,
		Subject:         subjects,
		Issuer:          issuer,
		Issued:          issued,
		Expired:         expired,
		Status:          raw.Status,
		Schemas:         schemas,
		NonTransferable: raw.NonTransferable,
		CustomFields:    raw.CustomFields,
	}, nil
}

func (vc *Credential) raw() (*rawCredential, error) {
	var (
		issuer json.RawMessage
		err    error
	)

	if vc.Issuer.ID != "" || len(vc.Issuer.CustomFields) > 0 {
		issuer, err = json.Marshal(vc.Issuer)
		if err != nil {
			return nil, err
		}
	}

	schema, err := typedIDsToRaw(vc.Schemas)
	if err != nil {
		return nil, err
	}

	subject, err := subjectsToRaw(vc.Subject)
	if err != nil {
		return nil, err
	}

	r := &rawCredential{
		Context:         contextToRaw(vc.Context, vc.CustomContext),
		ID:              vc.ID,
		Type:            typesToRaw(vc.Types),
		Subject:         subject,
		Status:          vc.Status,
		Issuer:          issuer,
		Schema:          schema,
		NonTransferable: vc.NonTransferable,
		CustomFields:    vc.CustomFields,
	}

	v2 := vc.isV2()

	if vc.Issued != nil {
		if v2 {
			r.ValidFrom = encodeDate(*vc.Issued)
		} else {
			r.Issued = encodeDate(*vc.Issued)
		}
	}

	if vc.Expired != nil {
		if v2 {
			r.ValidUntil = encodeDate(*vc.Expired)
		} else {
			r.Expired = encodeDate(*vc.Expired)
		}
	}

	return r, nil
}

// MarshalJSON converts Verifiable Credential to JSON bytes.
func (vc *Credential) MarshalJSON() ([]byte, error) {
	raw, err := vc.raw()
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable credential: %w", err)
	}

	byteCred, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable credential: %w", err)
	}

	return byteCred, nil
}

// ToMap returns the JSON object form of the credential.
func (vc *Credential) ToMap() (map[string]interface{}, error) {
	return toMap(vc)
}

// SubjectIDs returns the ids of the credential subjects which have one.
func (vc *Credential) SubjectIDs() []string {
	var ids []string

	for _, s := range vc.Subject {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}

	return ids
}

// Presentation encloses credential into presentation.
func (vc *Credential) Presentation() *Presentation {
	vp := NewPresentation()
	vp.AddCredentials(vc)

	return vp
}

func (vc *Credential) isV2() bool {
	return len(vc.Context) > 0 && vc.Context[0] == ContextV2
}

func decodeSubjects(raw json.RawMessage) ([]Subject, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var single Subject

	if err := json.Unmarshal(raw, &single); err == nil {
		return []Subject{single}, nil
	}

	var many []Subject

	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}

	return many, nil
}

func subjectsToRaw(subjects []Subject) (json.RawMessage, error) {
	switch len(subjects) {
	case 0:
		return nil, nil
	case 1:
		return json.Marshal(subjects[0])
	default:
		return json.Marshal(subjects)
	}
}

// decodeDate decodes given date to '*time.Time'. Returns nil with no error for an empty string.
func decodeDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil //nolint:nilnil
	}

	d, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func encodeDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeType(t interface{}) ([]string, error) {
	switch rType := t.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{rType}, nil
	case []interface{}:
		types := make([]string, 0, len(rType))

		for _, v := range rType {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("vc types must be strings, got %T", v)
			}

			types = append(types, s)
		}

		return types, nil
	default:
		return nil, errors.New("credential type of unknown structure")
	}
}

// decodeContext splits @context into string entries and inline context objects.
func decodeContext(c interface{}) ([]string, []interface{}, error) {
	switch rContext := c.(type) {
	case nil:
		return nil, nil, nil
	case string:
		return []string{rContext}, nil, nil
	case []interface{}:
		s := make([]string, 0)

		for i := range rContext {
			c, valid := rContext[i].(string)
			if !valid {
				// the remaining contexts are of custom type
				return s, rContext[i:], nil
			}

			s = append(s, c)
		}

		return s, nil, nil
	default:
		return nil, nil, errors.New("credential context of unknown type")
	}
}

func typesToRaw(types []string) interface{} {
	switch len(types) {
	case 0:
		return nil
	case 1:
		// as string
		return types[0]
	default:
		return types
	}
}

func contextToRaw(context []string, cContext []interface{}) interface{} {
	if len(cContext) > 0 {
		sContext := make([]interface{}, len(context), len(context)+len(cContext))
		for i := range context {
			sContext[i] = context[i]
		}

		return append(sContext, cContext...)
	}

	if len(context) == 0 {
		return nil
	}

	return context
}

func validateShape(schema gojsonschema.JSONLoader, data []byte, what string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation of %s: %w", what, err)
	}

	if !result.Valid() {
		errMsg := what + " is not valid:\n"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", desc)
		}

		return errors.New(errMsg)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
