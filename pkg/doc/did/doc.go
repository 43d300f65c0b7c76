/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

const (
	// ContextV1 of the DID document.
	ContextV1 = "https://www.w3.org/ns/did/v1"
	// ContextV1Old of the DID document.
	ContextV1Old = "https://w3id.org/did/v1"
)

// ErrDocumentPayload is returned when the DID document bytes cannot be read.
var ErrDocumentPayload = errors.New("invalid DID document payload")

var schemaLoaderV1 = gojsonschema.NewStringLoader(schemaV1) //nolint:gochecknoglobals

var didRegex = regexp.MustCompile(`^did:[a-z0-9]+:(:+|[:a-zA-Z0-9-_\.%]+)*[a-zA-Z0-9-_\.%]+$`) //nolint:gochecknoglobals

// DID is parsed according to the generic syntax: https://w3c.github.io/did-core/#generic-did-syntax
type DID struct {
	Scheme           string // Scheme is always "did"
	Method           string // Method is the specific DID methods
	MethodSpecificID string // MethodSpecificID is the unique ID computed or assigned by the DID method
}

// String returns a string representation of this DID.
func (d *DID) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Scheme, d.Method, d.MethodSpecificID)
}

// Parse parses the string according to the generic DID syntax.
func Parse(did string) (*DID, error) {
	if !didRegex.MatchString(did) {
		return nil, fmt.Errorf("invalid did: %s. Make sure it conforms to the generic DID syntax", did)
	}

	parts := strings.SplitN(did, ":", 3)

	return &DID{
		Scheme:           "did",
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// DIDURL holds a DID URL split into its components.
type DIDURL struct { //nolint:revive
	DID      DID
	Path     string
	Queries  map[string][]string
	Fragment string
}

// String returns the DID URL with the fragment.
func (d *DIDURL) String() string {
	var sb strings.Builder

	sb.WriteString(d.DID.String())
	sb.WriteString(d.Path)

	if len(d.Queries) > 0 {
		sb.WriteString("?")
		sb.WriteString(url.Values(d.Queries).Encode())
	}

	if d.Fragment != "" {
		sb.WriteString("#")
		sb.WriteString(d.Fragment)
	}

	return sb.String()
}

// ParseDIDURL parses a DID URL string into a DIDURL.
func ParseDIDURL(didURL string) (*DIDURL, error) {
	rest, fragment, _ := strings.Cut(didURL, "#")
	rest, query, hasQuery := strings.Cut(rest, "?")

	didPart, path := rest, ""

	if i := strings.Index(rest, "/"); i >= 0 {
		didPart, path = rest[:i], rest[i:]
	}

	did, err := Parse(didPart)
	if err != nil {
		return nil, err
	}

	result := &DIDURL{DID: *did, Path: path, Fragment: fragment}

	if hasQuery {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, fmt.Errorf("failed to parse query of DID URL %s: %w", didURL, err)
		}

		result.Queries = values
	}

	return result, nil
}

// Doc DID Document definition.
type Doc struct {
	Context              []string
	ID                   string
	AlsoKnownAs          []string
	Controller           []string
	VerificationMethod   []VerificationMethod
	Authentication       []Verification
	AssertionMethod      []Verification
	KeyAgreement         []Verification
	CapabilityInvocation []Verification
	CapabilityDelegation []Verification
	Service              []Service
}

// VerificationRelationship defines a verification relationship between DID subject and a verification method.
type VerificationRelationship int

const (
	// VerificationRelationshipGeneral is used for the top level "verificationMethod" entries.
	VerificationRelationshipGeneral VerificationRelationship = iota
	// Authentication relationship.
	Authentication
	// AssertionMethod relationship.
	AssertionMethod
	// KeyAgreement relationship.
	KeyAgreement
	// CapabilityInvocation relationship.
	CapabilityInvocation
	// CapabilityDelegation relationship.
	CapabilityDelegation
)

// Verification authentication verification.
type Verification struct {
	VerificationMethod VerificationMethod
	Relationship       VerificationRelationship
	Embedded           bool
}

// NewReferencedVerification creates a reference to an existing verification method.
func NewReferencedVerification(vm *VerificationMethod, r VerificationRelationship) *Verification {
	return &Verification{VerificationMethod: *vm, Relationship: r}
}

// NewEmbeddedVerification creates a verification method embedded into the relationship.
func NewEmbeddedVerification(vm *VerificationMethod, r VerificationRelationship) *Verification {
	return &Verification{VerificationMethod: *vm, Relationship: r, Embedded: true}
}

// Service DID doc service.
type Service struct {
	ID              string
	Type            string
	ServiceEndpoint interface{}
	Properties      map[string]interface{}
}

// EndpointURI returns the service endpoint when it is a plain URI string.
func (s *Service) EndpointURI() (string, bool) {
	uri, ok := s.ServiceEndpoint.(string)

	return uri, ok
}

type rawDoc struct {
	Context              interface{}              `json:"@context,omitempty"`
	ID                   string                   `json:"id,omitempty"`
	AlsoKnownAs          []string                 `json:"alsoKnownAs,omitempty"`
	Controller           interface{}              `json:"controller,omitempty"`
	VerificationMethod   []map[string]interface{} `json:"verificationMethod,omitempty"`
	Authentication       []interface{}            `json:"authentication,omitempty"`
	AssertionMethod      []interface{}            `json:"assertionMethod,omitempty"`
	KeyAgreement         []interface{}            `json:"keyAgreement,omitempty"`
	CapabilityInvocation []interface{}            `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []interface{}            `json:"capabilityDelegation,omitempty"`
	Service              []map[string]interface{} `json:"service,omitempty"`
}

// ParseDocument creates an instance of DIDDocument by reading a JSON document from bytes.
func ParseDocument(data []byte) (*Doc, error) {
	raw := &rawDoc{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshalling of did doc bytes failed")
	} else if raw == nil {
		return nil, ErrDocumentPayload
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	doc := &Doc{
		Context:     parseContext(raw.Context),
		ID:          raw.ID,
		AlsoKnownAs: raw.AlsoKnownAs,
		Controller:  stringArray(raw.Controller),
	}

	vms, err := populateVerificationMethods(raw.VerificationMethod)
	if err != nil {
		return nil, errors.Wrap(err, "populate verification methods failed")
	}

	doc.VerificationMethod = vms

	for _, rel := range []struct {
		raw    []interface{}
		target *[]Verification
		kind   VerificationRelationship
	}{
		{raw.Authentication, &doc.Authentication, Authentication},
		{raw.AssertionMethod, &doc.AssertionMethod, AssertionMethod},
		{raw.KeyAgreement, &doc.KeyAgreement, KeyAgreement},
		{raw.CapabilityInvocation, &doc.CapabilityInvocation, CapabilityInvocation},
		{raw.CapabilityDelegation, &doc.CapabilityDelegation, CapabilityDelegation},
	} {
		verifications, err := populateVerifications(doc.ID, rel.raw, rel.kind, vms)
		if err != nil {
			return nil, errors.Wrapf(err, "populate relationship %d failed", rel.kind)
		}

		*rel.target = verifications
	}

	doc.Service = populateServices(raw.Service)

	return doc, nil
}

// UnmarshalJSON reads a DID document through ParseDocument.
func (doc *Doc) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}

	*doc = *parsed

	return nil
}

// MarshalJSON writes the DID document.
func (doc *Doc) MarshalJSON() ([]byte, error) {
	return doc.JSONBytes()
}

// JSONBytes converts document to json bytes.
func (doc *Doc) JSONBytes() ([]byte, error) {
	raw := &rawDoc{
		ID:          doc.ID,
		AlsoKnownAs: doc.AlsoKnownAs,
		Service:     populateRawServices(doc.Service),
	}

	switch len(doc.Context) {
	case 0:
		raw.Context = ContextV1
	case 1:
		raw.Context = doc.Context[0]
	default:
		raw.Context = doc.Context
	}

	switch len(doc.Controller) {
	case 0:
	case 1:
		raw.Controller = doc.Controller[0]
	default:
		raw.Controller = doc.Controller
	}

	for i := range doc.VerificationMethod {
		rawVM, err := populateRawVerificationMethod(&doc.VerificationMethod[i])
		if err != nil {
			return nil, err
		}

		raw.VerificationMethod = append(raw.VerificationMethod, rawVM)
	}

	var err error

	if raw.Authentication, err = populateRawVerifications(doc.Authentication); err != nil {
		return nil, err
	}

	if raw.AssertionMethod, err = populateRawVerifications(doc.AssertionMethod); err != nil {
		return nil, err
	}

	if raw.KeyAgreement, err = populateRawVerifications(doc.KeyAgreement); err != nil {
		return nil, err
	}

	if raw.CapabilityInvocation, err = populateRawVerifications(doc.CapabilityInvocation); err != nil {
		return nil, err
	}

	if raw.CapabilityDelegation, err = populateRawVerifications(doc.CapabilityDelegation); err != nil {
		return nil, err
	}

	byteDoc, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "JSON marshalling of document failed")
	}

	return byteDoc, nil
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoaderV1, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(err, "validation of DID doc failed")
	}

	if !result.Valid() {
		errMsg := "did document not valid:\n"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", desc)
		}

		return errors.New(errMsg)
	}

	return nil
}

func populateVerificationMethods(rawVMs []map[string]interface{}) ([]VerificationMethod, error) {
	vms := make([]VerificationMethod, 0, len(rawVMs))

	for _, rawVM := range rawVMs {
		vm, err := decodeVerificationMethod(rawVM)
		if err != nil {
			return nil, err
		}

		vms = append(vms, *vm)
	}

	return vms, nil
}

func populateVerifications(didID string, rawVerifications []interface{}, rel VerificationRelationship,
	vms []VerificationMethod) ([]Verification, error) {
	var verifications []Verification

	for _, rawVerification := range rawVerifications {
		switch v := rawVerification.(type) {
		case string:
			vm, ok := findMethod(didID, vms, v)
			if !ok {
				return nil, fmt.Errorf("verification method %s is not defined in the document", v)
			}

			verifications = append(verifications, *NewReferencedVerification(vm, rel))
		case map[string]interface{}:
			vm, err := decodeVerificationMethod(v)
			if err != nil {
				return nil, err
			}

			verifications = append(verifications, *NewEmbeddedVerification(vm, rel))
		default:
			return nil, fmt.Errorf("verification method of type %T is not supported", rawVerification)
		}
	}

	return verifications, nil
}

func populateServices(rawServices []map[string]interface{}) []Service {
	services := make([]Service, 0, len(rawServices))

	for _, rawService := range rawServices {
		service := Service{
			ID:              stringEntry(rawService["id"]),
			Type:            stringEntry(rawService["type"]),
			ServiceEndpoint: rawService["serviceEndpoint"],
		}

		for k, v := range rawService {
			if k == "id" || k == "type" || k == "serviceEndpoint" {
				continue
			}

			if service.Properties == nil {
				service.Properties = make(map[string]interface{})
			}

			service.Properties[k] = v
		}

		services = append(services, service)
	}

	return services
}

func populateRawServices(services []Service) []map[string]interface{} {
	rawServices := make([]map[string]interface{}, 0, len(services))

	for i := range services {
		rawService := make(map[string]interface{}, len(services[i].Properties)+3)

		for k, v := range services[i].Properties {
			rawService[k] = v
		}

		rawService["id"] = services[i].ID
		rawService["type"] = services[i].Type
		rawService["serviceEndpoint"] = services[i].ServiceEndpoint

		rawServices = append(rawServices, rawService)
	}

	return rawServices
}

func populateRawVerifications(verifications []Verification) ([]interface{}, error) {
	var raw []interface{}

	for i := range verifications {
		if !verifications[i].Embedded {
			raw = append(raw, verifications[i].VerificationMethod.ID)

			continue
		}

		rawVM, err := populateRawVerificationMethod(&verifications[i].VerificationMethod)
		if err != nil {
			return nil, err
		}

		raw = append(raw, rawVM)
	}

	return raw, nil
}

func parseContext(context interface{}) []string {
	switch ctx := context.(type) {
	case string:
		return []string{ctx}
	case []interface{}:
		var result []string

		for _, c := range ctx {
			if s, ok := c.(string); ok {
				result = append(result, s)
			}
		}

		return result
	}

	return []string{ContextV1}
}

func stringEntry(entry interface{}) string {
	if s, ok := entry.(string); ok {
		return s
	}

	return ""
}

func stringArray(entry interface{}) []string {
	switch e := entry.(type) {
	case string:
		return []string{e}
	case []interface{}:
		var result []string

		for _, v := range e {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}

		return result
	}

	return nil
}

// DocOption provides options to build DID Doc.
type DocOption func(opts *Doc)

// WithVerificationMethod DID doc verification methods.
func WithVerificationMethod(vms ...VerificationMethod) DocOption {
	return func(opts *Doc) {
		opts.VerificationMethod = append(opts.VerificationMethod, vms...)
	}
}

// WithAuthentication DID doc Authentication.
func WithAuthentication(auth ...Verification) DocOption {
	return func(opts *Doc) {
		opts.Authentication = append(opts.Authentication, auth...)
	}
}

// WithAssertionMethod DID doc AssertionMethod.
func WithAssertionMethod(am ...Verification) DocOption {
	return func(opts *Doc) {
		opts.AssertionMethod = append(opts.AssertionMethod, am...)
	}
}

// WithService DID doc services.
func WithService(svc ...Service) DocOption {
	return func(opts *Doc) {
		opts.Service = append(opts.Service, svc...)
	}
}

// BuildDoc creates the DID Doc from options.
func BuildDoc(id string, opts ...DocOption) *Doc {
	doc := &Doc{ID: id, Context: []string{ContextV1}}

	for _, opt := range opts {
		opt(doc)
	}

	return doc
}

// DocWithKey is a convenience constructor for a DID document with a single assertion key.
func DocWithKey(id, fragment string, key *jwk.JWK) (*Doc, error) {
	vm, err := NewVerificationMethodFromJWK(id+"#"+fragment, "JsonWebKey2020", id, key)
	if err != nil {
		return nil, err
	}

	return BuildDoc(id,
		WithVerificationMethod(*vm),
		WithAssertionMethod(*NewReferencedVerification(vm, AssertionMethod)),
		WithAuthentication(*NewReferencedVerification(vm, Authentication)),
	), nil
}
