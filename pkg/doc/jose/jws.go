/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	jwsPartsCount    = 3
	jwsHeaderPart    = 0
	jwsPayloadPart   = 1
	jwsSignaturePart = 2
)

// ErrJWSDecoding is returned for every malformed compact JWS.
var ErrJWSDecoding = errors.New("JWS decoding")

// Signer defines JWS Signer interface. It makes signing of data and provides custom JWS headers relevant to the signer.
type Signer interface {
	// Sign signs.
	Sign(data []byte) ([]byte, error)
	// Headers provides JWS headers. "alg" header must be provided (see https://tools.ietf.org/html/rfc7515#section-4.1)
	Headers() Headers
}

// JSONWebSignature defines JSON Web Signature (https://tools.ietf.org/html/rfc7515)
type JSONWebSignature struct {
	ProtectedHeaders Headers

	Payload []byte

	// signingInput is the exact "header.payload" the signature was computed over.
	signingInput []byte
	signature    []byte

	rawHeader string
}

// jwsParseOpts holds options for the JWS Parsing.
type jwsParseOpts struct {
	detachedPayload []byte
	critical        map[string]bool
}

// JWSParseOpt is the JWS Parser option.
type JWSParseOpt func(opts *jwsParseOpts)

// WithJWSDetachedPayload option is for definition of JWS detached payload.
func WithJWSDetachedPayload(payload []byte) JWSParseOpt {
	return func(opts *jwsParseOpts) {
		opts.detachedPayload = payload
	}
}

// WithUnderstoodCritical lists the "crit" header names the caller is able to process.
func WithUnderstoodCritical(names ...string) JWSParseOpt {
	return func(opts *jwsParseOpts) {
		for _, n := range names {
			opts.critical[n] = true
		}
	}
}

// NewJWS creates JSON Web Signature in compact form. Only protected headers are supported.
func NewJWS(protectedHeaders Headers, payload []byte, signer Signer) (*JSONWebSignature, error) {
	headers := make(Headers, len(protectedHeaders))

	for k, v := range signer.Headers() {
		headers[k] = v
	}

	for k, v := range protectedHeaders {
		headers[k] = v
	}

	if _, ok := headers.Algorithm(); !ok {
		return nil, errors.New("alg JWS header is not defined")
	}

	headersBytes, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("serialize JWS headers: %w", err)
	}

	rawHeader := base64.RawURLEncoding.EncodeToString(headersBytes)
	signingInput := []byte(rawHeader + "." + base64.RawURLEncoding.EncodeToString(payload))

	signature, err := signer.Sign(signingInput)
	if err != nil {
		return nil, fmt.Errorf("sign JWS verification data: %w", err)
	}

	return &JSONWebSignature{
		ProtectedHeaders: headers,
		Payload:          payload,
		signingInput:     signingInput,
		signature:        signature,
		rawHeader:        rawHeader,
	}, nil
}

// SerializeCompact makes JWS Compact Serialization (https://tools.ietf.org/html/rfc7515#section-7.1)
func (s *JSONWebSignature) SerializeCompact(detached bool) string {
	payload := ""
	if !detached {
		payload = base64.RawURLEncoding.EncodeToString(s.Payload)
	}

	return fmt.Sprintf("%s.%s.%s", s.rawHeader, payload, base64.RawURLEncoding.EncodeToString(s.signature))
}

// Signature returns the decoded signature of the JWS.
func (s *JSONWebSignature) Signature() []byte {
	return s.signature
}

// SigningInput returns the bytes the signature was computed over, exactly as received.
func (s *JSONWebSignature) SigningInput() []byte {
	return s.signingInput
}

// ParseJWS parses serialized JWS. Only the compact serialization is supported.
// The signature is decoded but not verified.
func ParseJWS(jws string, opts ...JWSParseOpt) (*JSONWebSignature, error) {
	pOpts := &jwsParseOpts{critical: map[string]bool{}}

	for _, opt := range opts {
		opt(pOpts)
	}

	if strings.HasPrefix(strings.TrimSpace(jws), "{") {
		return nil, fmt.Errorf("%w: JWS JSON serialization is not supported", ErrJWSDecoding)
	}

	return parseCompacted(jws, pOpts)
}

// IsCompactJWS checks weather input is a compact JWS (based on https://tools.ietf.org/html/rfc7516#section-9)
func IsCompactJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == jwsPartsCount
}

func parseCompacted(jwsCompact string, opts *jwsParseOpts) (*JSONWebSignature, error) {
	if strings.ContainsAny(jwsCompact, " \t\r\n") {
		return nil, fmt.Errorf("%w: whitespace in compact JWS", ErrJWSDecoding)
	}

	parts := strings.Split(jwsCompact, ".")
	if len(parts) != jwsPartsCount {
		return nil, fmt.Errorf("%w: invalid JWS compact format", ErrJWSDecoding)
	}

	headersBytes, err := base64.RawURLEncoding.DecodeString(parts[jwsHeaderPart])
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 header: %v", ErrJWSDecoding, err)
	}

	var headers Headers

	if err = json.Unmarshal(headersBytes, &headers); err != nil {
		return nil, fmt.Errorf("%w: unmarshal JSON headers: %v", ErrJWSDecoding, err)
	}

	if err = checkJWSHeaders(headers, opts.critical); err != nil {
		return nil, err
	}

	payload, err := jwsPayload(parts[jwsPayloadPart], opts.detachedPayload)
	if err != nil {
		return nil, err
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[jwsSignaturePart])
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 signature: %v", ErrJWSDecoding, err)
	}

	encodedPayload := parts[jwsPayloadPart]
	if opts.detachedPayload != nil {
		encodedPayload = base64.RawURLEncoding.EncodeToString(opts.detachedPayload)
	}

	return &JSONWebSignature{
		ProtectedHeaders: headers,
		Payload:          payload,
		signingInput:     []byte(parts[jwsHeaderPart] + "." + encodedPayload),
		signature:        signature,
		rawHeader:        parts[jwsHeaderPart],
	}, nil
}

func jwsPayload(payloadPart string, detachedPayload []byte) ([]byte, error) {
	if detachedPayload != nil {
		if payloadPart != "" {
			return nil, fmt.Errorf("%w: payload is both attached and detached", ErrJWSDecoding)
		}

		return detachedPayload, nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 payload: %v", ErrJWSDecoding, err)
	}

	return payload, nil
}

func checkJWSHeaders(headers Headers, understood map[string]bool) error {
	if _, ok := headers.Algorithm(); !ok {
		return fmt.Errorf("%w: alg JWS header is not defined", ErrJWSDecoding)
	}

	if b64, ok := headers[HeaderB64Payload]; ok && b64 != true {
		return fmt.Errorf("%w: unencoded payload is not supported", ErrJWSDecoding)
	}

	crit, ok := headers.Critical()
	if !ok {
		return nil
	}

	if len(crit) == 0 {
		return fmt.Errorf("%w: crit header must be a non-empty array of strings", ErrJWSDecoding)
	}

	for _, name := range crit {
		if !understood[name] {
			return fmt.Errorf("%w: critical header %q is not understood", ErrJWSDecoding, name)
		}

		if _, present := headers[name]; !present {
			return fmt.Errorf("%w: critical header %q is missing", ErrJWSDecoding, name)
		}
	}

	return nil
}
