/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwp implements JSON Web Proofs in compact serialization: an issuer protected header, an ordered set
// of payloads and a proof, optionally extended by a holder presentation header when only some payloads are
// disclosed.
package jwp

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	segmentSeparator = "."
	payloadSeparator = "~"

	issuedSegments    = 3
	presentedSegments = 4
)

// Proof algorithms.
const (
	// AlgBBS is BBS+ over BLS12-381 with G2 public keys.
	AlgBBS = "BBS"
	// AlgMACH256 is HMAC SHA-256 over the header and every payload.
	AlgMACH256 = "MAC-H256"
	// AlgMACH384 is HMAC SHA-384 over the header and every payload.
	AlgMACH384 = "MAC-H384"
)

// ErrMalformed is returned when a serialized JWP cannot be decoded.
var ErrMalformed = errors.New("malformed JWP")

// IssuerProtectedHeader is the header protected by the issuer proof.
type IssuerProtectedHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
	Typ string `json:"typ,omitempty"`
	Cid string `json:"cid,omitempty"`
	// Claims names the payloads, one name per payload.
	Claims []string `json:"claims,omitempty"`
}

// PresentationProtectedHeader is the header added by the holder when presenting.
type PresentationProtectedHeader struct {
	Alg   string `json:"alg,omitempty"`
	Kid   string `json:"kid,omitempty"`
	Aud   string `json:"aud,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

// JWP is a JSON Web Proof in issued or presented form.
type JWP struct {
	IssuerHeader       IssuerProtectedHeader
	PresentationHeader *PresentationProtectedHeader
	// Payloads are in issuance order; a nil entry is a payload the holder did not disclose.
	Payloads [][]byte
	Proof    []byte

	// exact header bytes, the proofs are computed over them
	issuerHeaderBytes       []byte
	presentationHeaderBytes []byte
}

// IsPresented reports whether the JWP carries a presentation header.
func (j *JWP) IsPresented() bool {
	return j.PresentationHeader != nil
}

// IssuerHeaderBytes returns the issuer header exactly as signed.
func (j *JWP) IssuerHeaderBytes() []byte {
	return j.issuerHeaderBytes
}

// PresentationHeaderBytes returns the presentation header exactly as presented.
func (j *JWP) PresentationHeaderBytes() []byte {
	return j.presentationHeaderBytes
}

// Disclosed returns the indexes of the disclosed payloads.
func (j *JWP) Disclosed() []int {
	var indexes []int

	for i, p := range j.Payloads {
		if p != nil {
			indexes = append(indexes, i)
		}
	}

	return indexes
}

// Encode serializes the JWP in compact form: "header.payloads.proof" when issued,
// "presentationHeader.issuerHeader.payloads.proof" when presented. Payloads are joined with "~" and undisclosed
// payloads are left empty.
func (j *JWP) Encode() (string, error) {
	if j.issuerHeaderBytes == nil {
		return "", fmt.Errorf("%w: issuer header is not set", ErrMalformed)
	}

	payloads := make([]string, len(j.Payloads))

	for i, p := range j.Payloads {
		payloads[i] = base64.RawURLEncoding.EncodeToString(p)
	}

	segments := []string{
		base64.RawURLEncoding.EncodeToString(j.issuerHeaderBytes),
		strings.Join(payloads, payloadSeparator),
		base64.RawURLEncoding.EncodeToString(j.Proof),
	}

	if j.IsPresented() {
		if j.presentationHeaderBytes == nil {
			return "", fmt.Errorf("%w: presentation header is not set", ErrMalformed)
		}

		segments = append([]string{base64.RawURLEncoding.EncodeToString(j.presentationHeaderBytes)}, segments...)
	}

	return strings.Join(segments, segmentSeparator), nil
}

// Decode parses a compact JWP of either form. In presented form an empty payload is undisclosed.
func Decode(serialized string) (*JWP, error) {
	segments := strings.Split(serialized, segmentSeparator)

	j := &JWP{}

	switch len(segments) {
	case issuedSegments:
	case presentedSegments:
		raw, err := decodeSegment(segments[0], "presentation header")
		if err != nil {
			return nil, err
		}

		var ph PresentationProtectedHeader

		if err = json.Unmarshal(raw, &ph); err != nil {
			return nil, fmt.Errorf("%w: presentation header: %v", ErrMalformed, err)
		}

		j.PresentationHeader, j.presentationHeaderBytes = &ph, raw
		segments = segments[1:]
	default:
		return nil, fmt.Errorf("%w: %d segments", ErrMalformed, len(segments))
	}

	raw, err := decodeSegment(segments[0], "issuer header")
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal(raw, &j.IssuerHeader); err != nil {
		return nil, fmt.Errorf("%w: issuer header: %v", ErrMalformed, err)
	}

	if j.IssuerHeader.Alg == "" {
		return nil, fmt.Errorf("%w: alg is not defined", ErrMalformed)
	}

	j.issuerHeaderBytes = raw

	if j.Payloads, err = decodePayloads(segments[1], j.IsPresented()); err != nil {
		return nil, err
	}

	if j.Proof, err = decodeSegment(segments[2], "proof"); err != nil {
		return nil, err
	}

	return j, nil
}

func decodePayloads(segment string, presented bool) ([][]byte, error) {
	if segment == "" {
		return nil, nil
	}

	parts := strings.Split(segment, payloadSeparator)
	payloads := make([][]byte, len(parts))

	for i, part := range parts {
		if part == "" && presented {
			continue
		}

		p, err := decodeSegment(part, fmt.Sprintf("payload %d", i))
		if err != nil {
			return nil, err
		}

		payloads[i] = p
	}

	return payloads, nil
}

func decodeSegment(segment, name string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	return b, nil
}
