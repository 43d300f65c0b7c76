/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signer

import (
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// Signer signs messages with a private key it holds.
type Signer interface {
	// Sign signs a message.
	Sign(msg []byte) ([]byte, error)
	// Alg returns the JWS algorithm of the signatures.
	Alg() string
	// PublicJWK returns the public key as JWK.
	PublicJWK() *jwk.JWK
}

// JWSSigner makes a Signer usable to produce compact JWS.
type JWSSigner struct {
	signer  Signer
	headers jose.Headers
}

// NewJWSSigner creates a jose.Signer emitting "alg" and "kid" headers.
func NewJWSSigner(s Signer, kid string) *JWSSigner {
	headers := jose.Headers{jose.HeaderAlgorithm: s.Alg()}
	if kid != "" {
		headers[jose.HeaderKeyID] = kid
	}

	return &JWSSigner{signer: s, headers: headers}
}

// Sign signs.
func (s *JWSSigner) Sign(data []byte) ([]byte, error) {
	return s.signer.Sign(data)
}

// Headers provides JWS headers.
func (s *JWSSigner) Headers() jose.Headers {
	return s.headers
}
