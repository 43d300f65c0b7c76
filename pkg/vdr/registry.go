/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr dispatches DID resolution to the resolver of the DID method.
package vdr

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	diddoc "github.com/hyperledger/aries-credential-validator/pkg/doc/did"
)

var logger = log.New("aries-framework/vdr")

// ErrMethodNotSupported is returned for a DID whose method has no resolver.
var ErrMethodNotSupported = errors.New("did method not supported")

// MethodResolver resolves the DIDs of the methods it accepts.
type MethodResolver interface {
	diddoc.Resolver
	Accept(method string) bool
}

// Option is a vdr instance option.
type Option func(opts *Registry)

// Registry vdr registry.
type Registry struct {
	vdr  []MethodResolver
	docs map[string]*diddoc.Doc
}

// New return new instance of vdr.
func New(opts ...Option) *Registry {
	baseVDR := &Registry{docs: map[string]*diddoc.Doc{}}

	// Apply options
	for _, opt := range opts {
		opt(baseVDR)
	}

	return baseVDR
}

// Resolve did document. Documents registered with WithDocuments take precedence over method resolvers.
func (r *Registry) Resolve(did string) (*diddoc.Doc, error) {
	if doc, ok := r.docs[did]; ok {
		return doc, nil
	}

	didMethod, err := GetDidMethod(did)
	if err != nil {
		return nil, err
	}

	// resolve did method
	method, err := r.resolveVDR(didMethod)
	if err != nil {
		return nil, err
	}

	// Obtain the DID Document
	doc, err := method.Resolve(did)
	if err != nil {
		if errors.Is(err, diddoc.ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("did method read failed: %w", err)
	}

	if doc.ID != did {
		return nil, fmt.Errorf("did method returned document %s for %s", doc.ID, did)
	}

	logger.Debugf("resolved %s", did)

	return doc, nil
}

func (r *Registry) resolveVDR(method string) (MethodResolver, error) {
	for _, v := range r.vdr {
		if v.Accept(method) {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, method)
}

// WithVDR adds did method implementation.
func WithVDR(method MethodResolver) Option {
	return func(opts *Registry) {
		opts.vdr = append(opts.vdr, method)
	}
}

// WithDocuments registers documents resolved as they are, such as the documents of trusted issuers.
func WithDocuments(docs ...*diddoc.Doc) Option {
	return func(opts *Registry) {
		for _, doc := range docs {
			opts.docs[doc.ID] = doc
		}
	}
}

// GetDidMethod get did method.
func GetDidMethod(didID string) (string, error) {
	parsed, err := diddoc.Parse(didID)
	if err != nil {
		return "", fmt.Errorf("wrong format did input: %w", err)
	}

	return parsed.Method, nil
}
