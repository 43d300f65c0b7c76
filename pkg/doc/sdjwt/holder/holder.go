/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package holder enables the Holder: an entity that receives SD-JWTs from the Issuer, decides which claims to
// present and binds the presentation to its key.
package holder

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/jsonpointer"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/common"
)

var (
	// ErrInvalidPath is a JSON pointer which addresses no claim of the SD-JWT.
	ErrInvalidPath = errors.New("invalid claim path")
	// ErrNotConcealable is a claim the issuer did not make selectively disclosable.
	ErrNotConcealable = errors.New("claim is not selectively disclosable")
	// ErrHasherMismatch is a hasher other than the one named by "_sd_alg".
	ErrHasherMismatch = errors.New("hasher does not match SD-JWT hash algorithm")
)

// PresentationBuilder removes disclosures from an SD-JWT before it is presented.
type PresentationBuilder struct {
	sdjwt       *common.SDJWT
	payload     map[string]interface{}
	disclosures []*common.Disclosure
	byDigest    map[string]*common.Disclosure
	hasher      common.Hasher
	concealed   map[string]bool
	kbJWT       string
}

// NewPresentationBuilder creates a builder over sdjwt. A nil hasher selects the one named by "_sd_alg".
func NewPresentationBuilder(sdjwt *common.SDJWT, hasher common.Hasher) (*PresentationBuilder, error) {
	tok, err := jwt.Parse(sdjwt.JWT)
	if err != nil {
		return nil, fmt.Errorf("parse SD-JWT: %w", err)
	}

	claimed, err := common.HasherFromClaims(tok.Payload)
	if err != nil {
		return nil, err
	}

	if hasher == nil {
		hasher = claimed
	} else if hasher.AlgName() != claimed.AlgName() {
		return nil, fmt.Errorf("%w: %s is not %s", ErrHasherMismatch, hasher.AlgName(), claimed.AlgName())
	}

	disclosures, err := sdjwt.ParsedDisclosures()
	if err != nil {
		return nil, err
	}

	b := &PresentationBuilder{
		sdjwt:       sdjwt,
		payload:     tok.Payload,
		disclosures: disclosures,
		byDigest:    make(map[string]*common.Disclosure, len(disclosures)),
		hasher:      hasher,
		concealed:   map[string]bool{},
		kbJWT:       sdjwt.KeyBindingJWT,
	}

	for _, d := range disclosures {
		b.byDigest[hasher.EncodedDigest(d.Unparsed)] = d
	}

	return b, nil
}

// Conceal removes the disclosure of the claim at path, a JSON pointer over the fully disclosed claims such as
// "/degree" or "/nationalities/1". Array indexes count every issued element. Disclosures nested in the
// concealed value are removed as well.
func (b *PresentationBuilder) Conceal(path string) error {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	tokens := ptr.DecodedTokens()
	if len(tokens) == 0 {
		return fmt.Errorf("%w: the payload itself cannot be concealed", ErrInvalidPath)
	}

	var node interface{} = b.payload

	for i, token := range tokens {
		last := i == len(tokens)-1

		var d *common.Disclosure

		switch n := node.(type) {
		case map[string]interface{}:
			if v, ok := n[token]; ok && token != common.SDKey {
				if last {
					return fmt.Errorf("%w: %s", ErrNotConcealable, path)
				}

				node = v

				continue
			}

			d = b.propertyDisclosure(n, token)
		case []interface{}:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(n) {
				return fmt.Errorf("%w: %s", ErrInvalidPath, path)
			}

			digest, ok := arrayElementDigest(n[idx])
			if !ok {
				if last {
					return fmt.Errorf("%w: %s", ErrNotConcealable, path)
				}

				node = n[idx]

				continue
			}

			d = b.byDigest[digest]
		}

		if d == nil {
			return fmt.Errorf("%w: %s", ErrInvalidPath, path)
		}

		if last {
			b.conceal(d)

			return nil
		}

		node = d.ClaimValue
	}

	return nil
}

// ConcealAll removes every disclosure.
func (b *PresentationBuilder) ConcealAll() {
	for _, d := range b.disclosures {
		b.concealed[d.Unparsed] = true
	}
}

// AttachKeyBindingJWT sets the key binding JWT of the presentation.
func (b *PresentationBuilder) AttachKeyBindingJWT(kb string) {
	b.kbJWT = kb
}

// Finish returns the SD-JWT to present and the disclosures removed from it.
func (b *PresentationBuilder) Finish() (*common.SDJWT, []*common.Disclosure, error) {
	if b.kbJWT != "" && !jose.IsCompactJWS(b.kbJWT) {
		return nil, nil, errors.New("key binding JWT is not a compact JWS")
	}

	presented := &common.SDJWT{JWT: b.sdjwt.JWT, KeyBindingJWT: b.kbJWT}

	var removed []*common.Disclosure

	for _, d := range b.disclosures {
		if b.concealed[d.Unparsed] {
			removed = append(removed, d)

			continue
		}

		presented.Disclosures = append(presented.Disclosures, d.Unparsed)
	}

	return presented, removed, nil
}

func (b *PresentationBuilder) propertyDisclosure(obj map[string]interface{}, name string) *common.Disclosure {
	digests, _ := obj[common.SDKey].([]interface{}) //nolint:errcheck

	for _, raw := range digests {
		digest, _ := raw.(string) //nolint:errcheck

		if d, ok := b.byDigest[digest]; ok && !d.IsArrayElement() && d.ClaimName == name {
			return d
		}
	}

	return nil
}

// conceal marks d and every disclosure referenced from its value.
func (b *PresentationBuilder) conceal(d *common.Disclosure) {
	b.concealed[d.Unparsed] = true

	b.walkDigests(d.ClaimValue, func(digest string) {
		if nested, ok := b.byDigest[digest]; ok && !b.concealed[nested.Unparsed] {
			b.conceal(nested)
		}
	})
}

func (b *PresentationBuilder) walkDigests(v interface{}, visit func(digest string)) {
	switch tv := v.(type) {
	case map[string]interface{}:
		if digest, ok := arrayElementDigest(tv); ok {
			visit(digest)

			return
		}

		for k, e := range tv {
			if k != common.SDKey {
				b.walkDigests(e, visit)

				continue
			}

			digests, _ := e.([]interface{}) //nolint:errcheck

			for _, raw := range digests {
				if digest, ok := raw.(string); ok {
					visit(digest)
				}
			}
		}
	case []interface{}:
		for _, e := range tv {
			b.walkDigests(e, visit)
		}
	}
}

func arrayElementDigest(e interface{}) (string, bool) {
	m, ok := e.(map[string]interface{})
	if !ok || len(m) != 1 {
		return "", false
	}

	digest, ok := m[common.ArrayElementDigestKey].(string)

	return digest, ok
}

// NewKeyBindingJWT signs a key binding JWT for sdjwt, which must carry exactly the disclosures to present.
func NewKeyBindingJWT(sdjwt *common.SDJWT, hasher common.Hasher, nonce, aud string, iat time.Time,
	signer jose.Signer) (string, error) {
	claims := &common.KeyBindingClaims{
		IssuedAt: iat.Unix(),
		Audience: aud,
		Nonce:    nonce,
		SDHash:   hasher.EncodedDigest(sdjwt.PresentationInput()),
	}

	token, err := jwt.NewSigned(claims, jose.Headers{jose.HeaderType: common.KeyBindingJWTType}, signer)
	if err != nil {
		return "", fmt.Errorf("sign key binding JWT: %w", err)
	}

	return token.Serialize(false)
}
