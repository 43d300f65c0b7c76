/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"

	josejson "github.com/go-jose/go-jose/v3/json"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
)

// JWTPresClaims is JWT Claims extension by Verifiable Presentation (with custom "vp" claim).
type JWTPresClaims struct {
	*jwt.Claims

	Nonce string `json:"nonce,omitempty"`

	VP map[string]interface{} `json:"vp,omitempty"`
}

// JWTClaims converts Verifiable Presentation into JWT Presentation claims. The holder becomes "iss".
func (vp *Presentation) JWTClaims(audience []string, nonce string, minimizeVP bool) (*JWTPresClaims, error) {
	claims := &jwt.Claims{
		Issuer: vp.Holder, // iss
		ID:     vp.ID,     // jti
	}

	if len(audience) > 0 {
		claims.Audience = audience
	}

	vpMap, err := toMap(vp)
	if err != nil {
		return nil, fmt.Errorf("convert presentation to vp claim: %w", err)
	}

	if minimizeVP {
		delete(vpMap, "id")
		delete(vpMap, "holder")
	}

	return &JWTPresClaims{Claims: claims, Nonce: nonce, VP: vpMap}, nil
}

// ParseJWTPresClaims reads presentation claims from a JWT payload.
func ParseJWTPresClaims(payload map[string]interface{}) (*JWTPresClaims, error) {
	b, err := claimsToJSON(payload)
	if err != nil {
		return nil, err
	}

	claims := &JWTPresClaims{}

	if err = josejson.Unmarshal(b, claims); err != nil {
		return nil, fmt.Errorf("unmarshal presentation JWT claims: %w", err)
	}

	if claims.VP == nil {
		return nil, fmt.Errorf("%w: vp", ErrMissingClaim)
	}

	if claims.Claims == nil {
		claims.Claims = &jwt.Claims{}
	}

	return claims, nil
}

// ToPresentation rebuilds the presentation from the "vp" claim; "iss" is the holder and "jti" the id.
func (jpc *JWTPresClaims) ToPresentation() (*Presentation, error) {
	if jpc.VP == nil {
		return nil, fmt.Errorf("%w: vp", ErrMissingClaim)
	}

	vpBytes, err := claimsToJSON(jpc.VP)
	if err != nil {
		return nil, err
	}

	vp, err := ParsePresentation(vpBytes)
	if err != nil {
		return nil, err
	}

	if jpc.Claims == nil {
		return vp, nil
	}

	if vp.Holder, err = reconcile("iss", jpc.Issuer, vp.Holder); err != nil {
		return nil, err
	}

	if vp.ID, err = reconcile("jti", jpc.ID, vp.ID); err != nil {
		return nil, err
	}

	return vp, nil
}
