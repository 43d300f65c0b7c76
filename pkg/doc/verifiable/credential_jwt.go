/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"errors"
	"fmt"
	"time"

	josejson "github.com/go-jose/go-jose/v3/json"
	gojosejwt "github.com/go-jose/go-jose/v3/jwt"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
)

var (
	// ErrMissingClaim is returned when the "vc" or "vp" claim is absent.
	ErrMissingClaim = errors.New("missing JWT claim")
	// ErrInconsistentClaims is returned when a registered JWT claim contradicts the enclosed document.
	ErrInconsistentClaims = errors.New("inconsistent JWT claims")
)

// JWTCredClaims is JWT Claims extension by Verifiable Credential (with custom "vc" claim).
type JWTCredClaims struct {
	*jwt.Claims

	VC map[string]interface{} `json:"vc,omitempty"`
}

// JWTClaims converts Verifiable Credential into JWT Credential claims, which can be than serialized
// e.g. into JWS. With minimizeVC the properties mapped onto registered claims are removed from "vc".
func (vc *Credential) JWTClaims(minimizeVC bool) (*JWTCredClaims, error) {
	claims := &jwt.Claims{
		Issuer: vc.Issuer.ID,
		ID:     vc.ID,
	}

	if ids := vc.SubjectIDs(); len(vc.Subject) == 1 && len(ids) == 1 {
		claims.Subject = ids[0]
	}

	if vc.Issued != nil {
		claims.NotBefore = gojosejwt.NewNumericDate(*vc.Issued)
		claims.IssuedAt = gojosejwt.NewNumericDate(*vc.Issued)
	}

	if vc.Expired != nil {
		claims.Expiry = gojosejwt.NewNumericDate(*vc.Expired)
	}

	vcMap, err := vc.ToMap()
	if err != nil {
		return nil, fmt.Errorf("convert credential to vc claim: %w", err)
	}

	if minimizeVC {
		for _, k := range []string{"id", "issuanceDate", "validFrom", "expirationDate", "validUntil"} {
			delete(vcMap, k)
		}

		if _, plain := vcMap["issuer"].(string); plain {
			delete(vcMap, "issuer")
		}
	}

	return &JWTCredClaims{Claims: claims, VC: vcMap}, nil
}

// ParseJWTCredClaims reads credential claims from a JWT payload.
func ParseJWTCredClaims(payload map[string]interface{}) (*JWTCredClaims, error) {
	b, err := claimsToJSON(payload)
	if err != nil {
		return nil, err
	}

	claims := &JWTCredClaims{}

	if err = josejson.Unmarshal(b, claims); err != nil {
		return nil, fmt.Errorf("unmarshal credential JWT claims: %w", err)
	}

	if claims.VC == nil {
		return nil, fmt.Errorf("%w: vc", ErrMissingClaim)
	}

	if claims.Claims == nil {
		claims.Claims = &jwt.Claims{}
	}

	return claims, nil
}

// ToCredential rebuilds the credential from the "vc" claim, filling the properties carried by registered
// claims. A registered claim which disagrees with the "vc" claim is an ErrInconsistentClaims error.
func (jcc *JWTCredClaims) ToCredential() (*Credential, error) {
	if jcc.VC == nil {
		return nil, fmt.Errorf("%w: vc", ErrMissingClaim)
	}

	vcBytes, err := claimsToJSON(jcc.VC)
	if err != nil {
		return nil, err
	}

	vc, err := ParseCredential(vcBytes)
	if err != nil {
		return nil, err
	}

	claims := jcc.Claims
	if claims == nil {
		return vc, nil
	}

	if vc.Issuer.ID, err = reconcile("iss", claims.Issuer, vc.Issuer.ID); err != nil {
		return nil, err
	}

	if vc.ID, err = reconcile("jti", claims.ID, vc.ID); err != nil {
		return nil, err
	}

	if claims.Subject != "" {
		if len(vc.Subject) != 1 {
			return nil, fmt.Errorf("%w: sub with %d subjects", ErrInconsistentClaims, len(vc.Subject))
		}

		if vc.Subject[0].ID, err = reconcile("sub", claims.Subject, vc.Subject[0].ID); err != nil {
			return nil, err
		}
	}

	issued := claims.NotBefore
	if issued == nil {
		issued = claims.IssuedAt
	}

	if vc.Issued, err = reconcileDate("nbf", issued, vc.Issued); err != nil {
		return nil, err
	}

	if vc.Expired, err = reconcileDate("exp", claims.Expiry, vc.Expired); err != nil {
		return nil, err
	}

	return vc, nil
}

func reconcile(claim, fromClaim, fromDoc string) (string, error) {
	switch {
	case fromClaim == "":
		return fromDoc, nil
	case fromDoc == "" || fromDoc == fromClaim:
		return fromClaim, nil
	default:
		return "", fmt.Errorf("%w: %s %q does not match %q", ErrInconsistentClaims, claim, fromClaim, fromDoc)
	}
}

func reconcileDate(claim string, fromClaim *gojosejwt.NumericDate, fromDoc *time.Time) (*time.Time, error) {
	if fromClaim == nil {
		return fromDoc, nil
	}

	t := fromClaim.Time().UTC()

	if fromDoc != nil && fromDoc.Unix() != t.Unix() {
		return nil, fmt.Errorf("%w: %s %s does not match %s", ErrInconsistentClaims, claim,
			t.Format(time.RFC3339), fromDoc.Format(time.RFC3339))
	}

	return &t, nil
}
