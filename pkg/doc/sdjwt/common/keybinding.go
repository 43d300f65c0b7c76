/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// KeyBindingClaims are the claims of a key binding JWT.
type KeyBindingClaims struct {
	IssuedAt int64  `json:"iat" mapstructure:"iat"`
	Audience string `json:"aud" mapstructure:"aud"`
	Nonce    string `json:"nonce" mapstructure:"nonce"`
	SDHash   string `json:"sd_hash" mapstructure:"sd_hash"`
}

// DecodeKeyBindingClaims reads key binding claims from a JWT payload. Numeric dates may be float64 or
// json.Number.
func DecodeKeyBindingClaims(payload map[string]interface{}) (*KeyBindingClaims, error) {
	claims := &KeyBindingClaims{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
			if n, ok := data.(interface{ Int64() (int64, error) }); ok && to.Kind() == reflect.Int64 {
				return n.Int64()
			}

			return data, nil
		},
		Result: claims,
	})
	if err != nil {
		return nil, err
	}

	if err = decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode key binding JWT claims: %w", err)
	}

	return claims, nil
}
