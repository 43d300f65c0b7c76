/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"fmt"

	josejson "github.com/go-jose/go-jose/v3/json"
)

// marshalWithCustomFields marshals value merged with custom fields defined in the map into JSON bytes.
func marshalWithCustomFields(v interface{}, cf map[string]interface{}) ([]byte, error) {
	vm, err := mergeCustomFields(v, cf)
	if err != nil {
		return nil, err
	}

	return json.Marshal(vm)
}

// unmarshalWithCustomFields unmarshals JSON into value v and puts all JSON fields which do not belong to value
// into custom fields map cf.
func unmarshalWithCustomFields(data []byte, v interface{}, cf map[string]interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	vf, err := toMap(v)
	if err != nil {
		return err
	}

	var af map[string]interface{}

	if err = json.Unmarshal(data, &af); err != nil {
		return err
	}

	for k, val := range af {
		if _, ok := vf[k]; !ok {
			cf[k] = val
		}
	}

	return nil
}

// mergeCustomFields converts value to the JSON-like map and merges it with custom fields map cf.
// Fields of the value win over custom fields of the same name.
func mergeCustomFields(v interface{}, cf map[string]interface{}) (map[string]interface{}, error) {
	kf, err := toMap(v)
	if err != nil {
		return nil, err
	}

	for k, val := range cf {
		if _, exists := kf[k]; !exists {
			kf[k] = val
		}
	}

	return kf, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}

	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	if m == nil {
		m = make(map[string]interface{})
	}

	return m, nil
}

// claimsToJSON marshals a JWT claim value. JWT payload maps may carry go-jose json.Number values
// which encoding/json would render as strings.
func claimsToJSON(v interface{}) ([]byte, error) {
	b, err := josejson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal JWT claim: %w", err)
	}

	return b, nil
}
