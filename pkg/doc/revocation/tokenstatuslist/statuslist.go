/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tokenstatuslist implements the IETF Token Status List: a zlib compressed array of 1, 2, 4 or 8 bit
// status values referenced from a token by "status.status_list".
package tokenstatuslist

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/mitchellh/mapstructure"
)

// Status values.
const (
	StatusValid     uint8 = 0x00
	StatusInvalid   uint8 = 0x01
	StatusSuspended uint8 = 0x02
)

// TokenType is the "typ" of a status list token.
const TokenType = "statuslist+jwt"

const maxListBytes = 1 << 24

var (
	// ErrInvalidStatusList is returned when a status list cannot be decoded.
	ErrInvalidStatusList = errors.New("invalid token status list")
	// ErrInvalidReference is returned when "status.status_list" cannot be read.
	ErrInvalidReference = errors.New("invalid status list reference")
	// ErrIndexOutOfBounds is returned for an index past the end of the list.
	ErrIndexOutOfBounds = errors.New("status list index out of bounds")
)

// StatusList holds size statuses of Bits bits each. Index 0 is the least significant bits of the first byte.
type StatusList struct {
	Bits int
	data []byte
}

// New creates a list of size statuses, all VALID.
func New(size, bits int) (*StatusList, error) {
	if !validBits(bits) {
		return nil, fmt.Errorf("%w: bits must be 1, 2, 4 or 8, got %d", ErrInvalidStatusList, bits)
	}

	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidStatusList, size)
	}

	return &StatusList{Bits: bits, data: make([]byte, (size*bits+7)/8)}, nil
}

// Len returns the number of statuses the list can hold.
func (l *StatusList) Len() int {
	return len(l.data) * 8 / l.Bits
}

// Get returns the status at index.
func (l *StatusList) Get(index int) (uint8, error) {
	if index < 0 || index >= l.Len() {
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, index, l.Len())
	}

	pos := index * l.Bits
	mask := byte(1<<l.Bits - 1)

	return (l.data[pos/8] >> (pos % 8)) & mask, nil
}

// Set sets the status at index.
func (l *StatusList) Set(index int, status uint8) error {
	if index < 0 || index >= l.Len() {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, index, l.Len())
	}

	mask := byte(1<<l.Bits - 1)
	if status&^mask != 0 {
		return fmt.Errorf("%w: status %d does not fit in %d bits", ErrInvalidStatusList, status, l.Bits)
	}

	pos := index * l.Bits
	shift := pos % 8

	l.data[pos/8] = l.data[pos/8]&^(mask<<shift) | status<<shift

	return nil
}

// Equal reports whether both lists hold the same statuses.
func (l *StatusList) Equal(other *StatusList) bool {
	return other != nil && l.Bits == other.Bits && bytes.Equal(l.data, other.data)
}

// ToClaims renders the "status_list" claim value.
func (l *StatusList) ToClaims() (map[string]interface{}, error) {
	var buf bytes.Buffer

	zw := zlib.NewWriter(&buf)

	if _, err := zw.Write(l.data); err != nil {
		return nil, fmt.Errorf("compress status list: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress status list: %w", err)
	}

	return map[string]interface{}{
		"bits": l.Bits,
		"lst":  base64.RawURLEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

type rawStatusList struct {
	Bits int    `mapstructure:"bits"`
	Lst  string `mapstructure:"lst"`
}

// FromClaims reads the "status_list" claim value of a status list token.
func FromClaims(claims map[string]interface{}) (*StatusList, error) {
	var raw rawStatusList

	if err := decodeClaims(claims, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatusList, err)
	}

	if !validBits(raw.Bits) {
		return nil, fmt.Errorf("%w: bits must be 1, 2, 4 or 8, got %d", ErrInvalidStatusList, raw.Bits)
	}

	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw.Lst, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: lst: %v", ErrInvalidStatusList, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: lst: %v", ErrInvalidStatusList, err)
	}

	defer zr.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(zr, maxListBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: lst: %v", ErrInvalidStatusList, err)
	}

	if len(data) == 0 || len(data) > maxListBytes {
		return nil, fmt.Errorf("%w: lst of %d bytes", ErrInvalidStatusList, len(data))
	}

	return &StatusList{Bits: raw.Bits, data: data}, nil
}

// Reference is the "status.status_list" claim of a referenced token.
type Reference struct {
	Idx int    `mapstructure:"idx"`
	URI string `mapstructure:"uri"`
}

// ParseReference reads "status.status_list" from token claims. It returns nil when the claim is absent.
func ParseReference(claims map[string]interface{}) (*Reference, error) {
	status, ok := claims["status"].(map[string]interface{})
	if !ok {
		return nil, nil //nolint:nilnil
	}

	rawRef, ok := status["status_list"].(map[string]interface{})
	if !ok {
		return nil, nil //nolint:nilnil
	}

	var ref Reference

	if err := decodeClaims(rawRef, &ref); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	if ref.URI == "" || ref.Idx < 0 {
		return nil, fmt.Errorf("%w: uri and a non-negative idx are required", ErrInvalidReference)
	}

	return &ref, nil
}

// decodeClaims accepts numbers as float64 or as any json.Number flavour.
func decodeClaims(input, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
			if n, ok := data.(interface{ Int64() (int64, error) }); ok && to.Kind() == reflect.Int {
				return n.Int64()
			}

			return data, nil
		},
		Result: output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func validBits(bits int) bool {
	return bits == 1 || bits == 2 || bits == 4 || bits == 8
}
