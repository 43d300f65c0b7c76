/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package statuslist2021 implements the StatusList2021 bitstring, its credentialStatus entry and the
// credentialSubject of a StatusList2021Credential.
package statuslist2021

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultSize is the number of entries of a new list when no size is given (16KB of bits).
	DefaultSize = 131072

	maxListBytes = 1 << 24
)

var (
	// ErrIndexOutOfBounds is returned by Set for an index past the end of the list.
	ErrIndexOutOfBounds = errors.New("status list index out of bounds")
	// ErrInvalidSize is returned for a list size that is not a positive multiple of 8.
	ErrInvalidSize = errors.New("status list size must be a positive multiple of 8")
	// ErrInvalidEncodedList is returned when an encodedList cannot be decoded.
	ErrInvalidEncodedList = errors.New("invalid encoded status list")
)

// StatusList is a fixed size bitstring. Index 0 is the most significant bit of the first byte.
type StatusList struct {
	bits []byte
}

// New creates a status list of size entries, all unset.
func New(size int) (*StatusList, error) {
	if size == 0 {
		size = DefaultSize
	}

	if size < 0 || size%8 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return &StatusList{bits: make([]byte, size/8)}, nil
}

// Len returns the number of entries.
func (l *StatusList) Len() int {
	return len(l.bits) * 8
}

// Get returns the value at index. The second return value is false when index is out of bounds.
func (l *StatusList) Get(index int) (bool, bool) {
	if index < 0 || index >= l.Len() {
		return false, false
	}

	return l.bits[index/8]&(1<<(7-index%8)) != 0, true
}

// Set sets the value at index.
func (l *StatusList) Set(index int, value bool) error {
	if index < 0 || index >= l.Len() {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfBounds, index, l.Len())
	}

	mask := byte(1 << (7 - index%8))

	if value {
		l.bits[index/8] |= mask
	} else {
		l.bits[index/8] &^= mask
	}

	return nil
}

// Equal reports whether both lists have the same size and values.
func (l *StatusList) Equal(other *StatusList) bool {
	return other != nil && bytes.Equal(l.bits, other.bits)
}

// Encode returns the gzip compressed, unpadded base64url encoded bitstring.
func (l *StatusList) Encode() (string, error) {
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(l.bits); err != nil {
		return "", fmt.Errorf("compress status list: %w", err)
	}

	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("compress status list: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reads an encodedList. Both base64 alphabets are accepted, with or without padding.
func Decode(encoded string) (*StatusList, error) {
	trimmed := strings.TrimRight(encoded, "=")

	compressed, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		compressed, err = base64.RawStdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEncodedList, err)
		}
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncodedList, err)
	}

	defer gr.Close() //nolint:errcheck

	bits, err := io.ReadAll(io.LimitReader(gr, maxListBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncodedList, err)
	}

	if len(bits) == 0 || len(bits) > maxListBytes {
		return nil, fmt.Errorf("%w: list of %d bytes", ErrInvalidEncodedList, len(bits))
	}

	return &StatusList{bits: bits}, nil
}
