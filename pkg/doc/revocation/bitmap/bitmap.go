/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitmap implements the RevocationBitmap2022 mechanism: a roaring bitmap of revoked credential indices
// embedded as a data URL in a DID document service.
package bitmap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/klauspost/compress/zlib"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
)

// ServiceType is the type of the DID document service carrying the bitmap.
const ServiceType = "RevocationBitmap2022"

const (
	dataURLPrefix       = "data:,"
	dataURLBase64Prefix = "data:application/octet-stream;base64,"

	maxDecompressedSize = 1 << 24
)

var (
	// ErrInvalidBitmapEndpoint is returned when a service endpoint is not a bitmap data URL.
	ErrInvalidBitmapEndpoint = errors.New("invalid revocation bitmap endpoint")
	// ErrInvalidService is returned when a service is not a RevocationBitmap2022 service.
	ErrInvalidService = errors.New("invalid revocation bitmap service")
)

// RevocationBitmap is a compressed set of revoked credential indices.
type RevocationBitmap struct {
	bitmap *roaring.Bitmap
}

// New creates an empty RevocationBitmap.
func New() *RevocationBitmap {
	return &RevocationBitmap{bitmap: roaring.New()}
}

// IsRevoked reports whether the index is revoked.
func (b *RevocationBitmap) IsRevoked(index uint32) bool {
	return b.bitmap.Contains(index)
}

// Revoke marks the index as revoked. It returns false when the index was already revoked.
func (b *RevocationBitmap) Revoke(index uint32) bool {
	return b.bitmap.CheckedAdd(index)
}

// UndoRevocation removes the index from the revoked set. It returns false when the index was not revoked.
func (b *RevocationBitmap) UndoRevocation(index uint32) bool {
	return b.bitmap.CheckedRemove(index)
}

// Len returns the number of revoked indices.
func (b *RevocationBitmap) Len() uint64 {
	return b.bitmap.GetCardinality()
}

// Indices returns the revoked indices in ascending order.
func (b *RevocationBitmap) Indices() []uint32 {
	return b.bitmap.ToArray()
}

// Equal reports whether both bitmaps revoke the same indices.
func (b *RevocationBitmap) Equal(other *RevocationBitmap) bool {
	if other == nil {
		return false
	}

	return b.bitmap.Equals(other.bitmap)
}

// Serialize writes the bitmap in the roaring portable format, zlib compressed and base64url encoded.
func (b *RevocationBitmap) Serialize() (string, error) {
	optimized := b.bitmap.Clone()
	optimized.RunOptimize()

	raw, err := optimized.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize bitmap: %w", err)
	}

	var buf bytes.Buffer

	zw := zlib.NewWriter(&buf)

	if _, err = zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress bitmap: %w", err)
	}

	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("compress bitmap: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Deserialize reads a bitmap written by Serialize.
func Deserialize(encoded string) (*RevocationBitmap, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("decode bitmap: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress bitmap: %w", err)
	}

	defer zr.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(zr, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress bitmap: %w", err)
	}

	if len(raw) > maxDecompressedSize {
		return nil, errors.New("decompress bitmap: bitmap too large")
	}

	bm := roaring.New()

	if err = bm.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("read bitmap: %w", err)
	}

	return &RevocationBitmap{bitmap: bm}, nil
}

// ToEndpoint returns the bitmap as a "data:," URL.
func (b *RevocationBitmap) ToEndpoint() (string, error) {
	encoded, err := b.Serialize()
	if err != nil {
		return "", err
	}

	return dataURLPrefix + encoded, nil
}

// FromEndpoint parses a bitmap from a data URL service endpoint.
func FromEndpoint(endpoint string) (*RevocationBitmap, error) {
	var encoded string

	switch {
	case strings.HasPrefix(endpoint, dataURLPrefix):
		encoded = strings.TrimPrefix(endpoint, dataURLPrefix)
	case strings.HasPrefix(endpoint, dataURLBase64Prefix):
		encoded = strings.TrimPrefix(endpoint, dataURLBase64Prefix)
	default:
		return nil, fmt.Errorf("%w: expected a data URL", ErrInvalidBitmapEndpoint)
	}

	if encoded == "" {
		return New(), nil
	}

	b, err := Deserialize(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBitmapEndpoint, err)
	}

	return b, nil
}

// ToService creates a DID document service carrying the bitmap.
func (b *RevocationBitmap) ToService(id string) (*did.Service, error) {
	endpoint, err := b.ToEndpoint()
	if err != nil {
		return nil, err
	}

	return &did.Service{ID: id, Type: ServiceType, ServiceEndpoint: endpoint}, nil
}

// FromService reads the bitmap of a RevocationBitmap2022 service.
func FromService(svc *did.Service) (*RevocationBitmap, error) {
	if svc.Type != ServiceType {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidService, svc.Type)
	}

	endpoint, ok := svc.EndpointURI()
	if !ok {
		return nil, fmt.Errorf("%w: endpoint must be a string", ErrInvalidBitmapEndpoint)
	}

	return FromEndpoint(endpoint)
}
