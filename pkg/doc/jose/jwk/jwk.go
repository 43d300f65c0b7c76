/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwk

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"
)

// Key types.
const (
	KeyTypeEC  = "EC"
	KeyTypeOKP = "OKP"
	KeyTypeAKP = "AKP"
	KeyTypeOct = "oct"
	KeyTypeRSA = "RSA"
)

// Curves.
const (
	CurveEd25519    = "Ed25519"
	CurveP256       = "P-256"
	CurveP384       = "P-384"
	CurveSecp256k1  = "secp256k1"
	CurveBLS12381G2 = "BLS12381_G2"
)

const (
	secp256k1Size  = 32
	bls12381G2Size = 96
)

// ErrInvalidKey is returned when passed JWK is invalid.
var ErrInvalidKey = errors.New("invalid JWK")

// JWK (JSON Web Key) is a JSON data structure that represents a cryptographic key.
// Key types that go-jose cannot handle (secp256k1, BLS12-381 G2 and the ML-DSA "AKP" family)
// are decoded here; everything else is delegated to go-jose.
type JWK struct {
	jose.JSONWebKey

	Kty string
	Crv string
}

type rawJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
	Pub string `json:"pub,omitempty"`
}

// PublicKeyBytes returns the raw public key: the key value for OKP and AKP keys, the uncompressed point
// for EC keys and the marshalled point for BLS12-381 G2 keys.
func (j *JWK) PublicKeyBytes() ([]byte, error) {
	switch key := j.Key.(type) {
	case ed25519.PublicKey:
		return key, nil
	case ed25519.PrivateKey:
		pub, ok := key.Public().(ed25519.PublicKey)
		if !ok {
			return nil, ErrInvalidKey
		}

		return pub, nil
	case *ecdsa.PublicKey:
		return marshalUncompressed(key), nil
	case *ecdsa.PrivateKey:
		return marshalUncompressed(&key.PublicKey), nil
	case *bbs12381g2pub.PublicKey:
		return key.Marshal()
	case *bbs12381g2pub.PrivateKey:
		return key.PublicKey().Marshal()
	case []byte:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key %T", ErrInvalidKey, j.Key)
	}
}

// KeyType returns the "kty" of the key.
func (j *JWK) KeyType() string {
	return j.Kty
}

// Curve returns the "crv" of the key, empty for key types without a curve.
func (j *JWK) Curve() string {
	return j.Crv
}

// Public returns the public part of the key.
func (j *JWK) Public() *JWK {
	pub := *j

	switch key := j.Key.(type) {
	case *bbs12381g2pub.PrivateKey:
		pub.Key = key.PublicKey()
	case *bbs12381g2pub.PublicKey, []byte:
		// BLS12-381 G2, AKP and oct keys keep their value
	default:
		pub.JSONWebKey = j.JSONWebKey.Public()
	}

	return &pub
}

// UnmarshalJSON reads a key from its JSON representation.
func (j *JWK) UnmarshalJSON(jwkBytes []byte) error {
	var raw rawJWK

	if err := json.Unmarshal(jwkBytes, &raw); err != nil {
		return fmt.Errorf("unable to read JWK: %w", err)
	}

	j.Kty = raw.Kty
	j.Crv = raw.Crv

	switch {
	case raw.Kty == KeyTypeEC && raw.Crv == CurveSecp256k1:
		return j.unmarshalSecp256k1(&raw)
	case raw.Kty == KeyTypeOKP && raw.Crv == CurveBLS12381G2:
		return j.unmarshalBLS12381G2(&raw)
	case raw.Kty == KeyTypeAKP:
		return j.unmarshalAKP(&raw)
	case raw.Kty == "":
		return fmt.Errorf("%w: missing kty", ErrInvalidKey)
	}

	if err := (&j.JSONWebKey).UnmarshalJSON(jwkBytes); err != nil {
		return fmt.Errorf("unable to read JWK: %w", err)
	}

	return nil
}

// MarshalJSON writes the key in its JSON representation.
func (j *JWK) MarshalJSON() ([]byte, error) {
	switch {
	case j.Kty == KeyTypeEC && j.Crv == CurveSecp256k1:
		return j.marshalSecp256k1()
	case j.Kty == KeyTypeOKP && j.Crv == CurveBLS12381G2:
		return j.marshalBLS12381G2()
	case j.Kty == KeyTypeAKP:
		return j.marshalAKP()
	}

	return (&j.JSONWebKey).MarshalJSON()
}

func (j *JWK) unmarshalSecp256k1(raw *rawJWK) error {
	x, err := decodeCoordinate(raw.X)
	if err != nil {
		return fmt.Errorf("%w: x: %v", ErrInvalidKey, err)
	}

	y, err := decodeCoordinate(raw.Y)
	if err != nil {
		return fmt.Errorf("%w: y: %v", ErrInvalidKey, err)
	}

	if !btcec.S256().IsOnCurve(x, y) {
		return fmt.Errorf("%w: secp256k1 point is not on curve", ErrInvalidKey)
	}

	j.JSONWebKey = jose.JSONWebKey{
		Key:       &ecdsa.PublicKey{Curve: btcec.S256(), X: x, Y: y},
		KeyID:     raw.Kid,
		Algorithm: raw.Alg,
		Use:       raw.Use,
	}

	return nil
}

func (j *JWK) marshalSecp256k1() ([]byte, error) {
	var pub *ecdsa.PublicKey

	switch key := j.Key.(type) {
	case *ecdsa.PublicKey:
		pub = key
	case *ecdsa.PrivateKey:
		pub = &key.PublicKey
	default:
		return nil, fmt.Errorf("%w: secp256k1 key of type %T", ErrInvalidKey, j.Key)
	}

	return json.Marshal(rawJWK{
		Kty: KeyTypeEC,
		Crv: CurveSecp256k1,
		Alg: j.Algorithm,
		Kid: j.KeyID,
		Use: j.Use,
		X:   base64.RawURLEncoding.EncodeToString(pad(pub.X.Bytes(), secp256k1Size)),
		Y:   base64.RawURLEncoding.EncodeToString(pad(pub.Y.Bytes(), secp256k1Size)),
	})
}

func (j *JWK) unmarshalBLS12381G2(raw *rawJWK) error {
	x, err := base64.RawURLEncoding.DecodeString(raw.X)
	if err != nil {
		return fmt.Errorf("%w: x: %v", ErrInvalidKey, err)
	}

	if len(x) != bls12381G2Size {
		return fmt.Errorf("%w: BLS12381_G2 key size %d", ErrInvalidKey, len(x))
	}

	key, err := bbs12381g2pub.UnmarshalPublicKey(x)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	j.JSONWebKey = jose.JSONWebKey{Key: key, KeyID: raw.Kid, Algorithm: raw.Alg, Use: raw.Use}

	return nil
}

func (j *JWK) marshalBLS12381G2() ([]byte, error) {
	keyBytes, err := j.PublicKeyBytes()
	if err != nil {
		return nil, err
	}

	return json.Marshal(rawJWK{
		Kty: KeyTypeOKP,
		Crv: CurveBLS12381G2,
		Alg: j.Algorithm,
		Kid: j.KeyID,
		Use: j.Use,
		X:   base64.RawURLEncoding.EncodeToString(keyBytes),
	})
}

func (j *JWK) unmarshalAKP(raw *rawJWK) error {
	if raw.Alg == "" {
		return fmt.Errorf("%w: AKP key requires alg", ErrInvalidKey)
	}

	pub, err := base64.RawURLEncoding.DecodeString(raw.Pub)
	if err != nil || len(pub) == 0 {
		return fmt.Errorf("%w: invalid pub parameter", ErrInvalidKey)
	}

	j.JSONWebKey = jose.JSONWebKey{Key: pub, KeyID: raw.Kid, Algorithm: raw.Alg, Use: raw.Use}

	return nil
}

func (j *JWK) marshalAKP() ([]byte, error) {
	pub, ok := j.Key.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: AKP key of type %T", ErrInvalidKey, j.Key)
	}

	return json.Marshal(rawJWK{
		Kty: KeyTypeAKP,
		Alg: j.Algorithm,
		Kid: j.KeyID,
		Use: j.Use,
		Pub: base64.RawURLEncoding.EncodeToString(pub),
	})
}

func decodeCoordinate(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	if len(b) != secp256k1Size {
		return nil, fmt.Errorf("coordinate size %d", len(b))
	}

	return new(big.Int).SetBytes(b), nil
}

func marshalUncompressed(pub *ecdsa.PublicKey) []byte {
	size := (pub.Curve.Params().BitSize + 7) / 8

	out := make([]byte, 0, 1+2*size)
	out = append(out, 0x04)
	out = append(out, pad(pub.X.Bytes(), size)...)

	return append(out, pad(pub.Y.Bytes(), size)...)
}

func pad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}

	out := make([]byte, size)
	copy(out[size-len(b):], b)

	return out
}
