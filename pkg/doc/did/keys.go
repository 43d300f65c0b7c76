/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"
	"github.com/multiformats/go-multibase"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// Multicodec prefixes of the public keys carried in publicKeyMultibase.
const (
	Ed25519PubKeyMultiCodec      = 0xed
	Secp256k1PubKeyMultiCodec    = 0xe7
	P256PubKeyMultiCodec         = 0x1200
	BLS12381G2PubKeyMultiCodec   = 0xeb
	ed25519VerificationKey2018   = "Ed25519VerificationKey2018"
	ed25519VerificationKey2020   = "Ed25519VerificationKey2020"
	secp256k1VerificationKey2019 = "EcdsaSecp256k1VerificationKey2019"
	bls12381G2Key2020            = "Bls12381G2Key2020"
)

const (
	jsonldPublicKeyBase58    = "publicKeyBase58"
	jsonldPublicKeyMultibase = "publicKeyMultibase"
	jsonldPublicKeyjwk       = "publicKeyJwk"
)

// ErrKeyNotAvailable is returned when a verification method carries no key usable for signature verification.
var ErrKeyNotAvailable = errors.New("verification method has no usable public key")

type keyEncoding int

const (
	encodingJWK keyEncoding = iota
	encodingMultibase
	encodingBase58
)

// VerificationMethod DID doc verification method.
// The value of the key is kept both as raw bytes and, when the key type is known, as a JWK.
type VerificationMethod struct {
	ID         string
	Type       string
	Controller string

	Value []byte

	jsonWebKey *jwk.JWK
	encoding   keyEncoding
	multibase  string
}

// NewVerificationMethodFromJWK creates a new verification method carrying publicKeyJwk.
func NewVerificationMethodFromJWK(id, kType, controller string, j *jwk.JWK) (*VerificationMethod, error) {
	pkBytes, err := j.PublicKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("convert JWK to public key bytes: %w", err)
	}

	return &VerificationMethod{
		ID:         id,
		Type:       kType,
		Controller: controller,
		Value:      pkBytes,
		jsonWebKey: j.Public(),
		encoding:   encodingJWK,
	}, nil
}

// NewVerificationMethodFromBytes creates a new verification method carrying publicKeyBase58.
func NewVerificationMethodFromBytes(id, kType, controller string, value []byte) *VerificationMethod {
	vm := &VerificationMethod{
		ID:         id,
		Type:       kType,
		Controller: controller,
		Value:      value,
		encoding:   encodingBase58,
	}

	vm.jsonWebKey, _ = keyFromType(kType, value) //nolint:errcheck // unknown key types keep only raw bytes

	return vm
}

// JSONWebKey returns the public key as JWK, nil when the key type is not known.
func (vm *VerificationMethod) JSONWebKey() *jwk.JWK {
	return vm.jsonWebKey
}

// PublicKeyJWK returns the public key as JWK or ErrKeyNotAvailable.
func (vm *VerificationMethod) PublicKeyJWK() (*jwk.JWK, error) {
	if vm.jsonWebKey == nil {
		return nil, fmt.Errorf("%w: %s of type %s", ErrKeyNotAvailable, vm.ID, vm.Type)
	}

	return vm.jsonWebKey, nil
}

func decodeVerificationMethod(raw map[string]interface{}) (*VerificationMethod, error) {
	vm := &VerificationMethod{
		ID:         stringEntry(raw["id"]),
		Type:       stringEntry(raw["type"]),
		Controller: stringEntry(raw["controller"]),
	}

	switch {
	case raw[jsonldPublicKeyjwk] != nil:
		jwkBytes, err := json.Marshal(raw[jsonldPublicKeyjwk])
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", jsonldPublicKeyjwk, vm.ID, err)
		}

		var j jwk.JWK

		if err = json.Unmarshal(jwkBytes, &j); err != nil {
			return nil, fmt.Errorf("%s of %s: %w", jsonldPublicKeyjwk, vm.ID, err)
		}

		vm.jsonWebKey = &j
		vm.encoding = encodingJWK

		vm.Value, err = j.PublicKeyBytes()
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", jsonldPublicKeyjwk, vm.ID, err)
		}
	case raw[jsonldPublicKeyMultibase] != nil:
		mb := stringEntry(raw[jsonldPublicKeyMultibase])

		_, value, err := multibase.Decode(mb)
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", jsonldPublicKeyMultibase, vm.ID, err)
		}

		vm.multibase = mb
		vm.encoding = encodingMultibase

		vm.jsonWebKey, vm.Value, err = keyFromMulticodec(value)
		if err != nil {
			if vm.Type != ed25519VerificationKey2020 || len(value) != ed25519.PublicKeySize {
				return nil, fmt.Errorf("%s of %s: %w", jsonldPublicKeyMultibase, vm.ID, err)
			}

			vm.Value = value
			vm.jsonWebKey, _ = keyFromType(ed25519VerificationKey2018, value) //nolint:errcheck
		}
	case raw[jsonldPublicKeyBase58] != nil:
		vm.Value = base58.Decode(stringEntry(raw[jsonldPublicKeyBase58]))
		if len(vm.Value) == 0 {
			return nil, fmt.Errorf("%s of %s: invalid base58 value", jsonldPublicKeyBase58, vm.ID)
		}

		vm.encoding = encodingBase58
		vm.jsonWebKey, _ = keyFromType(vm.Type, vm.Value) //nolint:errcheck // unknown key types keep only raw bytes
	default:
		return nil, fmt.Errorf("verification method %s has no public key value", vm.ID)
	}

	if vm.jsonWebKey != nil && vm.jsonWebKey.KeyID == "" {
		vm.jsonWebKey.KeyID = vm.ID
	}

	return vm, nil
}

func populateRawVerificationMethod(vm *VerificationMethod) (map[string]interface{}, error) {
	raw := map[string]interface{}{
		"id":         vm.ID,
		"type":       vm.Type,
		"controller": vm.Controller,
	}

	switch vm.encoding {
	case encodingJWK:
		if vm.jsonWebKey == nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotAvailable, vm.ID)
		}

		jwkBytes, err := json.Marshal(vm.jsonWebKey)
		if err != nil {
			return nil, err
		}

		raw[jsonldPublicKeyjwk] = json.RawMessage(jwkBytes)
	case encodingMultibase:
		raw[jsonldPublicKeyMultibase] = vm.multibase
	default:
		raw[jsonldPublicKeyBase58] = base58.Encode(vm.Value)
	}

	return raw, nil
}

func keyFromMulticodec(value []byte) (*jwk.JWK, []byte, error) {
	codec, n := binary.Uvarint(value)
	if n <= 0 {
		return nil, nil, errors.New("invalid multicodec prefix")
	}

	keyBytes := value[n:]

	var (
		key interface{}
		err error
	)

	switch codec {
	case Ed25519PubKeyMultiCodec:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, nil, fmt.Errorf("ed25519 key size %d", len(keyBytes))
		}

		key = ed25519.PublicKey(keyBytes)
	case Secp256k1PubKeyMultiCodec:
		key, err = parseSecp256k1(keyBytes)
	case P256PubKeyMultiCodec:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), keyBytes)
		if x == nil {
			return nil, nil, errors.New("invalid compressed P-256 key")
		}

		key = &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	case BLS12381G2PubKeyMultiCodec:
		key, err = bbs12381g2pub.UnmarshalPublicKey(keyBytes)
	default:
		return nil, nil, fmt.Errorf("unsupported multicodec 0x%x", codec)
	}

	if err != nil {
		return nil, nil, err
	}

	j, err := jwk.FromKey(key, "")
	if err != nil {
		return nil, nil, err
	}

	return j, keyBytes, nil
}

func keyFromType(kType string, value []byte) (*jwk.JWK, error) {
	var key interface{}

	switch kType {
	case ed25519VerificationKey2018, ed25519VerificationKey2020:
		if len(value) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("ed25519 key size %d", len(value))
		}

		key = ed25519.PublicKey(value)
	case secp256k1VerificationKey2019:
		pub, err := parseSecp256k1(value)
		if err != nil {
			return nil, err
		}

		key = pub
	case bls12381G2Key2020:
		pub, err := bbs12381g2pub.UnmarshalPublicKey(value)
		if err != nil {
			return nil, err
		}

		key = pub
	default:
		return nil, fmt.Errorf("unsupported key type %s", kType)
	}

	return jwk.FromKey(key, "")
}

func parseSecp256k1(value []byte) (*ecdsa.PublicKey, error) {
	pub, err := btcec.ParsePubKey(value)
	if err != nil {
		return nil, err
	}

	return pub.ToECDSA(), nil
}
