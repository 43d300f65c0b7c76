/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
)

// NewEd25519Signer creates a new Ed25519 signer with generated key.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &Ed25519Signer{privateKey: privKey, PubKey: pubKey}, nil
}

// GetEd25519Signer creates a new Ed25519 signer with passed Ed25519 key pair.
func GetEd25519Signer(privKey ed25519.PrivateKey, pubKey ed25519.PublicKey) *Ed25519Signer {
	return &Ed25519Signer{privateKey: privKey, PubKey: pubKey}
}

// Ed25519Signer makes Ed25519 based signatures.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	PubKey     ed25519.PublicKey
}

// Alg return alg.
func (s *Ed25519Signer) Alg() string {
	return "EdDSA"
}

// PublicJWK returns the public key as JWK.
func (s *Ed25519Signer) PublicJWK() *jwk.JWK {
	j, _ := jwk.FromKey(s.PubKey, "") //nolint:errcheck // ed25519 keys are always supported

	return j
}

// Sign signs a message.
func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	if l := len(s.privateKey); l != ed25519.PrivateKeySize {
		return nil, errors.New("ed25519: bad private key length")
	}

	return ed25519.Sign(s.privateKey, msg), nil
}

// ECDSASigner makes ECDSA based signatures in the JWS "r || s" form.
type ECDSASigner struct {
	privateKey *ecdsa.PrivateKey
	alg        string
	hash       crypto.Hash
	keySize    int
}

// NewECDSAP256Signer creates a new ES256 signer with generated key.
func NewECDSAP256Signer() (*ECDSASigner, error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	return &ECDSASigner{privateKey: privKey, alg: "ES256", hash: crypto.SHA256, keySize: 32}, nil
}

// NewECDSAP384Signer creates a new ES384 signer with generated key.
func NewECDSAP384Signer() (*ECDSASigner, error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, err
	}

	return &ECDSASigner{privateKey: privKey, alg: "ES384", hash: crypto.SHA384, keySize: 48}, nil
}

// NewECDSASecp256k1Signer creates a new ES256K signer with generated key.
func NewECDSASecp256k1Signer() (*ECDSASigner, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}

	return &ECDSASigner{privateKey: privKey.ToECDSA(), alg: "ES256K", hash: crypto.SHA256, keySize: 32}, nil
}

// Alg return alg.
func (s *ECDSASigner) Alg() string {
	return s.alg
}

// PublicJWK returns the public key as JWK.
func (s *ECDSASigner) PublicJWK() *jwk.JWK {
	j, _ := jwk.FromKey(&s.privateKey.PublicKey, "") //nolint:errcheck // curves are known

	return j
}

// Sign signs a message.
func (s *ECDSASigner) Sign(msg []byte) ([]byte, error) {
	hasher := s.hash.New()
	hasher.Write(msg) //nolint:errcheck

	r, sv, err := ecdsa.Sign(rand.Reader, s.privateKey, hasher.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("ecdsa: sign: %w", err)
	}

	signature := make([]byte, 2*s.keySize)
	r.FillBytes(signature[:s.keySize])
	sv.FillBytes(signature[s.keySize:])

	return signature, nil
}

// MLDSASigner makes ML-DSA signatures.
type MLDSASigner struct {
	scheme  sign.Scheme
	alg     string
	private sign.PrivateKey
	public  []byte
}

// NewMLDSASigner creates a new ML-DSA signer for alg (ML-DSA-44, ML-DSA-65 or ML-DSA-87) with generated key.
func NewMLDSASigner(alg string) (*MLDSASigner, error) {
	var scheme sign.Scheme

	switch alg {
	case "ML-DSA-44":
		scheme = mldsa44.Scheme()
	case "ML-DSA-65":
		scheme = mldsa65.Scheme()
	case "ML-DSA-87":
		scheme = mldsa87.Scheme()
	default:
		return nil, fmt.Errorf("unsupported ML-DSA alg %q", alg)
	}

	pub, priv, err := scheme.GenerateKey()
	if err != nil {
		return nil, err
	}

	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return &MLDSASigner{scheme: scheme, alg: alg, private: priv, public: pubBytes}, nil
}

// Alg return alg.
func (s *MLDSASigner) Alg() string {
	return s.alg
}

// PublicJWK returns the public key as JWK.
func (s *MLDSASigner) PublicJWK() *jwk.JWK {
	return jwk.FromAKP(s.alg, s.public, "")
}

// Sign signs a message.
func (s *MLDSASigner) Sign(msg []byte) ([]byte, error) {
	return s.scheme.Sign(s.private, msg, nil), nil
}
