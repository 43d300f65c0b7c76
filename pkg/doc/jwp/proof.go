/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	macsubtle "github.com/google/tink/go/mac/subtle"
	"github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose/jwk"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
)

const (
	bbsSeedSize = 32
	macKeySize  = 32

	sha256TagSize = 32
	sha384TagSize = 48
)

// ProofSigner produces the issuer proof over the header and the payloads.
type ProofSigner interface {
	Alg() string
	SignProof(messages [][]byte) ([]byte, error)
}

// ProofVerifier verifies issuer proofs of issued JWPs and holder proofs of presented JWPs.
type ProofVerifier interface {
	VerifyIssued(j *JWP, key *jwk.JWK) error
	VerifyPresented(j *JWP, key *jwk.JWK) error
}

// Sign issues a JWP over payloads. The header alg is taken from the signer.
func Sign(header IssuerProtectedHeader, payloads [][]byte, signer ProofSigner) (*JWP, error) {
	if header.Alg != "" && header.Alg != signer.Alg() {
		return nil, fmt.Errorf("header alg %q does not match signer alg %q", header.Alg, signer.Alg())
	}

	header.Alg = signer.Alg()

	if len(header.Claims) > 0 && len(header.Claims) != len(payloads) {
		return nil, fmt.Errorf("%d claims for %d payloads", len(header.Claims), len(payloads))
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal issuer header: %w", err)
	}

	j := &JWP{IssuerHeader: header, Payloads: payloads, issuerHeaderBytes: headerBytes}

	if j.Proof, err = signer.SignProof(issuedMessages(j)); err != nil {
		return nil, fmt.Errorf("sign JWP: %w", err)
	}

	return j, nil
}

// Present derives a presented JWP disclosing the payloads at disclosed. BBS proofs are derived with the issuer
// public key and bound to the presentation header; MAC proofs are carried over.
func Present(issued *JWP, disclosed []int, header PresentationProtectedHeader, issuerKey *jwk.JWK) (*JWP, error) {
	if issued.IsPresented() {
		return nil, errors.New("JWP is already presented")
	}

	if header.Alg == "" {
		header.Alg = issued.IssuerHeader.Alg
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal presentation header: %w", err)
	}

	payloads := make([][]byte, len(issued.Payloads))

	for _, i := range disclosed {
		if i < 0 || i >= len(payloads) {
			return nil, fmt.Errorf("payload index %d out of range", i)
		}

		payloads[i] = nonNil(issued.Payloads[i])
	}

	presented := &JWP{
		IssuerHeader:            issued.IssuerHeader,
		PresentationHeader:      &header,
		Payloads:                payloads,
		issuerHeaderBytes:       issued.issuerHeaderBytes,
		presentationHeaderBytes: headerBytes,
	}

	switch issued.IssuerHeader.Alg {
	case AlgBBS:
		pub, err := bbsPublicKey(issuerKey)
		if err != nil {
			return nil, err
		}

		revealed := append([]int{0}, shift(presented.Disclosed())...)

		err = safeBBS(func() error {
			var deriveErr error

			presented.Proof, deriveErr = bbs12381g2pub.New().DeriveProof(issuedMessages(issued), issued.Proof,
				headerBytes, pub, revealed)

			return deriveErr
		})
		if err != nil {
			return nil, fmt.Errorf("derive BBS proof: %w", err)
		}
	case AlgMACH256, AlgMACH384:
		presented.Proof = issued.Proof
	default:
		return nil, &verifier.Error{Kind: verifier.UnsupportedAlg, Err: fmt.Errorf("alg %q", issued.IssuerHeader.Alg)}
	}

	return presented, nil
}

// BBSSigner signs with a BBS+ BLS12-381 private key.
type BBSSigner struct {
	privateKey *bbs12381g2pub.PrivateKey
}

// NewBBSSigner creates a signer from a private key.
func NewBBSSigner(privateKey *bbs12381g2pub.PrivateKey) *BBSSigner {
	return &BBSSigner{privateKey: privateKey}
}

// GenerateBBSSigner creates a signer with a fresh key pair.
func GenerateBBSSigner() (*BBSSigner, error) {
	seed := make([]byte, bbsSeedSize)

	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	_, privateKey, err := bbs12381g2pub.GenerateKeyPair(sha256.New, seed)
	if err != nil {
		return nil, err
	}

	return NewBBSSigner(privateKey), nil
}

// Alg returns "BBS".
func (s *BBSSigner) Alg() string {
	return AlgBBS
}

// PublicJWK returns the public key as BLS12381_G2 JWK.
func (s *BBSSigner) PublicJWK() (*jwk.JWK, error) {
	return jwk.FromKey(s.privateKey.PublicKey(), "")
}

// SignProof signs the messages.
func (s *BBSSigner) SignProof(messages [][]byte) ([]byte, error) {
	return bbs12381g2pub.New().SignWithKey(messages, s.privateKey)
}

// MACSigner computes HMAC tags with a key shared with the verifier.
type MACSigner struct {
	alg string
	key []byte
}

// NewMACSigner creates a signer for MAC-H256 or MAC-H384.
func NewMACSigner(alg string, key []byte) (*MACSigner, error) {
	if _, _, err := macParams(alg); err != nil {
		return nil, err
	}

	return &MACSigner{alg: alg, key: key}, nil
}

// GenerateMACSigner creates a signer with a fresh random key.
func GenerateMACSigner(alg string) (*MACSigner, error) {
	key := make([]byte, macKeySize)

	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	return NewMACSigner(alg, key)
}

// Alg returns the MAC algorithm.
func (s *MACSigner) Alg() string {
	return s.alg
}

// JWK returns the shared key as "oct" JWK.
func (s *MACSigner) JWK() *jwk.JWK {
	return jwk.FromSymmetric(s.key, s.alg, "")
}

// SignProof concatenates one tag per message.
func (s *MACSigner) SignProof(messages [][]byte) ([]byte, error) {
	mac, tagSize, err := newMAC(s.alg, s.key)
	if err != nil {
		return nil, err
	}

	proof := make([]byte, 0, len(messages)*tagSize)

	for _, m := range messages {
		tag, err := mac.ComputeMAC(m)
		if err != nil {
			return nil, err
		}

		proof = append(proof, tag...)
	}

	return proof, nil
}

// DefaultProofVerifier verifies BBS and MAC proofs.
type DefaultProofVerifier struct{}

// NewProofVerifier creates a verifier for every supported proof algorithm.
func NewProofVerifier() *DefaultProofVerifier {
	return &DefaultProofVerifier{}
}

// VerifyIssued verifies the issuer proof over the header and every payload.
func (v *DefaultProofVerifier) VerifyIssued(j *JWP, key *jwk.JWK) error {
	if j.IsPresented() {
		return invalid(errors.New("JWP is presented"))
	}

	for i, p := range j.Payloads {
		if p == nil {
			return invalid(fmt.Errorf("payload %d is missing", i))
		}
	}

	switch j.IssuerHeader.Alg {
	case AlgBBS:
		pub, err := bbsPublicKey(key)
		if err != nil {
			return err
		}

		if err = safeBBS(func() error {
			return bbs12381g2pub.New().Verify(issuedMessages(j), j.Proof, pub)
		}); err != nil {
			return invalid(err)
		}

		return nil
	case AlgMACH256, AlgMACH384:
		return verifyTags(j, key, allIndexes(len(j.Payloads)))
	default:
		return &verifier.Error{Kind: verifier.UnsupportedAlg, Err: fmt.Errorf("alg %q", j.IssuerHeader.Alg)}
	}
}

// VerifyPresented verifies the proof over the header and the disclosed payloads. BBS proofs are also checked
// against the presentation header.
func (v *DefaultProofVerifier) VerifyPresented(j *JWP, key *jwk.JWK) error {
	if !j.IsPresented() {
		return invalid(errors.New("JWP is not presented"))
	}

	if j.PresentationHeader.Alg != "" && j.PresentationHeader.Alg != j.IssuerHeader.Alg {
		return &verifier.Error{Kind: verifier.UnsupportedAlg,
			Err: fmt.Errorf("presentation alg %q differs from issuer alg %q", j.PresentationHeader.Alg, j.IssuerHeader.Alg)}
	}

	switch j.IssuerHeader.Alg {
	case AlgBBS:
		pub, err := bbsPublicKey(key)
		if err != nil {
			return err
		}

		revealed := [][]byte{j.issuerHeaderBytes}
		for _, i := range j.Disclosed() {
			revealed = append(revealed, payloadMessage(i, j.Payloads[i]))
		}

		if err = safeBBS(func() error {
			return bbs12381g2pub.New().VerifyProof(revealed, j.Proof, j.presentationHeaderBytes, pub)
		}); err != nil {
			return invalid(err)
		}

		return nil
	case AlgMACH256, AlgMACH384:
		return verifyTags(j, key, j.Disclosed())
	default:
		return &verifier.Error{Kind: verifier.UnsupportedAlg, Err: fmt.Errorf("alg %q", j.IssuerHeader.Alg)}
	}
}

// safeBBS runs a BBS operation over untrusted proof bytes. The BBS parser slices by length fields read from the
// proof, so a corrupted proof is turned into an error instead of a panic.
func safeBBS(op func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed BBS proof: %v", r)
		}
	}()

	return op()
}

func verifyTags(j *JWP, key *jwk.JWK, indexes []int) error {
	secret, err := macKey(key)
	if err != nil {
		return err
	}

	mac, tagSize, err := newMAC(j.IssuerHeader.Alg, secret)
	if err != nil {
		return err
	}

	if len(j.Proof) != (len(j.Payloads)+1)*tagSize {
		return invalid(fmt.Errorf("proof length %d for %d payloads", len(j.Proof), len(j.Payloads)))
	}

	tag := func(i int) []byte {
		return j.Proof[i*tagSize : (i+1)*tagSize]
	}

	if err = mac.VerifyMAC(tag(0), j.issuerHeaderBytes); err != nil {
		return invalid(fmt.Errorf("header: %w", err))
	}

	for _, i := range indexes {
		if err = mac.VerifyMAC(tag(i+1), payloadMessage(i, j.Payloads[i])); err != nil {
			return invalid(fmt.Errorf("payload %d: %w", i, err))
		}
	}

	return nil
}

// issuedMessages returns the header followed by every payload, each prefixed with its position.
func issuedMessages(j *JWP) [][]byte {
	messages := make([][]byte, 0, len(j.Payloads)+1)
	messages = append(messages, j.issuerHeaderBytes)

	for i, p := range j.Payloads {
		messages = append(messages, payloadMessage(i, p))
	}

	return messages
}

func payloadMessage(index int, payload []byte) []byte {
	m := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(m, uint32(index))

	return append(m, payload...)
}

func bbsPublicKey(key *jwk.JWK) ([]byte, error) {
	if key == nil {
		return nil, &verifier.Error{Kind: verifier.KeyDecodingFailure, Err: errors.New("missing public key")}
	}

	if key.Crv != jwk.CurveBLS12381G2 {
		return nil, &verifier.Error{Kind: verifier.UnsupportedKeyParams,
			Err: fmt.Errorf("BBS requires crv %s, got %q", jwk.CurveBLS12381G2, key.Crv)}
	}

	pub, err := key.PublicKeyBytes()
	if err != nil {
		return nil, &verifier.Error{Kind: verifier.KeyDecodingFailure, Err: err}
	}

	return pub, nil
}

func macKey(key *jwk.JWK) ([]byte, error) {
	if key == nil {
		return nil, &verifier.Error{Kind: verifier.KeyDecodingFailure, Err: errors.New("missing key")}
	}

	if key.Kty != jwk.KeyTypeOct {
		return nil, &verifier.Error{Kind: verifier.UnsupportedKeyType,
			Err: fmt.Errorf("MAC requires kty %s, got %q", jwk.KeyTypeOct, key.Kty)}
	}

	secret, ok := key.Key.([]byte)
	if !ok {
		return nil, &verifier.Error{Kind: verifier.KeyDecodingFailure, Err: fmt.Errorf("key of type %T", key.Key)}
	}

	return secret, nil
}

func macParams(alg string) (string, int, error) {
	switch alg {
	case AlgMACH256:
		return "SHA256", sha256TagSize, nil
	case AlgMACH384:
		return "SHA384", sha384TagSize, nil
	default:
		return "", 0, &verifier.Error{Kind: verifier.UnsupportedAlg, Err: fmt.Errorf("alg %q", alg)}
	}
}

func newMAC(alg string, key []byte) (*macsubtle.HMAC, int, error) {
	hashAlg, tagSize, err := macParams(alg)
	if err != nil {
		return nil, 0, err
	}

	mac, err := macsubtle.NewHMAC(hashAlg, key, uint32(tagSize))
	if err != nil {
		return nil, 0, &verifier.Error{Kind: verifier.KeyDecodingFailure, Err: err}
	}

	return mac, tagSize, nil
}

func invalid(err error) error {
	return &verifier.Error{Kind: verifier.InvalidSignature, Err: err}
}

func shift(indexes []int) []int {
	shifted := make([]int, len(indexes))

	for i, idx := range indexes {
		shifted[i] = idx + 1
	}

	return shifted
}

func allIndexes(n int) []int {
	indexes := make([]int, n)

	for i := range indexes {
		indexes[i] = i
	}

	return indexes
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}

	return b
}
