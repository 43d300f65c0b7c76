/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credentialvalidator validates verifiable credentials and presentations secured as JWT, JPT and SD-JWT,
// and checks their revocation status.
//
// Packages for end developer usage
//
// pkg/doc/verifiable/validator: Validates JWT credentials and presentations, including the credential status.
//
// pkg/doc/verifiable/jpt: Validates credentials secured as JSON Web Proofs (BBS and MAC proofs).
//
// pkg/doc/sdjwt/verifier: Validates SD-JWT credentials and their key binding JWT.
//
// pkg/doc/sdjwt/vc: Validates SD-JWT VC credentials and IETF token status lists.
//
// pkg/doc/revocation: Status list formats: RevocationBitmap2022, StatusList2021, SimpleRevocationList2022,
// RevocationTimeframe2024 and token status lists.
//
// pkg/client/statuslist: Fetches, verifies and caches the status lists referenced by credentials.
//
// pkg/vdr: Resolves issuer and holder DIDs, did:key included.
//
// Basic workflow
//
//	1) Resolve the issuer document with a vdr.Registry.
//	2) Fetch the status lists the credential refers to with a statuslist.Client.
//	3) Validate the credential with the validator of its format, passing the documents and status lists.
package credentialvalidator
