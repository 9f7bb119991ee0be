// Copyright (c) 2025 DecisionWorks, Inc.
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@decisionworks.io for commercial licensing options.

package ceremony

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/decisionworks/go-passkey/pkg/codec"
)

// RelyingPartyEntity identifies the relying party a credential is
// scoped to.
type RelyingPartyEntity struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// UserEntity identifies the account a credential is being created for.
type UserEntity struct {
	ID          codec.Binary `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName,omitempty"`
}

// CredentialParameter is one accepted credential type/algorithm pair,
// in the relying party's preference order.
type CredentialParameter struct {
	Type protocol.CredentialType              `json:"type"`
	Alg  webauthncose.COSEAlgorithmIdentifier `json:"alg"`
}

// CredentialDescriptor identifies one enrolled authenticator.
// Immutable once issued by the platform.
type CredentialDescriptor struct {
	Type       protocol.CredentialType           `json:"type"`
	ID         codec.Binary                      `json:"id"`
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`
}

// AuthenticatorPolicy constrains which authenticators the platform may
// offer during registration. Fields are passed through to the platform
// verbatim.
type AuthenticatorPolicy struct {
	AuthenticatorAttachment protocol.AuthenticatorAttachment     `json:"authenticatorAttachment,omitempty"`
	ResidentKey             protocol.ResidentKeyRequirement      `json:"residentKey,omitempty"`
	UserVerification        protocol.UserVerificationRequirement `json:"userVerification,omitempty"`
}

// RegistrationChallenge is the single-use material the relying party
// issues for one credential-creation attempt. The JSON shape is the
// platform's native PublicKeyCredentialCreationOptions so it can be
// handed to the credential API without translation.
//
// A challenge must never be reused across retries; a fresh one is
// fetched per attempt.
type RegistrationChallenge struct {
	RelyingParty        RelyingPartyEntity            `json:"rp"`
	User                UserEntity                    `json:"user"`
	Challenge           codec.Binary                  `json:"challenge"`
	AcceptedAlgorithms  []CredentialParameter         `json:"pubKeyCredParams"`
	TimeoutMs           int                           `json:"timeout,omitempty"`
	ExcludeCredentials  []CredentialDescriptor        `json:"excludeCredentials,omitempty"`
	AuthenticatorPolicy *AuthenticatorPolicy          `json:"authenticatorSelection,omitempty"`
	Attestation         protocol.ConveyancePreference `json:"attestation,omitempty"`
}

// AuthenticationChallenge is the single-use material the relying party
// issues for one assertion attempt. An empty AllowCredentials list
// permits any discoverable credential scoped to the relying party.
type AuthenticationChallenge struct {
	Challenge        codec.Binary                         `json:"challenge"`
	TimeoutMs        int                                  `json:"timeout,omitempty"`
	RelyingPartyID   string                               `json:"rpId,omitempty"`
	AllowCredentials []CredentialDescriptor               `json:"allowCredentials,omitempty"`
	UserVerification protocol.UserVerificationRequirement `json:"userVerification,omitempty"`
}

// AccountSummary is the identity slice the relying party reports after
// a verified ceremony.
type AccountSummary struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// VerifyOutcome is the relying party's answer to a submitted ceremony
// result.
type VerifyOutcome struct {
	Message string         `json:"message"`
	User    AccountSummary `json:"user"`
}
