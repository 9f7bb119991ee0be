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
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/decisionworks/go-passkey/pkg/codec"
)

// ResultKind discriminates the two mutually exclusive payload shapes a
// ceremony can produce.
type ResultKind string

const (
	// KindAttestation marks a registration result carrying an
	// attestation object.
	KindAttestation ResultKind = "attestation"

	// KindAssertion marks an authentication result carrying a signed
	// assertion.
	KindAssertion ResultKind = "assertion"
)

// AttestationPayload is the registration-specific half of a result.
type AttestationPayload struct {
	// AttestationObject is the CBOR attestation statement produced by
	// the authenticator.
	AttestationObject codec.Binary

	// Transports lists the transports the authenticator reported, when
	// the platform exposes an accessor for them.
	Transports []protocol.AuthenticatorTransport
}

// AssertionPayload is the authentication-specific half of a result.
type AssertionPayload struct {
	// AuthenticatorData is the signed authenticator data.
	AuthenticatorData codec.Binary

	// Signature is the assertion signature over authenticator data and
	// client data hash.
	Signature codec.Binary

	// UserHandle is the user id the credential is bound to, present for
	// discoverable credentials.
	UserHandle codec.Binary
}

// Result is the serialized artifact a ceremony produces: the common
// credential identity plus exactly one of the two payload shapes. It is
// opaque to this engine beyond serialization; only the relying party
// verifies it.
//
// The zero value is invalid; use NewAttestationResult or
// NewAssertionResult so a half-populated value is unrepresentable.
type Result struct {
	Kind           ResultKind
	ID             string
	RawID          codec.Binary
	Type           protocol.CredentialType
	ClientDataJSON codec.Binary

	attestation *AttestationPayload
	assertion   *AssertionPayload
}

// NewAttestationResult builds a registration result.
func NewAttestationResult(id string, rawID, clientDataJSON codec.Binary, payload AttestationPayload) *Result {
	return &Result{
		Kind:           KindAttestation,
		ID:             id,
		RawID:          rawID,
		Type:           protocol.PublicKeyCredentialType,
		ClientDataJSON: clientDataJSON,
		attestation:    &payload,
	}
}

// NewAssertionResult builds an authentication result.
func NewAssertionResult(id string, rawID, clientDataJSON codec.Binary, payload AssertionPayload) *Result {
	return &Result{
		Kind:           KindAssertion,
		ID:             id,
		RawID:          rawID,
		Type:           protocol.PublicKeyCredentialType,
		ClientDataJSON: clientDataJSON,
		assertion:      &payload,
	}
}

// Attestation returns the attestation payload when Kind is
// KindAttestation.
func (r *Result) Attestation() (AttestationPayload, bool) {
	if r.attestation == nil {
		return AttestationPayload{}, false
	}
	return *r.attestation, true
}

// Assertion returns the assertion payload when Kind is KindAssertion.
func (r *Result) Assertion() (AssertionPayload, bool) {
	if r.assertion == nil {
		return AssertionPayload{}, false
	}
	return *r.assertion, true
}

// Validate checks the exactly-one-shape invariant and the presence of
// the common fields.
func (r *Result) Validate() error {
	if len(r.RawID) == 0 {
		return fmt.Errorf("%w: missing credential id", ErrMalformedResult)
	}
	if len(r.ClientDataJSON) == 0 {
		return fmt.Errorf("%w: missing client data", ErrMalformedResult)
	}
	switch r.Kind {
	case KindAttestation:
		if r.attestation == nil || r.assertion != nil {
			return fmt.Errorf("%w: attestation result with wrong payload", ErrMalformedResult)
		}
		if len(r.attestation.AttestationObject) == 0 {
			return fmt.Errorf("%w: empty attestation object", ErrMalformedResult)
		}
	case KindAssertion:
		if r.assertion == nil || r.attestation != nil {
			return fmt.Errorf("%w: assertion result with wrong payload", ErrMalformedResult)
		}
		if len(r.assertion.AuthenticatorData) == 0 || len(r.assertion.Signature) == 0 {
			return fmt.Errorf("%w: incomplete assertion", ErrMalformedResult)
		}
	default:
		return fmt.Errorf("%w: unknown result kind %q", ErrMalformedResult, r.Kind)
	}
	return nil
}

// resultResponseJSON is the wire "response" member covering both
// shapes; which fields are set depends on the kind.
type resultResponseJSON struct {
	ClientDataJSON    codec.Binary `json:"clientDataJSON"`
	AttestationObject codec.Binary `json:"attestationObject,omitempty"`
	Transports        []string     `json:"transports,omitempty"`
	AuthenticatorData codec.Binary `json:"authenticatorData,omitempty"`
	Signature         codec.Binary `json:"signature,omitempty"`
	UserHandle        codec.Binary `json:"userHandle,omitempty"`
}

// resultJSON is the platform credential's wire shape
// (PublicKeyCredential.toJSON()).
type resultJSON struct {
	ID       string                  `json:"id"`
	RawID    codec.Binary            `json:"rawId"`
	Type     protocol.CredentialType `json:"type"`
	Response resultResponseJSON      `json:"response"`
}

// MarshalJSON emits the platform credential wire shape the relying
// party parses.
func (r *Result) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	out := resultJSON{
		ID:    r.ID,
		RawID: r.RawID,
		Type:  r.Type,
		Response: resultResponseJSON{
			ClientDataJSON: r.ClientDataJSON,
		},
	}

	switch r.Kind {
	case KindAttestation:
		out.Response.AttestationObject = r.attestation.AttestationObject
		for _, t := range r.attestation.Transports {
			out.Response.Transports = append(out.Response.Transports, string(t))
		}
	case KindAssertion:
		out.Response.AuthenticatorData = r.assertion.AuthenticatorData
		out.Response.Signature = r.assertion.Signature
		out.Response.UserHandle = r.assertion.UserHandle
	}

	return json.Marshal(out)
}

// UnmarshalJSON parses a platform credential wire shape, inferring the
// kind from which response fields are populated.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	parsed := Result{
		ID:             in.ID,
		RawID:          in.RawID,
		Type:           in.Type,
		ClientDataJSON: in.Response.ClientDataJSON,
	}

	hasAttestation := len(in.Response.AttestationObject) > 0
	hasAssertion := len(in.Response.Signature) > 0

	switch {
	case hasAttestation && !hasAssertion:
		parsed.Kind = KindAttestation
		payload := AttestationPayload{AttestationObject: in.Response.AttestationObject}
		for _, t := range in.Response.Transports {
			payload.Transports = append(payload.Transports, protocol.AuthenticatorTransport(t))
		}
		parsed.attestation = &payload
	case hasAssertion && !hasAttestation:
		parsed.Kind = KindAssertion
		parsed.assertion = &AssertionPayload{
			AuthenticatorData: in.Response.AuthenticatorData,
			Signature:         in.Response.Signature,
			UserHandle:        in.Response.UserHandle,
		}
	default:
		return fmt.Errorf("%w: response is neither attestation nor assertion", ErrMalformedResult)
	}

	*r = parsed
	return nil
}
