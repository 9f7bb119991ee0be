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
	"context"
	"encoding/json"
	"fmt"

	"github.com/descope/virtualwebauthn"
)

// VirtualAuthenticator is a software platform authenticator backed by
// descope/virtualwebauthn. It implements the Authenticator port for
// hosts without a browser credential surface, and serves as the
// authenticator in integration tests.
//
// Credentials live in process memory only; persisting them is out of
// scope for this engine.
type VirtualAuthenticator struct {
	rp    virtualwebauthn.RelyingParty
	auth  virtualwebauthn.Authenticator
	creds []virtualwebauthn.Credential

	userVerifying bool
	conditional   bool
}

// VirtualOption is a functional option for configuring a
// VirtualAuthenticator.
type VirtualOption func(*virtualConfig)

type virtualConfig struct {
	userHandle    []byte
	userVerifying bool
	conditional   bool
}

// WithUserHandle binds the authenticator to a user handle, enabling the
// discoverable-credential flow.
func WithUserHandle(handle []byte) VirtualOption {
	return func(c *virtualConfig) {
		c.userHandle = handle
	}
}

// WithoutUserVerification makes the authenticator report that it cannot
// verify the user locally.
func WithoutUserVerification() VirtualOption {
	return func(c *virtualConfig) {
		c.userVerifying = false
	}
}

// WithConditionalMediation makes the authenticator report
// conditional-mediation (autofill) support.
func WithConditionalMediation() VirtualOption {
	return func(c *virtualConfig) {
		c.conditional = true
	}
}

// NewVirtualAuthenticator creates a software authenticator scoped to
// the given relying party and origin. The origin must match what the
// relying party expects in client data.
func NewVirtualAuthenticator(rpID, rpName, origin string, opts ...VirtualOption) *VirtualAuthenticator {
	cfg := virtualConfig{userVerifying: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	var auth virtualwebauthn.Authenticator
	if cfg.userHandle != nil {
		auth = virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{
			UserHandle: cfg.userHandle,
		})
	} else {
		auth = virtualwebauthn.NewAuthenticator()
	}

	return &VirtualAuthenticator{
		rp: virtualwebauthn.RelyingParty{
			Name:   rpName,
			ID:     rpID,
			Origin: origin,
		},
		auth:          auth,
		userVerifying: cfg.userVerifying,
		conditional:   cfg.conditional,
	}
}

// UserVerifyingPlatformAuthenticatorAvailable implements
// capability.Platform.
func (a *VirtualAuthenticator) UserVerifyingPlatformAuthenticatorAvailable(context.Context) (bool, error) {
	return a.userVerifying, nil
}

// ConditionalMediationAvailable implements capability.Platform.
func (a *VirtualAuthenticator) ConditionalMediationAvailable(context.Context) (bool, error) {
	return a.conditional, nil
}

// CredentialCount returns how many credentials the authenticator holds.
func (a *VirtualAuthenticator) CredentialCount() int {
	return len(a.creds)
}

// CreateCredential mints a new EC2 credential for the challenge and
// returns the attestation result. The created credential is retained so
// subsequent GetCredential calls can assert with it.
func (a *VirtualAuthenticator) CreateCredential(ctx context.Context, challenge *RegistrationChallenge) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optionsJSON, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("marshal creation options: %w", err)
	}

	parsed, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	if err != nil {
		return nil, fmt.Errorf("parse creation options: %w", err)
	}

	cred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	responseJSON := virtualwebauthn.CreateAttestationResponse(a.rp, a.auth, cred, *parsed)

	var result Result
	if err := json.Unmarshal([]byte(responseJSON), &result); err != nil {
		return nil, fmt.Errorf("decode attestation response: %w", err)
	}

	a.auth.AddCredential(cred)
	a.creds = append(a.creds, cred)
	return &result, nil
}

// GetCredential asserts with the most recently created credential.
// With no credential on hand the platform has nothing to offer and the
// ceremony fails.
func (a *VirtualAuthenticator) GetCredential(ctx context.Context, challenge *AuthenticationChallenge) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(a.creds) == 0 {
		return nil, fmt.Errorf("no eligible credential for relying party %q", a.rp.ID)
	}

	optionsJSON, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("marshal request options: %w", err)
	}

	parsed, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	if err != nil {
		return nil, fmt.Errorf("parse request options: %w", err)
	}

	cred := a.creds[len(a.creds)-1]
	cred.Counter++
	a.creds[len(a.creds)-1] = cred

	responseJSON := virtualwebauthn.CreateAssertionResponse(a.rp, a.auth, cred, *parsed)

	var result Result
	if err := json.Unmarshal([]byte(responseJSON), &result); err != nil {
		return nil, fmt.Errorf("decode assertion response: %w", err)
	}
	return &result, nil
}
