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

// Package capability determines whether the execution context can
// perform a credential ceremony at all, and whether a platform
// authenticator (biometric/PIN) is likely available.
//
// Detection is deliberately liberal about treating ambiguous signals as
// "unsupported": a false negative costs a password fallback, while a
// propagated error would take down the method-selection flow. No probe
// in this package panics or returns an error.
package capability

import "context"

// Platform is the subset of the platform credential API the prober
// interrogates. A nil Platform means the API is absent from the
// execution context.
type Platform interface {
	// UserVerifyingPlatformAuthenticatorAvailable reports whether the
	// platform can verify the user locally (biometric, PIN).
	UserVerifyingPlatformAuthenticatorAvailable(ctx context.Context) (bool, error)

	// ConditionalMediationAvailable reports whether the platform
	// supports conditional (autofill) credential mediation.
	ConditionalMediationAvailable(ctx context.Context) (bool, error)
}

// Environment describes the context the engine is running in.
type Environment struct {
	// Interactive is true when running in a context that can present a
	// credential prompt to a user (false in headless/server rendering).
	Interactive bool

	// Origin is the full origin the engine is served from,
	// e.g. "https://acme.records.example".
	Origin string

	// Platform is the platform credential API, or nil when absent.
	Platform Platform
}

// Diagnostics receives capability-detection internals. Implementations
// must be safe to call from probe paths; production builds may wire
// NopDiagnostics.
type Diagnostics interface {
	Debugf(format string, args ...any)
}

// NopDiagnostics discards all diagnostic output.
type NopDiagnostics struct{}

// Debugf implements Diagnostics.
func (NopDiagnostics) Debugf(string, ...any) {}

// Prober answers capability questions about one Environment.
type Prober struct {
	env  Environment
	diag Diagnostics
}

// NewProber creates a prober for the given environment. A nil diag
// defaults to NopDiagnostics.
func NewProber(env Environment, diag Diagnostics) *Prober {
	if diag == nil {
		diag = NopDiagnostics{}
	}
	return &Prober{env: env, diag: diag}
}

// CeremonySupported reports whether a credential ceremony is possible
// at all: an interactive context, a secure origin, and a present
// platform credential API. All three are required.
func (p *Prober) CeremonySupported() bool {
	if !p.env.Interactive {
		p.diag.Debugf("capability: non-interactive context, ceremony unsupported")
		return false
	}
	if !SecureOrigin(p.env.Origin) {
		p.diag.Debugf("capability: origin %q is not secure, ceremony unsupported", p.env.Origin)
		return false
	}
	if p.env.Platform == nil {
		p.diag.Debugf("capability: platform credential API absent")
		return false
	}
	return true
}

// PlatformAuthenticatorAvailable reports whether a user-verifying
// platform authenticator is likely available. False when the ceremony
// is unsupported; any probe error is treated as unavailable.
func (p *Prober) PlatformAuthenticatorAvailable(ctx context.Context) bool {
	if !p.CeremonySupported() {
		return false
	}
	available, err := p.env.Platform.UserVerifyingPlatformAuthenticatorAvailable(ctx)
	if err != nil {
		p.diag.Debugf("capability: platform authenticator probe failed: %v", err)
		return false
	}
	p.diag.Debugf("capability: platform authenticator available=%t", available)
	return available
}

// AutofillAvailable reports, best effort, whether conditional-mediation
// (autofill) UI is supported. Any absence or error yields false.
func (p *Prober) AutofillAvailable(ctx context.Context) bool {
	if !p.CeremonySupported() {
		return false
	}
	available, err := p.env.Platform.ConditionalMediationAvailable(ctx)
	if err != nil {
		p.diag.Debugf("capability: conditional mediation probe failed: %v", err)
		return false
	}
	return available
}
