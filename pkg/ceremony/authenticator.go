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

	"github.com/decisionworks/go-passkey/pkg/capability"
)

// Authenticator is the narrow port over the platform credential API.
// The state machine and codec are unit-tested against fakes of this
// interface; the real implementation stays a thin adapter over the
// platform (see VirtualAuthenticator).
//
// Both calls may suspend indefinitely awaiting user biometric/PIN input
// and reject on user cancel; the caller treats any error uniformly as a
// ceremony failure.
type Authenticator interface {
	capability.Platform

	// CreateCredential invokes the platform's credential-creation
	// primitive with a single-use registration challenge.
	CreateCredential(ctx context.Context, challenge *RegistrationChallenge) (*Result, error)

	// GetCredential invokes the platform's assertion primitive with a
	// single-use authentication challenge.
	GetCredential(ctx context.Context, challenge *AuthenticationChallenge) (*Result, error)
}

// RelyingParty is the slice of the relying-party HTTP contract the
// ceremony client consumes. Implemented by rp.Client.
type RelyingParty interface {
	// RegistrationOptions fetches a fresh single-use registration
	// challenge for the given account.
	RegistrationOptions(ctx context.Context, email, displayName string) (*RegistrationChallenge, error)

	// VerifyRegistration submits an attestation result for
	// verification.
	VerifyRegistration(ctx context.Context, result *Result) (*VerifyOutcome, error)

	// AuthenticationOptions fetches a fresh single-use authentication
	// challenge. An empty email requests the discoverable-credential
	// flow.
	AuthenticationOptions(ctx context.Context, email string) (*AuthenticationChallenge, error)

	// VerifyAuthentication submits an assertion result for
	// verification.
	VerifyAuthentication(ctx context.Context, result *Result) (*VerifyOutcome, error)

	// RefreshIdentity re-fetches "who am I" so dependent UI reflects
	// the newly usable credential.
	RefreshIdentity(ctx context.Context) error
}
