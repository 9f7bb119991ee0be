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

// Phase is one step of the per-ceremony state machine. Phases advance
// strictly forward and terminate in PhaseVerified or PhaseFailed.
type Phase string

const (
	PhaseIdle                  Phase = "idle"
	PhaseChallengeRequested    Phase = "challenge_requested"
	PhaseChallengeReceived     Phase = "challenge_received"
	PhasePlatformInvoked       Phase = "platform_invoked"
	PhaseResultSerialized      Phase = "result_serialized"
	PhaseVerificationRequested Phase = "verification_requested"
	PhaseVerified              Phase = "verified"
	PhaseFailed                Phase = "failed"
)

// Terminal reports whether the phase ends a ceremony.
func (p Phase) Terminal() bool {
	return p == PhaseVerified || p == PhaseFailed
}

// Kind names which of the two ceremonies is being performed.
type Kind string

const (
	// KindRegistration is the credential-creation ceremony.
	KindRegistration Kind = "registration"

	// KindAuthentication is the assertion ceremony.
	KindAuthentication Kind = "authentication"
)
