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

package flow

import "github.com/decisionworks/go-passkey/pkg/rp"

// Action is the discriminated next step after a user-status lookup
// resolves. The machine executes it; keeping the decision a pure
// function keeps it synchronously testable apart from the asynchronous
// ceremony.
type Action string

const (
	// AttemptPasskey silently starts the authentication ceremony.
	AttemptPasskey Action = "attemptPasskey"

	// ShowPassword presents the password sub-view without any ceremony.
	ShowPassword Action = "showPassword"

	// ShowRequestAccess routes an unknown email to the access-request
	// form.
	ShowRequestAccess Action = "showRequestAccess"
)

// Decide picks the next action for a resolved user status. A passkey is
// auto-attempted only when the account has one enrolled, tenant policy
// allows it, and the local capability probe came back positive; policy
// and enrollment always override the probe.
func Decide(status *rp.UserCredentialStatus, policy *rp.TenantAuthPolicy, passkeyCapable bool) Action {
	if status == nil || !status.Exists {
		return ShowRequestAccess
	}
	if status.HasPasskey && policy != nil && policy.AllowPasskey && passkeyCapable {
		return AttemptPasskey
	}
	return ShowPassword
}
