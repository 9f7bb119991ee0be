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

// Package flow implements the method-selection state machine: given a
// tenant's configured sign-in methods and a specific account's enrolled
// credentials, it decides which path to present (auto-attempt passkey,
// password, recovery, access request) and manages view transitions on
// success, failure and user-initiated fallback.
//
// The machine never renders anything; it owns a View value and exposes
// a State snapshot for whatever front end sits on top.
package flow

// View is the single view-state of a sign-in session. Created at
// ViewInitial; mutated only by the machine in response to lookups and
// ceremony outcomes; discarded when the session ends.
type View string

const (
	// ViewInitial shows only the email field.
	ViewInitial View = "initial"

	// ViewLogin shows the method sub-views (passkey and/or password)
	// for a known account.
	ViewLogin View = "login"

	// ViewRecovery shows the credential-recovery request form.
	ViewRecovery View = "recovery"

	// ViewResendVerification shows the resend-verification form.
	ViewResendVerification View = "resendVerification"

	// ViewRequestAccess shows the access-request form for an email with
	// no existing account.
	ViewRequestAccess View = "requestAccess"

	// ViewRequestSent reports that an access request awaits admin
	// approval. Terminal, informational.
	ViewRequestSent View = "requestSent"

	// ViewAutoApproved reports that tenant policy auto-approved the
	// access request. Terminal, informational.
	ViewAutoApproved View = "autoApproved"

	// ViewAccessPending reports that the account exists but still
	// awaits approval. Terminal, informational.
	ViewAccessPending View = "accessPending"
)

// Terminal reports whether the view is informational with no further
// transitions besides Reset.
func (v View) Terminal() bool {
	switch v {
	case ViewRequestSent, ViewAutoApproved, ViewAccessPending:
		return true
	}
	return false
}

// Method is the active sub-view at ViewLogin.
type Method string

const (
	MethodPasskey  Method = "passkey"
	MethodPassword Method = "password"
)
