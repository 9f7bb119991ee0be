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

import "errors"

var (
	// ErrDomainMismatch is returned when the submitted email does not
	// belong to the tenant's domain. Purely local validation; no
	// network call is made.
	ErrDomainMismatch = errors.New("email does not belong to this organization")

	// ErrInvalidEmail is returned for syntactically invalid email
	// input. Local validation only.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrBusy is returned when an operation is triggered while another
	// is still in flight. The triggering control should be disabled,
	// but the guard holds regardless.
	ErrBusy = errors.New("an operation is already in progress")

	// ErrInvalidTransition is returned when an operation is not legal
	// from the current view.
	ErrInvalidTransition = errors.New("operation not available from the current view")
)
