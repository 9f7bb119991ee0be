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
	"errors"
	"fmt"
)

// Sentinel errors for ceremony outcomes.
var (
	// ErrChallengeFetch is returned when the relying party could not
	// issue a challenge (network or server error). Retryable; no local
	// state was mutated.
	ErrChallengeFetch = errors.New("failed to obtain a challenge")

	// ErrCeremonyAborted is returned when the platform prompt was
	// cancelled or no matching authenticator was available.
	ErrCeremonyAborted = errors.New("ceremony aborted")

	// ErrVerificationRejected is returned when the relying party
	// rejects the signed result. The consumed challenge must not be
	// retried; a new ceremony fetches a fresh one.
	ErrVerificationRejected = errors.New("verification rejected")

	// ErrCeremonyInFlight is returned when a second ceremony is
	// triggered while one is still awaiting the platform or the
	// network. Two concurrent platform prompts is undefined behavior.
	ErrCeremonyInFlight = errors.New("another ceremony is already in flight")

	// ErrMalformedResult is returned when a platform credential cannot
	// be serialized into exactly one of the two result shapes.
	ErrMalformedResult = errors.New("malformed ceremony result")
)

// Error wraps a ceremony failure with the operation and the phase it
// failed in. The message is the single human-readable string surfaced
// to the user.
type Error struct {
	Op    string // operation that failed
	Phase Phase  // phase the ceremony was in
	Err   error  // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation and phase if it's not nil.
func WrapError(op string, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Phase: phase, Err: err}
}

// IsAborted returns true if the error indicates the platform prompt was
// cancelled or unusable.
func IsAborted(err error) bool {
	return errors.Is(err, ErrCeremonyAborted)
}

// IsVerificationRejected returns true if the relying party rejected the
// result.
func IsVerificationRejected(err error) bool {
	return errors.Is(err, ErrVerificationRejected)
}

// IsChallengeFetch returns true if no challenge could be obtained.
func IsChallengeFetch(err error) bool {
	return errors.Is(err, ErrChallengeFetch)
}
