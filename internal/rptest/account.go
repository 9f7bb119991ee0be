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

package rptest

import (
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/decisionworks/go-passkey/pkg/codec"
)

// account is one tenant user, implementing webauthn.User so the
// go-webauthn library can verify ceremonies against it.
type account struct {
	id          []byte
	email       string
	name        string
	hasPassword bool
	pending     bool

	creds     []webauthn.Credential
	credAdded map[string]time.Time
}

func newAccount(email, name string) *account {
	uid := uuid.New()
	return &account{
		id:        uid[:],
		email:     email,
		name:      name,
		credAdded: make(map[string]time.Time),
	}
}

// WebAuthnID implements webauthn.User.
func (a *account) WebAuthnID() []byte { return a.id }

// WebAuthnName implements webauthn.User.
func (a *account) WebAuthnName() string { return a.email }

// WebAuthnDisplayName implements webauthn.User.
func (a *account) WebAuthnDisplayName() string {
	if a.name != "" {
		return a.name
	}
	return a.email
}

// WebAuthnCredentials implements webauthn.User.
func (a *account) WebAuthnCredentials() []webauthn.Credential { return a.creds }

func (a *account) addCredential(cred webauthn.Credential) {
	a.creds = append(a.creds, cred)
	a.credAdded[codec.Encode(cred.ID)] = time.Now().UTC()
}

func (a *account) updateSignCount(credID []byte, signCount uint32) {
	for i := range a.creds {
		if string(a.creds[i].ID) == string(credID) {
			a.creds[i].Authenticator.SignCount = signCount
			return
		}
	}
}

func (a *account) removeCredential(encodedID string) bool {
	for i := range a.creds {
		if codec.Encode(a.creds[i].ID) == encodedID {
			a.creds = append(a.creds[:i], a.creds[i+1:]...)
			delete(a.credAdded, encodedID)
			return true
		}
	}
	return false
}
