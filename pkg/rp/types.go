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

package rp

import (
	"time"

	"github.com/decisionworks/go-passkey/pkg/ceremony"
)

// TenantAuthPolicy is a tenant's configured authentication methods.
// Read-only from the engine's perspective; it drives which sign-in
// branches are legal.
type TenantAuthPolicy struct {
	Domain            string   `json:"domain"`
	AllowPassword     bool     `json:"allow_password"`
	AllowPasskey      bool     `json:"allow_passkey"`
	AllowSSOProviders []string `json:"allow_sso_providers,omitempty"`
	AllowRegistration bool     `json:"allow_registration"`
}

// UserCredentialStatus reports what credentials an email has enrolled.
// Pending marks an account awaiting admin approval.
type UserCredentialStatus struct {
	Exists      bool `json:"exists"`
	HasPasskey  bool `json:"has_passkey"`
	HasPassword bool `json:"has_password"`
	Pending     bool `json:"pending,omitempty"`
}

// EnrolledCredentialSummary describes one enrolled passkey for
// credential-management views.
type EnrolledCredentialSummary struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	Transports []string  `json:"transports,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Identity is the signed-in account as reported by the server.
type Identity struct {
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	TenantDomain string `json:"tenant_domain,omitempty"`
}

// AccessDecision is the server's answer to an access request. The
// client performs no approval logic; it renders whichever outcome the
// flag selects.
type AccessDecision struct {
	Message      string `json:"message"`
	AutoApproved bool   `json:"auto_approved"`
}

// messageResponse is the generic {message} body shared by the
// enumeration-guarded endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

// verifyResponse is the body of both ceremony verify endpoints.
type verifyResponse struct {
	Message string                  `json:"message"`
	User    ceremony.AccountSummary `json:"user"`
	Token   string                  `json:"token,omitempty"`
}

// emailRequest is the {email} body shared by several endpoints.
type emailRequest struct {
	Email string `json:"email,omitempty"`
}

// accountRequest is the {email, name} body for registration options and
// access requests.
type accountRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// credentialRequest wraps a ceremony result for the verify endpoints.
type credentialRequest struct {
	Credential *ceremony.Result `json:"credential"`
}
