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

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/decisionworks/go-passkey/pkg/capability"
	"github.com/decisionworks/go-passkey/pkg/ceremony"
	"github.com/decisionworks/go-passkey/pkg/rp"
)

// Directory is the slice of the relying-party contract the machine
// uses for lookups and account-lifecycle requests. Implemented by
// rp.Client.
type Directory interface {
	UserStatus(ctx context.Context, email string) (*rp.UserCredentialStatus, error)
	TenantPolicy(ctx context.Context, domain string) (*rp.TenantAuthPolicy, error)
	RequestRecovery(ctx context.Context, email string) (string, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	RequestAccess(ctx context.Context, email, name string) (*rp.AccessDecision, error)
}

// Ceremonies runs the authentication ceremony. Implemented by
// ceremony.Client.
type Ceremonies interface {
	AuthenticateWithCredential(ctx context.Context, email string) (*ceremony.VerifyOutcome, error)
}

// Capabilities answers whether a passkey ceremony can be attempted in
// this environment. Implemented by capability.Prober.
type Capabilities interface {
	CeremonySupported() bool
	PlatformAuthenticatorAvailable(ctx context.Context) bool
}

// Machine drives one sign-in session. All mutation goes through its
// methods; State returns a consistent snapshot for rendering.
//
// A busy flag guards against a second ceremony or network operation
// being triggered while one is in flight. Every failure path returns
// control to an interactive view: nothing here is fatal.
type Machine struct {
	dir  Directory
	cer  Ceremonies
	caps Capabilities
	diag capability.Diagnostics

	tenantDomain string

	mu            sync.Mutex
	busy          bool
	view          View
	method        Method
	email         string
	message       string
	authenticated bool
	status        *rp.UserCredentialStatus
	policy        *rp.TenantAuthPolicy
}

// MachineParams contains dependencies for creating a flow machine.
type MachineParams struct {
	// Directory is the relying-party lookup surface (required).
	Directory Directory

	// Ceremonies runs authentication ceremonies (required).
	Ceremonies Ceremonies

	// Capabilities is the local capability prober (required).
	Capabilities Capabilities

	// TenantDomain is the email domain this tenant accepts (required).
	TenantDomain string

	// Diagnostics receives transition events. Optional; defaults to a
	// no-op.
	Diagnostics capability.Diagnostics
}

// NewMachine creates a sign-in flow machine at ViewInitial.
func NewMachine(params MachineParams) (*Machine, error) {
	if params.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if params.Ceremonies == nil {
		return nil, fmt.Errorf("ceremonies is required")
	}
	if params.Capabilities == nil {
		return nil, fmt.Errorf("capabilities is required")
	}
	if params.TenantDomain == "" {
		return nil, fmt.Errorf("tenant domain is required")
	}
	diag := params.Diagnostics
	if diag == nil {
		diag = capability.NopDiagnostics{}
	}
	return &Machine{
		dir:          params.Directory,
		cer:          params.Ceremonies,
		caps:         params.Capabilities,
		diag:         diag,
		tenantDomain: strings.ToLower(params.TenantDomain),
		view:         ViewInitial,
	}, nil
}

// State is an immutable snapshot of the machine for rendering.
type State struct {
	View          View
	Method        Method
	Email         string
	Message       string
	Busy          bool
	Authenticated bool

	// CanUsePasskey and CanUsePassword report which login sub-views are
	// legal for the resolved account under tenant policy.
	CanUsePasskey  bool
	CanUsePassword bool

	// RecoveryAvailable reports whether the recovery action is
	// reachable from the current view. It is always true at ViewLogin,
	// including after a failed ceremony.
	RecoveryAvailable bool
}

// State returns a snapshot of the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		View:              m.view,
		Method:            m.method,
		Email:             m.email,
		Message:           m.message,
		Busy:              m.busy,
		Authenticated:     m.authenticated,
		CanUsePasskey:     m.canUsePasskeyLocked(),
		CanUsePassword:    m.canUsePasswordLocked(),
		RecoveryAvailable: m.view == ViewLogin || m.view == ViewRecovery,
	}
}

func (m *Machine) canUsePasskeyLocked() bool {
	return m.status != nil && m.status.HasPasskey &&
		m.policy != nil && m.policy.AllowPasskey
}

func (m *Machine) canUsePasswordLocked() bool {
	return m.status != nil && m.status.HasPassword &&
		m.policy != nil && m.policy.AllowPassword
}

// begin acquires the busy guard.
func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

// end releases the busy guard.
func (m *Machine) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// SubmitEmail resolves the submitted email and transitions out of
// ViewInitial. Syntax and tenant-domain validation happen locally
// before any network call; a mismatch never leaves the process.
//
// For a known account with a usable passkey the authentication
// ceremony is attempted silently, with fallback to the login view on
// failure.
func (m *Machine) SubmitEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if !m.matchesTenantDomain(email) {
		return ErrDomainMismatch
	}

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	policy, err := m.ensurePolicy(ctx)
	if err != nil {
		m.setMessage(fmt.Sprintf("could not load sign-in configuration: %v", err))
		return nil
	}

	status, err := m.dir.UserStatus(ctx, email)
	if err != nil {
		m.setMessage(fmt.Sprintf("could not look up account: %v", err))
		return nil
	}

	m.mu.Lock()
	m.email = email
	m.status = status
	m.message = ""
	m.mu.Unlock()

	if status.Exists && status.Pending {
		m.transition(ViewAccessPending, "")
		return nil
	}

	action := Decide(status, policy, m.passkeyCapable(ctx))
	m.diag.Debugf("flow: %s resolved to %s", email, action)

	switch action {
	case AttemptPasskey:
		m.mu.Lock()
		m.view = ViewLogin
		m.method = MethodPasskey
		m.mu.Unlock()
		m.attemptPasskey(ctx)
	case ShowPassword:
		m.mu.Lock()
		m.view = ViewLogin
		m.method = MethodPassword
		m.mu.Unlock()
	case ShowRequestAccess:
		if policy.AllowRegistration {
			m.transition(ViewRequestAccess, "")
		} else {
			m.transition(ViewInitial, "No account for that email. Contact your administrator for access.")
		}
	}
	return nil
}

// SignInWithPasskey explicitly (re)starts the authentication ceremony
// from the login view, e.g. after a cancelled prompt.
func (m *Machine) SignInWithPasskey(ctx context.Context) error {
	m.mu.Lock()
	legal := m.view == ViewLogin && m.canUsePasskeyLocked()
	m.mu.Unlock()
	if !legal {
		return ErrInvalidTransition
	}

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.attemptPasskey(ctx)
	return nil
}

// attemptPasskey runs one authentication ceremony. Caller holds the
// busy guard. Any failure returns the machine to an interactive login
// view with the recovery action reachable.
func (m *Machine) attemptPasskey(ctx context.Context) {
	outcome, err := m.cer.AuthenticateWithCredential(ctx, m.currentEmail())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = ViewLogin
	if err != nil {
		m.diag.Debugf("flow: passkey attempt failed: %v", err)
		m.message = "Passkey sign-in did not complete. Try again, use another method, or recover your credentials."
		if m.canUsePasswordLocked() {
			m.method = MethodPassword
		} else {
			m.method = MethodPasskey
		}
		return
	}
	m.authenticated = true
	m.message = outcome.Message
	m.method = MethodPasskey
}

// ChooseMethod toggles between the passkey and password sub-views when
// both are enrolled and allowed.
func (m *Machine) ChooseMethod(method Method) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view != ViewLogin {
		return ErrInvalidTransition
	}
	switch method {
	case MethodPasskey:
		if !m.canUsePasskeyLocked() {
			return ErrInvalidTransition
		}
	case MethodPassword:
		if !m.canUsePasswordLocked() {
			return ErrInvalidTransition
		}
	default:
		return ErrInvalidTransition
	}
	m.method = method
	return nil
}

// ForgotCredentials transitions from the login view to recovery.
func (m *Machine) ForgotCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view != ViewLogin {
		return ErrInvalidTransition
	}
	m.view = ViewRecovery
	m.message = ""
	return nil
}

// StartResendVerification transitions from the login view to the
// resend-verification form.
func (m *Machine) StartResendVerification() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view != ViewLogin {
		return ErrInvalidTransition
	}
	m.view = ViewResendVerification
	m.message = ""
	return nil
}

// Back returns from the recovery or resend-verification form to the
// login view without submitting.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.view {
	case ViewRecovery, ViewResendVerification:
		m.view = ViewLogin
		m.message = ""
		return nil
	}
	return ErrInvalidTransition
}

// SubmitRecovery submits a recovery request. The server's message is
// uniform regardless of whether the email exists; it is surfaced
// verbatim and the machine returns to the login view.
func (m *Machine) SubmitRecovery(ctx context.Context, email string) error {
	return m.submitGuarded(ctx, ViewRecovery, email, m.dir.RequestRecovery)
}

// SubmitResendVerification submits a resend-verification request, with
// the same enumeration guard as SubmitRecovery.
func (m *Machine) SubmitResendVerification(ctx context.Context, email string) error {
	return m.submitGuarded(ctx, ViewResendVerification, email, m.dir.ResendVerification)
}

func (m *Machine) submitGuarded(ctx context.Context, from View, email string, call func(context.Context, string) (string, error)) error {
	m.mu.Lock()
	if m.view != from {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	if email == "" {
		email = m.email
	}
	m.mu.Unlock()

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	message, err := call(ctx, email)
	if err != nil {
		m.setMessage(fmt.Sprintf("request failed: %v", err))
		return nil
	}

	m.transition(ViewLogin, message)
	return nil
}

// SubmitAccessRequest submits the access-request form. The server's
// auto_approved flag alone selects the resulting view; the client
// performs no approval logic.
func (m *Machine) SubmitAccessRequest(ctx context.Context, name string) error {
	m.mu.Lock()
	if m.view != ViewRequestAccess {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	email := m.email
	m.mu.Unlock()

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	decision, err := m.dir.RequestAccess(ctx, email, name)
	if err != nil {
		m.setMessage(fmt.Sprintf("request failed: %v", err))
		return nil
	}

	if decision.AutoApproved {
		m.transition(ViewAutoApproved, decision.Message)
	} else {
		m.transition(ViewRequestSent, decision.Message)
	}
	return nil
}

// Reset returns the machine to a fresh ViewInitial, keeping the cached
// tenant policy.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = ViewInitial
	m.method = ""
	m.email = ""
	m.message = ""
	m.status = nil
	m.authenticated = false
}

// matchesTenantDomain checks the email's domain against the tenant.
// Local only; this must not touch the network.
func (m *Machine) matchesTenantDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return email[at+1:] == m.tenantDomain
}

// ensurePolicy fetches and caches the tenant policy.
func (m *Machine) ensurePolicy(ctx context.Context) (*rp.TenantAuthPolicy, error) {
	m.mu.Lock()
	cached := m.policy
	m.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	policy, err := m.dir.TenantPolicy(ctx, m.tenantDomain)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.policy = policy
	m.mu.Unlock()
	return policy, nil
}

// passkeyCapable runs the local capability probes. Policy and
// enrollment checks happen in Decide; this is environment only.
func (m *Machine) passkeyCapable(ctx context.Context) bool {
	return m.caps.CeremonySupported() && m.caps.PlatformAuthenticatorAvailable(ctx)
}

func (m *Machine) currentEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

func (m *Machine) setMessage(msg string) {
	m.mu.Lock()
	m.message = msg
	m.mu.Unlock()
}

func (m *Machine) transition(v View, msg string) {
	m.mu.Lock()
	m.view = v
	m.message = msg
	m.mu.Unlock()
}
