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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionworks/go-passkey/pkg/ceremony"
	"github.com/decisionworks/go-passkey/pkg/rp"
)

type fakeDirectory struct {
	mu sync.Mutex

	statusCalls   int
	policyCalls   int
	recoveryCalls int
	resendCalls   int
	accessCalls   int

	status   rp.UserCredentialStatus
	policy   rp.TenantAuthPolicy
	decision rp.AccessDecision

	genericMessage string
}

func (f *fakeDirectory) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls + f.policyCalls + f.recoveryCalls + f.resendCalls + f.accessCalls
}

func (f *fakeDirectory) UserStatus(_ context.Context, email string) (*rp.UserCredentialStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	status := f.status
	return &status, nil
}

func (f *fakeDirectory) TenantPolicy(_ context.Context, domain string) (*rp.TenantAuthPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policyCalls++
	policy := f.policy
	return &policy, nil
}

func (f *fakeDirectory) RequestRecovery(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoveryCalls++
	return f.genericMessage, nil
}

func (f *fakeDirectory) ResendVerification(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resendCalls++
	return f.genericMessage, nil
}

func (f *fakeDirectory) RequestAccess(_ context.Context, email, name string) (*rp.AccessDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessCalls++
	decision := f.decision
	return &decision, nil
}

type fakeCeremonies struct {
	mu    sync.Mutex
	calls int
	err   error

	// entered, when set, receives once per call before gate blocks.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeCeremonies) AuthenticateWithCredential(_ context.Context, email string) (*ceremony.VerifyOutcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ceremony.VerifyOutcome{Message: "signed in", User: ceremony.AccountSummary{Email: email}}, nil
}

func (f *fakeCeremonies) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCaps struct {
	supported bool
	available bool
}

func (f fakeCaps) CeremonySupported() bool { return f.supported }

func (f fakeCaps) PlatformAuthenticatorAvailable(context.Context) bool { return f.available }

func passkeyPolicy() rp.TenantAuthPolicy {
	return rp.TenantAuthPolicy{
		Domain:            "acme.com",
		AllowPassword:     true,
		AllowPasskey:      true,
		AllowRegistration: true,
	}
}

func newTestMachine(t *testing.T, dir *fakeDirectory, cer *fakeCeremonies, caps fakeCaps) *Machine {
	t.Helper()
	m, err := NewMachine(MachineParams{
		Directory:    dir,
		Ceremonies:   cer,
		Capabilities: caps,
		TenantDomain: "acme.com",
	})
	require.NoError(t, err)
	return m
}

func TestDecide(t *testing.T) {
	policy := passkeyPolicy()
	noPasskeyPolicy := passkeyPolicy()
	noPasskeyPolicy.AllowPasskey = false

	tests := []struct {
		name    string
		status  rp.UserCredentialStatus
		policy  rp.TenantAuthPolicy
		capable bool
		want    Action
	}{
		{
			"passkey enrolled, allowed, capable",
			rp.UserCredentialStatus{Exists: true, HasPasskey: true},
			policy, true,
			AttemptPasskey,
		},
		{
			"no passkey enrolled",
			rp.UserCredentialStatus{Exists: true, HasPassword: true},
			policy, true,
			ShowPassword,
		},
		{
			"policy forbids passkey despite enrollment and capability",
			rp.UserCredentialStatus{Exists: true, HasPasskey: true},
			noPasskeyPolicy, true,
			ShowPassword,
		},
		{
			"probe negative suppresses auto-attempt",
			rp.UserCredentialStatus{Exists: true, HasPasskey: true},
			policy, false,
			ShowPassword,
		},
		{
			"unknown account",
			rp.UserCredentialStatus{Exists: false},
			policy, true,
			ShowRequestAccess,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(&tc.status, &tc.policy, tc.capable)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, ShowRequestAccess, Decide(nil, &policy, true))
}

func TestAutoPasskeyAttempt(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true, HasPassword: true},
		policy: passkeyPolicy(),
	}
	cer := &fakeCeremonies{}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))

	// The ceremony ran with no intermediate password sub-view.
	assert.Equal(t, 1, cer.callCount())

	state := m.State()
	assert.Equal(t, ViewLogin, state.View)
	assert.Equal(t, MethodPasskey, state.Method)
	assert.True(t, state.Authenticated)
	assert.Equal(t, "signed in", state.Message)
}

func TestPasswordFallbackWithoutCeremony(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPassword: true},
		policy: passkeyPolicy(),
	}
	cer := &fakeCeremonies{}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))

	assert.Equal(t, 0, cer.callCount(), "no ceremony for a password-only account")

	state := m.State()
	assert.Equal(t, ViewLogin, state.View)
	assert.Equal(t, MethodPassword, state.Method)
	assert.False(t, state.Authenticated)
}

func TestDomainMismatchIsLocal(t *testing.T) {
	dir := &fakeDirectory{policy: passkeyPolicy()}
	cer := &fakeCeremonies{}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	err := m.SubmitEmail(context.Background(), "alice@other.com")
	assert.ErrorIs(t, err, ErrDomainMismatch)
	assert.Equal(t, 0, dir.networkCalls(), "domain mismatch must not reach the network")
	assert.Equal(t, ViewInitial, m.State().View)
}

func TestInvalidEmailRejectedLocally(t *testing.T) {
	dir := &fakeDirectory{policy: passkeyPolicy()}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	err := m.SubmitEmail(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, 0, dir.networkCalls())
}

func TestCancelledCeremonyLeavesRecoveryReachable(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true, HasPassword: true},
		policy: passkeyPolicy(),
	}
	cer := &fakeCeremonies{err: errors.New("user cancelled the prompt")}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))

	state := m.State()
	assert.Equal(t, ViewLogin, state.View)
	assert.False(t, state.Authenticated)
	assert.NotEmpty(t, state.Message)
	assert.True(t, state.RecoveryAvailable)
	assert.False(t, state.Busy, "the view stays interactive after a failure")

	// The recovery action actually works from here.
	require.NoError(t, m.ForgotCredentials())
	assert.Equal(t, ViewRecovery, m.State().View)
}

func TestExplicitPasskeyRetryUsesFreshCeremony(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true},
		policy: passkeyPolicy(),
	}
	cer := &fakeCeremonies{err: errors.New("cancelled")}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))
	assert.Equal(t, 1, cer.callCount())

	cer.err = nil
	require.NoError(t, m.SignInWithPasskey(context.Background()))
	assert.Equal(t, 2, cer.callCount())
	assert.True(t, m.State().Authenticated)
}

func TestRequestAccessScenario(t *testing.T) {
	tests := []struct {
		name         string
		autoApproved bool
		wantView     View
	}{
		{"pending admin approval", false, ViewRequestSent},
		{"tenant auto-approves", true, ViewAutoApproved},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := &fakeDirectory{
				status:   rp.UserCredentialStatus{Exists: false},
				policy:   passkeyPolicy(),
				decision: rp.AccessDecision{Message: "request received", AutoApproved: tc.autoApproved},
			}
			m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{supported: true, available: true})

			require.NoError(t, m.SubmitEmail(context.Background(), "new@acme.com"))
			assert.Equal(t, ViewRequestAccess, m.State().View)

			require.NoError(t, m.SubmitAccessRequest(context.Background(), "New User"))

			state := m.State()
			assert.Equal(t, tc.wantView, state.View)
			assert.True(t, state.View.Terminal())
			assert.Equal(t, "request received", state.Message)
		})
	}
}

func TestRegistrationDisabledKeepsInitialView(t *testing.T) {
	policy := passkeyPolicy()
	policy.AllowRegistration = false
	dir := &fakeDirectory{status: rp.UserCredentialStatus{Exists: false}, policy: policy}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	require.NoError(t, m.SubmitEmail(context.Background(), "new@acme.com"))

	state := m.State()
	assert.Equal(t, ViewInitial, state.View)
	assert.NotEmpty(t, state.Message)
}

func TestPendingAccountShowsAccessPending(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, Pending: true},
		policy: passkeyPolicy(),
	}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "pending@acme.com"))
	assert.Equal(t, ViewAccessPending, m.State().View)
	assert.True(t, m.State().View.Terminal())
}

func TestRecoveryMessagePassthrough(t *testing.T) {
	const generic = "If that email is registered, instructions are on the way."
	dir := &fakeDirectory{
		status:         rp.UserCredentialStatus{Exists: true, HasPassword: true},
		policy:         passkeyPolicy(),
		genericMessage: generic,
	}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	ctx := context.Background()
	require.NoError(t, m.SubmitEmail(ctx, "alice@acme.com"))
	require.NoError(t, m.ForgotCredentials())

	require.NoError(t, m.SubmitRecovery(ctx, "whoever@acme.com"))

	state := m.State()
	assert.Equal(t, ViewLogin, state.View)
	assert.Equal(t, generic, state.Message)
}

func TestResendVerificationFlow(t *testing.T) {
	const generic = "Verification email sent if the address is registered."
	dir := &fakeDirectory{
		status:         rp.UserCredentialStatus{Exists: true, HasPassword: true},
		policy:         passkeyPolicy(),
		genericMessage: generic,
	}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	ctx := context.Background()
	require.NoError(t, m.SubmitEmail(ctx, "alice@acme.com"))
	require.NoError(t, m.StartResendVerification())
	assert.Equal(t, ViewResendVerification, m.State().View)

	require.NoError(t, m.SubmitResendVerification(ctx, ""))
	state := m.State()
	assert.Equal(t, ViewLogin, state.View)
	assert.Equal(t, generic, state.Message)
	assert.Equal(t, 1, dir.resendCalls)
}

func TestChooseMethodLegality(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true, HasPassword: true},
		policy: passkeyPolicy(),
	}
	// Probe negative: login opens on the password sub-view.
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))
	assert.Equal(t, MethodPassword, m.State().Method)

	require.NoError(t, m.ChooseMethod(MethodPasskey))
	assert.Equal(t, MethodPasskey, m.State().Method)

	require.NoError(t, m.ChooseMethod(MethodPassword))
	assert.Equal(t, MethodPassword, m.State().Method)

	assert.ErrorIs(t, m.ChooseMethod("sso"), ErrInvalidTransition)
}

func TestChooseMethodRespectsPolicy(t *testing.T) {
	policy := passkeyPolicy()
	policy.AllowPasskey = false
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true, HasPassword: true},
		policy: policy,
	}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{supported: true, available: true})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))
	assert.ErrorIs(t, m.ChooseMethod(MethodPasskey), ErrInvalidTransition)
}

func TestBusyGuardBlocksSecondCeremony(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPasskey: true},
		policy: passkeyPolicy(),
	}
	cer := &fakeCeremonies{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	m := newTestMachine(t, dir, cer, fakeCaps{supported: true, available: true})

	done := make(chan error, 1)
	go func() {
		done <- m.SubmitEmail(context.Background(), "alice@acme.com")
	}()

	// Wait until the first ceremony is suspended at the platform prompt.
	<-cer.entered

	err := m.SignInWithPasskey(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, cer.callCount())

	close(cer.gate)
	require.NoError(t, <-done)
	assert.True(t, m.State().Authenticated)
}

func TestReset(t *testing.T) {
	dir := &fakeDirectory{
		status: rp.UserCredentialStatus{Exists: true, HasPassword: true},
		policy: passkeyPolicy(),
	}
	m := newTestMachine(t, dir, &fakeCeremonies{}, fakeCaps{})

	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))
	assert.Equal(t, ViewLogin, m.State().View)

	m.Reset()
	state := m.State()
	assert.Equal(t, ViewInitial, state.View)
	assert.Empty(t, state.Email)
	assert.Empty(t, state.Message)
	assert.False(t, state.Authenticated)

	// Tenant policy stays cached across resets.
	require.NoError(t, m.SubmitEmail(context.Background(), "alice@acme.com"))
	assert.Equal(t, 1, dir.policyCalls)
}
