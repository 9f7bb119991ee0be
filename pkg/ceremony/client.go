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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/decisionworks/go-passkey/pkg/capability"
)

// Client drives registration and authentication ceremonies. It holds no
// challenge state between invocations: a challenge is fetched inside a
// run, consumed by exactly one platform invocation, and never cached.
//
// At most one ceremony may be in flight per Client.
type Client struct {
	rp       RelyingParty
	authn    Authenticator
	diag     capability.Diagnostics
	inFlight atomic.Bool

	// lastRun is observability only: the id, kind and terminal phase of
	// the most recently completed ceremony.
	lastRun atomic.Pointer[RunInfo]
}

// ClientParams contains dependencies for creating a ceremony client.
type ClientParams struct {
	// RelyingParty is the HTTP contract consumer (required).
	RelyingParty RelyingParty

	// Authenticator is the platform credential API adapter (required).
	Authenticator Authenticator

	// Diagnostics receives ceremony progress events. Optional; defaults
	// to a no-op.
	Diagnostics capability.Diagnostics
}

// RunInfo describes one completed ceremony run.
type RunInfo struct {
	ID    string
	Kind  Kind
	Phase Phase
}

// NewClient creates a ceremony client with the provided dependencies.
func NewClient(params ClientParams) (*Client, error) {
	if params.RelyingParty == nil {
		return nil, fmt.Errorf("relying party is required")
	}
	if params.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	diag := params.Diagnostics
	if diag == nil {
		diag = capability.NopDiagnostics{}
	}
	return &Client{rp: params.RelyingParty, authn: params.Authenticator, diag: diag}, nil
}

// LastRun returns the most recently completed ceremony run, or nil if
// none has completed yet.
func (c *Client) LastRun() *RunInfo {
	return c.lastRun.Load()
}

// RegisterCredential performs the credential-creation ceremony for the
// given account. Email syntax and tenant-domain validation are the
// caller's responsibility.
//
// On failure nothing is retried; a retry is a fresh call, which fetches
// a fresh challenge.
func (c *Client) RegisterCredential(ctx context.Context, email, displayName string) (*VerifyOutcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, WrapError("register credential", PhaseIdle, ErrCeremonyInFlight)
	}
	defer c.inFlight.Store(false)

	run := c.newRun(KindRegistration)
	defer run.finish()

	run.advance(PhaseChallengeRequested)
	challenge, err := c.rp.RegistrationOptions(ctx, email, displayName)
	if err != nil {
		return nil, run.fail("fetch registration challenge", ErrChallengeFetch, err)
	}
	run.advance(PhaseChallengeReceived)

	run.advance(PhasePlatformInvoked)
	result, err := c.authn.CreateCredential(ctx, challenge)
	if err != nil {
		return nil, run.fail("create credential", ErrCeremonyAborted, err)
	}

	run.advance(PhaseResultSerialized)
	if err := result.Validate(); err != nil {
		return nil, run.fail("serialize credential", ErrMalformedResult, err)
	}

	run.advance(PhaseVerificationRequested)
	outcome, err := c.rp.VerifyRegistration(ctx, result)
	if err != nil {
		return nil, run.fail("verify registration", ErrVerificationRejected, err)
	}

	c.refreshIdentity(ctx, run)
	run.advance(PhaseVerified)
	return outcome, nil
}

// AuthenticateWithCredential performs the assertion ceremony. An empty
// email lets the platform offer any eligible discoverable credential
// scoped to the relying party.
func (c *Client) AuthenticateWithCredential(ctx context.Context, email string) (*VerifyOutcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, WrapError("authenticate", PhaseIdle, ErrCeremonyInFlight)
	}
	defer c.inFlight.Store(false)

	run := c.newRun(KindAuthentication)
	defer run.finish()

	run.advance(PhaseChallengeRequested)
	challenge, err := c.rp.AuthenticationOptions(ctx, email)
	if err != nil {
		return nil, run.fail("fetch authentication challenge", ErrChallengeFetch, err)
	}
	run.advance(PhaseChallengeReceived)

	run.advance(PhasePlatformInvoked)
	result, err := c.authn.GetCredential(ctx, challenge)
	if err != nil {
		return nil, run.fail("get credential", ErrCeremonyAborted, err)
	}

	run.advance(PhaseResultSerialized)
	if err := result.Validate(); err != nil {
		return nil, run.fail("serialize assertion", ErrMalformedResult, err)
	}

	run.advance(PhaseVerificationRequested)
	outcome, err := c.rp.VerifyAuthentication(ctx, result)
	if err != nil {
		return nil, run.fail("verify authentication", ErrVerificationRejected, err)
	}

	c.refreshIdentity(ctx, run)
	run.advance(PhaseVerified)
	return outcome, nil
}

// refreshIdentity triggers the post-verification identity reload. The
// ceremony itself already succeeded, so a refresh failure is logged,
// not surfaced.
func (c *Client) refreshIdentity(ctx context.Context, run *ceremonyRun) {
	if err := c.rp.RefreshIdentity(ctx); err != nil {
		c.diag.Debugf("ceremony %s: identity refresh failed: %v", run.info.ID, err)
	}
}

// ceremonyRun tracks a single ceremony through its phases.
type ceremonyRun struct {
	client   *Client
	info     RunInfo
	start    time.Time
	err      error
	failedIn Phase
}

func (c *Client) newRun(kind Kind) *ceremonyRun {
	run := &ceremonyRun{
		client: c,
		info:   RunInfo{ID: uuid.NewString(), Kind: kind, Phase: PhaseIdle},
		start:  time.Now(),
	}
	c.diag.Debugf("ceremony %s: starting %s", run.info.ID, kind)
	return run
}

func (r *ceremonyRun) advance(p Phase) {
	r.info.Phase = p
	r.client.diag.Debugf("ceremony %s: %s", r.info.ID, p)
}

// fail terminates the run, recording the phase it failed in, and
// returns the single wrapped error surfaced to the caller.
func (r *ceremonyRun) fail(op string, sentinel, cause error) error {
	r.failedIn = r.info.Phase
	r.info.Phase = PhaseFailed
	r.err = &Error{Op: op, Phase: r.failedIn, Err: fmt.Errorf("%w: %v", sentinel, cause)}
	r.client.diag.Debugf("ceremony %s: failed in %s: %v", r.info.ID, r.failedIn, cause)
	return r.err
}

func (r *ceremonyRun) finish() {
	recordCeremony(r.info.Kind, r.start, r.failedIn, r.err)
	r.client.lastRun.Store(&r.info)
}
