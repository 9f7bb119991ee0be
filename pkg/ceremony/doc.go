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

// Package ceremony orchestrates the two public-key credential
// ceremonies, registration and authentication, against an external
// relying party.
//
// A ceremony is one complete round trip: fetch a single-use challenge
// from the relying party, invoke the platform credential API, serialize
// the attested or signed result, submit it for verification, and on
// success refresh the current identity. Each invocation walks a fixed
// phase sequence and terminates in Verified or Failed; nothing is
// retried automatically, and a retry is always a fresh user-initiated
// invocation with a newly fetched challenge.
//
// # Architecture
//
// The package splits into four layers:
//
//  1. Wire types (RegistrationChallenge, AuthenticationChallenge,
//     Result) - the relying party's native JSON shapes, with all binary
//     fields crossing the boundary through pkg/codec.
//  2. Authenticator port - the narrow interface over the platform
//     credential API, so everything above it is testable with a fake.
//  3. Client - the per-ceremony state machine.
//  4. VirtualAuthenticator - a software platform authenticator backed
//     by descope/virtualwebauthn, used in production on hosts without a
//     browser surface and in every integration test.
//
// # Usage
//
//	client := ceremony.NewClient(ceremony.ClientParams{
//	    RelyingParty:  rpClient,
//	    Authenticator: authenticator,
//	})
//	outcome, err := client.RegisterCredential(ctx, "alice@acme.com", "Alice")
package ceremony
