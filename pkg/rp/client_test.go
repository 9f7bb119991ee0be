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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionworks/go-passkey/pkg/ceremony"
	"github.com/decisionworks/go-passkey/pkg/codec"
)

func newServerClient(t *testing.T, handler http.Handler) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{BaseURL: server.URL})
	require.NoError(t, err)
	return server, client
}

func TestNewClientConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"valid", &Config{BaseURL: "https://auth.example.com"}, false},
		{"trailing slash", &Config{BaseURL: "https://auth.example.com/"}, false},
		{"missing base URL", &Config{}, true},
		{"bad scheme", &Config{BaseURL: "ftp://auth.example.com"}, true},
		{"no host", &Config{BaseURL: "https://"}, true},
		{"negative timeout", &Config{BaseURL: "https://auth.example.com", Timeout: -time.Second}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.config)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistrationOptions(t *testing.T) {
	challenge := []byte{0x01, 0x02, 0x03, 0xfb, 0xff}

	var gotBody accountRequest
	var gotRequestID string
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/webauthn/register/options", r.URL.Path)
		gotRequestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"rp":        map[string]any{"name": "Acme", "id": "acme.example"},
			"user":      map[string]any{"id": codec.Encode([]byte("user-1")), "name": "alice@acme.example"},
			"challenge": codec.Encode(challenge),
			"pubKeyCredParams": []map[string]any{
				{"type": "public-key", "alg": -7},
			},
			"timeout":     60000,
			"attestation": "none",
		})
	}))

	opts, err := client.RegistrationOptions(context.Background(), "alice@acme.example", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@acme.example", gotBody.Email)
	assert.Equal(t, "Alice", gotBody.Name)

	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "every request carries a UUID correlation id")

	assert.Equal(t, "acme.example", opts.RelyingParty.ID)
	assert.Equal(t, codec.Binary(challenge), opts.Challenge)
	assert.Equal(t, codec.Binary("user-1"), opts.User.ID)
	require.Len(t, opts.AcceptedAlgorithms, 1)
	assert.EqualValues(t, -7, opts.AcceptedAlgorithms[0].Alg)
	assert.Equal(t, 60000, opts.TimeoutMs)
}

func TestVerifyStoresSessionToken(t *testing.T) {
	var sawBearer string
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/webauthn/authenticate/verify":
			var req credentialRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Credential)
			assert.Equal(t, ceremony.KindAssertion, req.Credential.Kind)
			json.NewEncoder(w).Encode(map[string]any{
				"message": "signed in",
				"user":    map[string]any{"email": "alice@acme.example"},
				"token":   "session-token-1",
			})
		case "/auth/whoami":
			sawBearer = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(Identity{Email: "alice@acme.example", TenantDomain: "acme.example"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	result := ceremony.NewAssertionResult(
		"cred-1",
		codec.Binary("cred-1"),
		codec.Binary(`{"type":"webauthn.get"}`),
		ceremony.AssertionPayload{
			AuthenticatorData: codec.Binary("ad"),
			Signature:         codec.Binary("sig"),
		},
	)

	outcome, err := client.VerifyAuthentication(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "signed in", outcome.Message)
	assert.Equal(t, "session-token-1", client.SessionToken())

	require.NoError(t, client.RefreshIdentity(context.Background()))
	assert.Equal(t, "Bearer session-token-1", sawBearer)

	identity := client.CurrentIdentity()
	require.NotNil(t, identity)
	assert.Equal(t, "alice@acme.example", identity.Email)
	assert.Equal(t, "acme.example", identity.TenantDomain)
}

func TestRefreshIdentityWithoutSession(t *testing.T) {
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a session")
	}))

	err := client.RefreshIdentity(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, client.CurrentIdentity())
}

func TestHTTPErrorMapping(t *testing.T) {
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "tenant not found"})
	}))

	_, err := client.TenantPolicy(context.Background(), "nosuch.example")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Contains(t, herr.Error(), "tenant not found")
}

func TestUserStatusEscapesEmail(t *testing.T) {
	var gotPath string
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(UserCredentialStatus{Exists: true, HasPasskey: true})
	}))

	status, err := client.UserStatus(context.Background(), "alice+dev@acme.example")
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.HasPasskey)
	assert.Equal(t, "/auth/user-exists/alice+dev@acme.example", gotPath)
}

func TestRecoveryAndResendMessagesAreUniform(t *testing.T) {
	const generic = "If that email is registered, instructions are on the way."
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messageResponse{Message: generic})
	}))

	ctx := context.Background()
	known, err := client.RequestRecovery(ctx, "alice@acme.example")
	require.NoError(t, err)
	unknown, err := client.RequestRecovery(ctx, "nobody@acme.example")
	require.NoError(t, err)
	assert.Equal(t, known, unknown)

	resend, err := client.ResendVerification(ctx, "nobody@acme.example")
	require.NoError(t, err)
	assert.Equal(t, generic, resend)
}

func TestRequestAccess(t *testing.T) {
	autoApprove := false
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/request-access", r.URL.Path)
		var req accountRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(AccessDecision{
			Message:      "request received",
			AutoApproved: autoApprove,
		})
	}))

	ctx := context.Background()
	decision, err := client.RequestAccess(ctx, "new@acme.example", "New User")
	require.NoError(t, err)
	assert.False(t, decision.AutoApproved)

	autoApprove = true
	decision, err = client.RequestAccess(ctx, "new@acme.example", "New User")
	require.NoError(t, err)
	assert.True(t, decision.AutoApproved)
}

func TestCredentialManagement(t *testing.T) {
	var deleted string
	_, client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/user/credentials":
			json.NewEncoder(w).Encode([]EnrolledCredentialSummary{
				{ID: "cred-1", Label: "MacBook", CreatedAt: time.Now()},
				{ID: "cred-2", Label: "Phone", CreatedAt: time.Now()},
			})
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	ctx := context.Background()
	creds, err := client.Credentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "MacBook", creds[0].Label)

	require.NoError(t, client.DeleteCredential(ctx, "cred-2"))
	assert.Equal(t, "/user/credentials/cred-2", deleted)
}

func TestSessionClaims(t *testing.T) {
	client, err := NewClient(&Config{BaseURL: "https://auth.example.com"})
	require.NoError(t, err)

	_, err = client.SessionClaims()
	assert.ErrorIs(t, err, ErrNoSession)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice@acme.example",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	client.SetSessionToken(signed)
	claims, err := client.SessionClaims()
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.example", claims["sub"])
}
