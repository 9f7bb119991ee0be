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

// Package rptest is an in-process relying party implementing the HTTP
// contract the engine consumes, with real go-webauthn ceremony
// verification. It exists for integration tests: the ceremony client,
// rp client and flow machine all run against it end to end without a
// browser.
//
// Challenge sessions are single-use: a verify consumes the session
// keyed by the challenge in the submitted client data, so replaying a
// result fails exactly like a production relying party.
package rptest

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/golang-jwt/jwt/v5"

	"github.com/decisionworks/go-passkey/pkg/rp"
)

// GenericMessage is the uniform response for recovery and
// resend-verification requests, returned regardless of whether the
// email is recognized.
const GenericMessage = "If that email is registered, instructions are on the way."

// Config configures the in-process relying party.
type Config struct {
	// RPID is the relying-party id, e.g. "acme.example" (required).
	RPID string

	// RPOrigin is the client origin signed into client data (required).
	// A virtual authenticator must be created with the same origin.
	RPOrigin string

	// RPName is the human-readable relying-party name.
	RPName string

	// TenantDomain is the tenant served by this instance. Defaults to
	// RPID.
	TenantDomain string

	// Policy is the tenant auth policy served by the auth-config
	// endpoint. Zero value enables passkey, password and registration.
	Policy rp.TenantAuthPolicy

	// AutoApprove makes access requests auto-approved instead of
	// pending.
	AutoApprove bool

	// JWTSecret signs session tokens. Defaults to a fixed test secret.
	JWTSecret []byte
}

func (c *Config) setDefaults() {
	if c.RPName == "" {
		c.RPName = c.RPID
	}
	if c.TenantDomain == "" {
		c.TenantDomain = c.RPID
	}
	if c.JWTSecret == nil {
		c.JWTSecret = []byte("rptest-signing-secret")
	}
	zero := rp.TenantAuthPolicy{}
	if reflect.DeepEqual(c.Policy, zero) {
		c.Policy = rp.TenantAuthPolicy{
			Domain:            c.TenantDomain,
			AllowPassword:     true,
			AllowPasskey:      true,
			AllowRegistration: true,
		}
	}
}

// session is one pending ceremony, keyed by its challenge.
type session struct {
	data  webauthn.SessionData
	email string // empty for the discoverable flow
}

// Server is the in-process relying party.
type Server struct {
	cfg    Config
	wa     *webauthn.WebAuthn
	router chi.Router

	mu       sync.Mutex
	accounts map[string]*account // by email
	sessions map[string]*session // by challenge (base64url)
}

// NewServer creates a relying party for the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.RPID == "" {
		return nil, fmt.Errorf("rp id is required")
	}
	if cfg.RPOrigin == "" {
		return nil, fmt.Errorf("rp origin is required")
	}
	cfg.setDefaults()

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPName,
		RPID:          cfg.RPID,
		RPOrigins:     []string{cfg.RPOrigin},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		wa:       wa,
		accounts: make(map[string]*account),
		sessions: make(map[string]*session),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler implementing the contract.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/webauthn/register/options", s.handleRegisterOptions)
	r.Post("/webauthn/register/verify", s.handleRegisterVerify)
	r.Post("/webauthn/authenticate/options", s.handleAuthenticateOptions)
	r.Post("/webauthn/authenticate/verify", s.handleAuthenticateVerify)

	r.Get("/auth/user-exists/{email}", s.handleUserExists)
	r.Get("/tenant/{domain}/auth-config", s.handleAuthConfig)
	r.Post("/auth/request-recovery", s.handleGenericMessage)
	r.Post("/auth/resend-verification", s.handleGenericMessage)
	r.Post("/auth/request-access", s.handleRequestAccess)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/auth/whoami", s.handleWhoami)
		r.Get("/user/credentials", s.handleListCredentials)
		r.Delete("/user/credentials/{id}", s.handleDeleteCredential)
	})

	return r
}

// SeedAccount pre-creates an account, optionally with a password
// credential or in the pending-approval state.
func (s *Server) SeedAccount(email, name string, hasPassword, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := newAccount(email, name)
	acct.hasPassword = hasPassword
	acct.pending = pending
	s.accounts[email] = acct
}

// UserHandle returns the WebAuthn user handle for an account, or nil.
// Authenticators that should serve the discoverable flow need it.
func (s *Server) UserHandle(email string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return acct.id
	}
	return nil
}

// PasskeyCount reports how many passkeys an account has enrolled.
func (s *Server) PasskeyCount(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return len(acct.creds)
	}
	return 0
}

// OpenSessions reports how many challenge sessions are outstanding.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) getOrCreateAccount(email, name string) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return acct
	}
	acct := newAccount(email, name)
	s.accounts[email] = acct
	return acct
}

func (s *Server) accountByEmail(email string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	return acct, ok
}

func (s *Server) accountByHandle(handle []byte) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if string(acct.id) == string(handle) {
			return acct, true
		}
	}
	return nil, false
}

// saveSession stores a ceremony session keyed by its challenge.
func (s *Server) saveSession(data *webauthn.SessionData, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[data.Challenge] = &session{data: *data, email: email}
}

// takeSession removes and returns the session for a challenge.
// Single-use: a second take for the same challenge fails.
func (s *Server) takeSession(challenge string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[challenge]
	if ok {
		delete(s.sessions, challenge)
	}
	return sess, ok
}

// mintToken issues an HS256 session token for the account.
func (s *Server) mintToken(acct *account) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": acct.email,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	return token.SignedString(s.cfg.JWTSecret)
}

// parseToken validates a session token and returns the subject email.
func (s *Server) parseToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}
