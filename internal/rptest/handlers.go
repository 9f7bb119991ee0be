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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/decisionworks/go-passkey/pkg/codec"
	"github.com/decisionworks/go-passkey/pkg/rp"
)

type contextKey string

const ctxEmail contextKey = "email"

type accountPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type credentialEnvelope struct {
	Credential json.RawMessage `json:"credential"`
}

func (s *Server) handleRegisterOptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	acct := s.getOrCreateAccount(req.Email, req.Name)

	s.mu.Lock()
	excludeList := make([]protocol.CredentialDescriptor, len(acct.creds))
	for i, cred := range acct.creds {
		excludeList[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: cred.ID,
		}
	}
	s.mu.Unlock()

	options, sessionData, err := s.wa.BeginRegistration(acct,
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.saveSession(sessionData, req.Email)
	s.writeJSON(w, http.StatusOK, options.Response)
}

func (s *Server) handleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req credentialEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Credential) == 0 {
		s.writeError(w, http.StatusBadRequest, "credential is required")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid attestation response")
		return
	}

	sess, ok := s.takeSession(parsed.Response.CollectedClientData.Challenge)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown or already consumed challenge")
		return
	}

	acct, ok := s.accountByEmail(sess.email)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown account")
		return
	}

	credential, err := s.wa.CreateCredential(acct, sess.data, parsed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "attestation verification failed")
		return
	}

	s.mu.Lock()
	acct.addCredential(*credential)
	s.mu.Unlock()

	s.finishCeremony(w, acct, "passkey registered")
}

func (s *Server) handleAuthenticateOptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	// Empty body selects the discoverable flow.
	_ = json.NewDecoder(r.Body).Decode(&req)

	var (
		options     *protocol.CredentialAssertion
		sessionData *webauthn.SessionData
		err         error
	)

	if req.Email == "" {
		options, sessionData, err = s.wa.BeginDiscoverableLogin()
	} else {
		acct, ok := s.accountByEmail(req.Email)
		if !ok || len(acct.creds) == 0 {
			s.writeError(w, http.StatusNotFound, "no passkeys for that account")
			return
		}
		options, sessionData, err = s.wa.BeginLogin(acct)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.saveSession(sessionData, req.Email)
	s.writeJSON(w, http.StatusOK, options.Response)
}

func (s *Server) handleAuthenticateVerify(w http.ResponseWriter, r *http.Request) {
	var req credentialEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Credential) == 0 {
		s.writeError(w, http.StatusBadRequest, "credential is required")
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid assertion response")
		return
	}

	sess, ok := s.takeSession(parsed.Response.CollectedClientData.Challenge)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown or already consumed challenge")
		return
	}

	var acct *account
	var credential *webauthn.Credential

	if sess.email == "" {
		credential, err = s.wa.ValidateDiscoverableLogin(
			func(rawID, userHandle []byte) (webauthn.User, error) {
				found, ok := s.accountByHandle(userHandle)
				if !ok {
					return nil, protocol.ErrBadRequest.WithDetails("unknown user handle")
				}
				return found, nil
			},
			sess.data,
			parsed,
		)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "assertion verification failed")
			return
		}
		acct, ok = s.accountByHandle(parsed.Response.UserHandle)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown account")
			return
		}
	} else {
		acct, ok = s.accountByEmail(sess.email)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown account")
			return
		}
		credential, err = s.wa.ValidateLogin(acct, sess.data, parsed)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "assertion verification failed")
			return
		}
	}

	s.mu.Lock()
	acct.updateSignCount(credential.ID, credential.Authenticator.SignCount)
	s.mu.Unlock()

	s.finishCeremony(w, acct, "signed in")
}

// finishCeremony mints a session token and writes the verify response.
func (s *Server) finishCeremony(w http.ResponseWriter, acct *account, message string) {
	token, err := s.mintToken(acct)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to mint session token")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"user":    accountPayload{Email: acct.email, Name: acct.name},
		"token":   token,
	})
}

func (s *Server) handleUserExists(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	status := rp.UserCredentialStatus{}
	if acct, ok := s.accountByEmail(email); ok {
		s.mu.Lock()
		status = rp.UserCredentialStatus{
			Exists:      true,
			HasPasskey:  len(acct.creds) > 0,
			HasPassword: acct.hasPassword,
			Pending:     acct.pending,
		}
		s.mu.Unlock()
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAuthConfig(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if domain != s.cfg.TenantDomain {
		s.writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.cfg.Policy)
}

// handleGenericMessage serves both recovery and resend-verification.
// The body is identical whether or not the email exists.
func (s *Server) handleGenericMessage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": GenericMessage})
}

func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	var req accountPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; !exists {
		acct := newAccount(req.Email, req.Name)
		acct.pending = !s.cfg.AutoApprove
		s.accounts[req.Email] = acct
	}
	s.mu.Unlock()

	message := "Your access request has been sent for approval."
	if s.cfg.AutoApprove {
		message = "Your account has been created. Check your email to finish setup."
	}
	s.writeJSON(w, http.StatusOK, rp.AccessDecision{
		Message:      message,
		AutoApproved: s.cfg.AutoApprove,
	})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(ctxEmail).(string)
	acct, ok := s.accountByEmail(email)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unknown session account")
		return
	}
	s.writeJSON(w, http.StatusOK, rp.Identity{
		Email:        acct.email,
		Name:         acct.name,
		TenantDomain: s.cfg.TenantDomain,
	})
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(ctxEmail).(string)
	acct, ok := s.accountByEmail(email)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unknown session account")
		return
	}

	s.mu.Lock()
	summaries := make([]rp.EnrolledCredentialSummary, 0, len(acct.creds))
	for _, cred := range acct.creds {
		id := codec.Encode(cred.ID)
		summaries = append(summaries, rp.EnrolledCredentialSummary{
			ID:        id,
			CreatedAt: acct.credAdded[id],
		})
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(ctxEmail).(string)
	acct, ok := s.accountByEmail(email)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unknown session account")
		return
	}

	id := chi.URLParam(r, "id")
	s.mu.Lock()
	removed := acct.removeCredential(id)
	s.mu.Unlock()
	if !removed {
		s.writeError(w, http.StatusNotFound, "credential not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession authenticates the bearer session token.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		email, err := s.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxEmail, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
