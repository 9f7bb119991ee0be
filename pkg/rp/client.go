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
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/decisionworks/go-passkey/pkg/ceremony"
)

// Client consumes the relying-party HTTP contract. It implements
// ceremony.RelyingParty and adds the directory, credential-management
// and access-request operations the flow machine needs.
//
// A successful verify stores the session token; subsequent requests
// carry it as a bearer token.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string

	mu       sync.RWMutex
	token    string
	identity *Identity
}

// Compile-time check that Client satisfies the ceremony port.
var _ ceremony.RelyingParty = (*Client)(nil)

// NewClient creates a relying-party client from the given config.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relying party config: %w", err)
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		baseURL: cfg.normalizedBaseURL(),
	}, nil
}

// doRequest performs one HTTP round-trip against the relying party.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	if token := c.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		herr := &HTTPError{StatusCode: resp.StatusCode}
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			if errResp.Error != "" {
				herr.Message = errResp.Error
			} else if errResp.Message != "" {
				herr.Message = errResp.Message
			}
		}
		return nil, herr
	}

	return respBody, nil
}

// RegistrationOptions fetches a fresh single-use registration challenge
// for the given account.
func (c *Client) RegistrationOptions(ctx context.Context, email, displayName string) (*ceremony.RegistrationChallenge, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/webauthn/register/options",
		accountRequest{Email: email, Name: displayName})
	if err != nil {
		return nil, err
	}

	var challenge ceremony.RegistrationChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("failed to parse registration options: %w", err)
	}
	return &challenge, nil
}

// VerifyRegistration submits an attestation result. On success the
// returned session token is stored for subsequent requests.
func (c *Client) VerifyRegistration(ctx context.Context, result *ceremony.Result) (*ceremony.VerifyOutcome, error) {
	return c.verify(ctx, "/webauthn/register/verify", result)
}

// AuthenticationOptions fetches a fresh single-use authentication
// challenge. An empty email requests the discoverable-credential flow.
func (c *Client) AuthenticationOptions(ctx context.Context, email string) (*ceremony.AuthenticationChallenge, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/webauthn/authenticate/options",
		emailRequest{Email: email})
	if err != nil {
		return nil, err
	}

	var challenge ceremony.AuthenticationChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("failed to parse authentication options: %w", err)
	}
	return &challenge, nil
}

// VerifyAuthentication submits an assertion result. On success the
// returned session token is stored for subsequent requests.
func (c *Client) VerifyAuthentication(ctx context.Context, result *ceremony.Result) (*ceremony.VerifyOutcome, error) {
	return c.verify(ctx, "/webauthn/authenticate/verify", result)
}

func (c *Client) verify(ctx context.Context, path string, result *ceremony.Result) (*ceremony.VerifyOutcome, error) {
	data, err := c.doRequest(ctx, http.MethodPost, path, credentialRequest{Credential: result})
	if err != nil {
		return nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}

	if resp.Token != "" {
		c.mu.Lock()
		c.token = resp.Token
		c.mu.Unlock()
	}

	return &ceremony.VerifyOutcome{Message: resp.Message, User: resp.User}, nil
}

// RefreshIdentity re-fetches "who am I" for the current session so
// dependent views reflect the newly usable credential.
func (c *Client) RefreshIdentity(ctx context.Context) error {
	if c.SessionToken() == "" {
		return ErrNoSession
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/auth/whoami", nil)
	if err != nil {
		return err
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return fmt.Errorf("failed to parse identity: %w", err)
	}

	c.mu.Lock()
	c.identity = &identity
	c.mu.Unlock()
	return nil
}

// CurrentIdentity returns the identity from the last refresh, or nil.
func (c *Client) CurrentIdentity() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	identity := *c.identity
	return &identity
}

// SessionToken returns the stored session token, if any.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetSessionToken installs an existing session token, e.g. one restored
// from a CLI session file.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.identity = nil
}

// SessionClaims returns the unverified claims of the stored session
// token. Verification is the server's job; the client only inspects
// claims such as expiry for display purposes.
func (c *Client) SessionClaims() (jwt.MapClaims, error) {
	token := c.SessionToken()
	if token == "" {
		return nil, ErrNoSession
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	return claims, nil
}

// UserStatus looks up which credentials an email has enrolled.
func (c *Client) UserStatus(ctx context.Context, email string) (*UserCredentialStatus, error) {
	path := fmt.Sprintf("/auth/user-exists/%s", url.PathEscape(email))
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var status UserCredentialStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse user status: %w", err)
	}
	return &status, nil
}

// TenantPolicy fetches a tenant's authentication configuration.
func (c *Client) TenantPolicy(ctx context.Context, domain string) (*TenantAuthPolicy, error) {
	path := fmt.Sprintf("/tenant/%s/auth-config", url.PathEscape(domain))
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var policy TenantAuthPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse tenant policy: %w", err)
	}
	return &policy, nil
}

// Credentials lists the session account's enrolled passkeys.
func (c *Client) Credentials(ctx context.Context) ([]EnrolledCredentialSummary, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/user/credentials", nil)
	if err != nil {
		return nil, err
	}

	var creds []EnrolledCredentialSummary
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

// DeleteCredential removes one enrolled passkey.
func (c *Client) DeleteCredential(ctx context.Context, id string) error {
	path := fmt.Sprintf("/user/credentials/%s", url.PathEscape(id))
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

// RequestRecovery asks the server to start credential recovery for the
// email. The response message is uniform whether or not the email
// exists; the client passes it through untouched.
func (c *Client) RequestRecovery(ctx context.Context, email string) (string, error) {
	return c.message(ctx, "/auth/request-recovery", email)
}

// ResendVerification asks the server to resend the verification email.
// Same enumeration guard as RequestRecovery.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	return c.message(ctx, "/auth/resend-verification", email)
}

func (c *Client) message(ctx context.Context, path, email string) (string, error) {
	data, err := c.doRequest(ctx, http.MethodPost, path, emailRequest{Email: email})
	if err != nil {
		return "", err
	}

	var resp messageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.Message, nil
}

// RequestAccess submits an access request for an email with no existing
// account. The server alone decides whether the tenant auto-approves.
func (c *Client) RequestAccess(ctx context.Context, email, name string) (*AccessDecision, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/auth/request-access",
		accountRequest{Email: email, Name: name})
	if err != nil {
		return nil, err
	}

	var decision AccessDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("failed to parse access decision: %w", err)
	}
	return &decision, nil
}
