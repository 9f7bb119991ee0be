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

// Package rp is the HTTP client for the relying-party contract. It is
// the only component that talks to the server: challenges, ceremony
// results, tenant policy, user status, recovery and access requests all
// cross this boundary, with binary fields encoded exclusively through
// pkg/codec.
package rp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds relying-party client configuration.
type Config struct {
	// BaseURL is the relying-party server base URL (required).
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`

	// Timeout bounds each HTTP round-trip. Ceremony prompts happen
	// locally, so this only covers the network legs.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// TLSCAFile optionally pins a CA bundle for the server certificate.
	TLSCAFile string `yaml:"tls_ca_file" json:"tls_ca_file" mapstructure:"tls_ca_file"`

	// TLSInsecureSkipVerify disables server certificate verification.
	// Development only.
	TLSInsecureSkipVerify bool `yaml:"tls_insecure_skip_verify" json:"tls_insecure_skip_verify" mapstructure:"tls_insecure_skip_verify"`

	// Headers are extra headers added to every request.
	Headers map[string]string `yaml:"headers" json:"headers" mapstructure:"headers"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

// SetDefaults fills in zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// normalizedBaseURL returns the base URL without a trailing slash.
func (c *Config) normalizedBaseURL() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}
