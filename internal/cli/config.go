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

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/decisionworks/go-passkey/pkg/capability"
	"github.com/decisionworks/go-passkey/pkg/ceremony"
	"github.com/decisionworks/go-passkey/pkg/flow"
	"github.com/decisionworks/go-passkey/pkg/logging"
	"github.com/decisionworks/go-passkey/pkg/rp"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// Server is the relying-party server base URL
	Server string

	// TenantDomain is the tenant whose sign-in flow is driven
	TenantDomain string

	// Origin is the client origin signed into ceremony client data.
	// Defaults to https://<tenant-domain>.
	Origin string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	// TLSInsecure skips TLS certificate verification (not recommended)
	TLSInsecure bool

	// SessionFile is where the session token is persisted between
	// invocations
	SessionFile string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
		SessionFile:  defaultSessionFile(),
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".passkeyctl-session"
	}
	return filepath.Join(home, ".passkeyctl", "session")
}

// loadFile merges the config file and PASSKEYCTL_* environment
// variables into any settings the flags left empty.
func (c *Config) loadFile() error {
	v := viper.New()
	v.SetEnvPrefix("passkeyctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".passkeyctl")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if c.Server == "" {
		c.Server = v.GetString("server")
	}
	if c.TenantDomain == "" {
		c.TenantDomain = v.GetString("tenant")
	}
	if c.Origin == "" {
		c.Origin = v.GetString("origin")
	}
	if s := v.GetString("session-file"); s != "" {
		c.SessionFile = s
	}
	return nil
}

// origin returns the configured origin, defaulting to the tenant's
// https origin.
func (c *Config) origin() string {
	if c.Origin != "" {
		return c.Origin
	}
	return "https://" + c.TenantDomain
}

// newLogger returns the CLI logger, doubling as the diagnostics sink
func (c *Config) newLogger() *logging.Logger {
	return logging.NewLogger(c.Verbose)
}

// newRPClient creates the relying-party client, restoring any persisted
// session token.
func (c *Config) newRPClient() (*rp.Client, error) {
	if c.Server == "" {
		return nil, fmt.Errorf("relying party server is required (--server or PASSKEYCTL_SERVER)")
	}

	client, err := rp.NewClient(&rp.Config{
		BaseURL:               c.Server,
		TLSInsecureSkipVerify: c.TLSInsecure,
	})
	if err != nil {
		return nil, err
	}

	if token, err := os.ReadFile(c.SessionFile); err == nil && len(token) > 0 {
		client.SetSessionToken(strings.TrimSpace(string(token)))
	}
	return client, nil
}

// saveSession persists the session token for later invocations
func (c *Config) saveSession(client *rp.Client) error {
	token := client.SessionToken()
	if token == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.SessionFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.SessionFile, []byte(token), 0o600)
}

// newAuthenticator creates the software platform authenticator for the
// configured tenant and origin.
func (c *Config) newAuthenticator() (*ceremony.VirtualAuthenticator, error) {
	if c.TenantDomain == "" {
		return nil, fmt.Errorf("tenant domain is required (--tenant or PASSKEYCTL_TENANT)")
	}
	return ceremony.NewVirtualAuthenticator(c.TenantDomain, c.TenantDomain, c.origin()), nil
}

// newProber creates the capability prober over the authenticator
func (c *Config) newProber(authn *ceremony.VirtualAuthenticator, logger *logging.Logger) *capability.Prober {
	return capability.NewProber(capability.Environment{
		Interactive: true,
		Origin:      c.origin(),
		Platform:    authn,
	}, logger)
}

// newEngine wires the full sign-in engine: rp client, authenticator,
// ceremony client and flow machine.
func (c *Config) newEngine() (*rp.Client, *ceremony.Client, *flow.Machine, error) {
	logger := c.newLogger()

	rpClient, err := c.newRPClient()
	if err != nil {
		return nil, nil, nil, err
	}

	authn, err := c.newAuthenticator()
	if err != nil {
		return nil, nil, nil, err
	}

	ceremonyClient, err := ceremony.NewClient(ceremony.ClientParams{
		RelyingParty:  rpClient,
		Authenticator: authn,
		Diagnostics:   logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	machine, err := flow.NewMachine(flow.MachineParams{
		Directory:    rpClient,
		Ceremonies:   ceremonyClient,
		Capabilities: c.newProber(authn, logger),
		TenantDomain: c.TenantDomain,
		Diagnostics:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return rpClient, ceremonyClient, machine, nil
}
