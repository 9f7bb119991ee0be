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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	registerEmail string
	registerName  string
)

// registerCmd runs a passkey registration ceremony
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new passkey",
	Long: `Run a registration ceremony: fetch creation options from the
relying party, create a credential on the platform authenticator and
submit the attestation for verification. On success the minted session
token is persisted for later invocations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg := getConfig()
		rpClient, engine, _, err := cfg.newEngine()
		if err != nil {
			return err
		}

		outcome, err := engine.RegisterCredential(cmd.Context(), registerEmail, registerName)
		if err != nil {
			return err
		}

		if err := cfg.saveSession(rpClient); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintOutcome(outcome)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email address")
	registerCmd.Flags().StringVar(&registerName, "name", "", "display name for the account")
}
