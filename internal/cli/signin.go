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

var signinEmail string

// signinCmd drives the tenant sign-in flow for an email
var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with a passkey",
	Long: `Drive the tenant sign-in flow for an email address: check the
account, consult the tenant auth policy and, when a passkey is
enrolled and usable, run the authentication ceremony. Prints the
resulting flow state, which tells you what a front end would show
next (signed in, password fallback, access request, and so on).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if signinEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg := getConfig()
		rpClient, _, machine, err := cfg.newEngine()
		if err != nil {
			return err
		}

		if err := machine.SubmitEmail(cmd.Context(), signinEmail); err != nil {
			return err
		}

		state := machine.State()
		if state.Authenticated {
			if err := cfg.saveSession(rpClient); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintState(state)
	},
}

func init() {
	signinCmd.Flags().StringVar(&signinEmail, "email", "", "account email address")
}
