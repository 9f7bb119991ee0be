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

var resendEmail string

// resendCmd requests a fresh verification email
var resendCmd = &cobra.Command{
	Use:   "resend-verification",
	Short: "Resend the account verification email",
	Long: `Ask the relying party to resend the verification email for an
account. The server responds with the same message whether or not the
account exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resendEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg := getConfig()
		rpClient, err := cfg.newRPClient()
		if err != nil {
			return err
		}

		message, err := rpClient.ResendVerification(cmd.Context(), resendEmail)
		if err != nil {
			return err
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintMessage(message)
	},
}

func init() {
	resendCmd.Flags().StringVar(&resendEmail, "email", "", "account email address")
}
