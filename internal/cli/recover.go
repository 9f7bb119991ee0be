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

var recoverEmail string

// recoverCmd requests credential recovery for an account
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Request credential recovery",
	Long: `Ask the relying party to start credential recovery for an email
address. The server responds with the same message whether or not the
account exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if recoverEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg := getConfig()
		rpClient, err := cfg.newRPClient()
		if err != nil {
			return err
		}

		message, err := rpClient.RequestRecovery(cmd.Context(), recoverEmail)
		if err != nil {
			return err
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintMessage(message)
	},
}

func init() {
	recoverCmd.Flags().StringVar(&recoverEmail, "email", "", "account email address")
}
