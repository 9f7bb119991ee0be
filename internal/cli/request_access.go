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
	requestAccessEmail string
	requestAccessName  string
)

// requestAccessCmd submits an access request for a new account
var requestAccessCmd = &cobra.Command{
	Use:   "request-access",
	Short: "Request access to the tenant",
	Long: `Submit an access request for an account that does not exist yet.
Depending on tenant policy the request is auto-approved or left
pending for an administrator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if requestAccessEmail == "" {
			return fmt.Errorf("--email is required")
		}

		cfg := getConfig()
		rpClient, err := cfg.newRPClient()
		if err != nil {
			return err
		}

		decision, err := rpClient.RequestAccess(cmd.Context(), requestAccessEmail, requestAccessName)
		if err != nil {
			return err
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		if cfg.OutputFormat == "json" {
			return printer.printJSON(decision)
		}
		if decision.AutoApproved {
			return printer.PrintMessage("access approved: " + decision.Message)
		}
		return printer.PrintMessage("access request pending: " + decision.Message)
	},
}

func init() {
	requestAccessCmd.Flags().StringVar(&requestAccessEmail, "email", "", "account email address")
	requestAccessCmd.Flags().StringVar(&requestAccessName, "name", "", "display name for the account")
}
