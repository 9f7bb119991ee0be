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
	"os"

	"github.com/spf13/cobra"
)

// credentialsCmd manages enrolled passkeys for the current session
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage enrolled passkeys",
	Long: `List or delete the passkeys enrolled for the signed-in account.
Requires a session from a previous register or signin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return credentialsListCmd.RunE(cmd, args)
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled passkeys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		rpClient, err := cfg.newRPClient()
		if err != nil {
			return err
		}

		creds, err := rpClient.Credentials(cmd.Context())
		if err != nil {
			return err
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintCredentials(creds)
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <credential-id>",
	Short: "Delete an enrolled passkey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		rpClient, err := cfg.newRPClient()
		if err != nil {
			return err
		}

		if err := rpClient.DeleteCredential(cmd.Context(), args[0]); err != nil {
			return err
		}

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		return printer.PrintMessage("passkey deleted")
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}
